package repository

// PostgresSchema creates the reference and fact tables. Statements are idempotent.
var PostgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS stocks (
		id     BIGSERIAL PRIMARY KEY,
		name   TEXT NOT NULL DEFAULT '',
		ticker TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS stock_metadata (
		id         BIGSERIAL PRIMARY KEY,
		identifier TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS stock_daily_facts (
		id          BIGSERIAL PRIMARY KEY,
		stock_id    BIGINT NOT NULL REFERENCES stocks(id),
		metadata_id BIGINT NOT NULL REFERENCES stock_metadata(id),
		data        NUMERIC NOT NULL,
		date        DATE NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (stock_id, metadata_id, date)
	)`,
	`CREATE INDEX IF NOT EXISTS stock_daily_facts_metadata_date_idx
		ON stock_daily_facts (metadata_id, date)`,
	`CREATE TABLE IF NOT EXISTS stock_fundamental_facts (
		id          BIGSERIAL PRIMARY KEY,
		stock_id    BIGINT NOT NULL REFERENCES stocks(id),
		metadata_id BIGINT NOT NULL REFERENCES stock_metadata(id),
		data        NUMERIC NOT NULL,
		period      TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (stock_id, metadata_id, period)
	)`,
}

// SQLiteSchema mirrors PostgresSchema. Values are stored as exact decimal text
// and dates as YYYY-MM-DD.
var SQLiteSchema = []string{
	`CREATE TABLE IF NOT EXISTS stocks (
		id     INTEGER PRIMARY KEY AUTOINCREMENT,
		name   TEXT NOT NULL DEFAULT '',
		ticker TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS stock_metadata (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		identifier TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS stock_daily_facts (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		stock_id    INTEGER NOT NULL REFERENCES stocks(id),
		metadata_id INTEGER NOT NULL REFERENCES stock_metadata(id),
		data        TEXT NOT NULL,
		date        TEXT NOT NULL,
		created_at  TEXT NOT NULL,
		UNIQUE (stock_id, metadata_id, date)
	)`,
	`CREATE TABLE IF NOT EXISTS stock_fundamental_facts (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		stock_id    INTEGER NOT NULL REFERENCES stocks(id),
		metadata_id INTEGER NOT NULL REFERENCES stock_metadata(id),
		data        TEXT NOT NULL,
		period      TEXT NOT NULL,
		created_at  TEXT NOT NULL,
		UNIQUE (stock_id, metadata_id, period)
	)`,
}

// ClickHouseMirrorSchema returns the DDL of the fact mirror table in database db.
func ClickHouseMirrorSchema(db string) []string {
	return []string{
		`CREATE DATABASE IF NOT EXISTS ` + db,
		`CREATE TABLE IF NOT EXISTS ` + db + `.fact_mirror (
			stock_id    Int64,
			ticker      String,
			metadata_id Int64,
			stream      LowCardinality(String),
			period      String,
			period_kind LowCardinality(String),
			value       Decimal(38, 10),
			recorded_at DateTime64(3, 'UTC')
		) ENGINE = ReplacingMergeTree(recorded_at)
		ORDER BY (metadata_id, stock_id, period)`,
	}
}
