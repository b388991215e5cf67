package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntityKey is the surrogate key of a stock.
type EntityKey int64

// StreamID is the surrogate key of a metric stream (stock metadata row).
type StreamID int64

// Mode selects how a workbook is laid out and reconciled.
type Mode string

const (
	ModeDaily  Mode = "daily"
	ModeYearly Mode = "yearly"
)

// MetricStream is a category of reportable fact (MC, PX, Volume, or a fundamentals line item).
type MetricStream struct {
	ID   StreamID
	Code string
}

// Record is one normalized spreadsheet cell.
type Record struct {
	Identifier string
	Period     Period
	Value      decimal.Decimal
}

// Fact is the unit of persistence. At most one exists per (Entity, Stream, Period).
type Fact struct {
	Entity     EntityKey
	Stream     StreamID
	StreamCode string
	Identifier string
	Period     Period
	Value      decimal.Decimal
	RecordedAt time.Time
}
