package sheet

import (
	"fmt"
	"strings"

	"ScoutSync/internal/domain/models"

	"github.com/shopspring/decimal"
)

// Daily layout: identifiers on row 2, rows 0-4 are presentation headers,
// column 0 holds the date.
const (
	dailyIdentifierRow = 2
	dailyHeaderRows    = 5
	dailyPeriodCol     = 0
)

// Yearly layout: labels on row 1, tickers in column 1, data from row 2.
const (
	yearlyLabelRow      = 1
	yearlyIdentifierCol = 1
)

// DefaultDailyRowLimit is the number of data rows of a daily sheet that are reconciled.
const DefaultDailyRowLimit = 10

// Normalizer turns a raw sheet into {identifier, period, value} records.
// Malformed cells are dropped; only missing header rows are errors.
type Normalizer struct {
	cls      *Classifier
	rowLimit int
}

// NewNormalizer creates a normalizer. rowLimit <= 0 selects DefaultDailyRowLimit.
func NewNormalizer(cls *Classifier, rowLimit int) *Normalizer {
	if cls == nil {
		cls = NewClassifier()
	}
	if rowLimit <= 0 {
		rowLimit = DefaultDailyRowLimit
	}
	return &Normalizer{cls: cls, rowLimit: rowLimit}
}

// Normalize dispatches on mode.
func (n *Normalizer) Normalize(g models.Grid, mode models.Mode) ([]models.Record, error) {
	switch mode {
	case models.ModeDaily:
		return n.Daily(g)
	case models.ModeYearly:
		return n.Yearly(g)
	default:
		return nil, fmt.Errorf("unsupported mode: %s", mode)
	}
}

// Daily normalizes a daily sheet. Only the first rowLimit data rows are read;
// rows whose date cannot be parsed yield nothing.
func (n *Normalizer) Daily(g models.Grid) ([]models.Record, error) {
	if len(g) <= dailyIdentifierRow {
		return nil, models.StructuralInputErrorf("daily sheet has no identifier row (row %d)", dailyIdentifierRow)
	}

	width := g.Width()
	ids := make([]string, width)
	for col := dailyPeriodCol + 1; col < width; col++ {
		ids[col] = identifier(g.At(dailyIdentifierRow, col))
	}

	end := dailyHeaderRows + n.rowLimit
	if end > len(g) {
		end = len(g)
	}

	var out []models.Record
	for row := dailyHeaderRows; row < end; row++ {
		period := n.cls.DailyPeriod(g.At(row, dailyPeriodCol))
		if !period.Valid() {
			continue
		}
		for col := dailyPeriodCol + 1; col < width; col++ {
			if ids[col] == "" {
				continue
			}
			v, ok := parseValue(g.At(row, col))
			if !ok {
				continue
			}
			out = append(out, models.Record{Identifier: ids[col], Period: period, Value: v})
		}
	}
	return out, nil
}

// Yearly normalizes a fundamentals sheet: one row per entity, one column per
// period label. Rows whose identifier cell is not text are skipped entirely.
func (n *Normalizer) Yearly(g models.Grid) ([]models.Record, error) {
	if len(g) <= yearlyLabelRow {
		return nil, models.StructuralInputErrorf("yearly sheet has no label row (row %d)", yearlyLabelRow)
	}

	width := g.Width()
	periods := make([]models.Period, width)
	for col := 0; col < width; col++ {
		if col == yearlyIdentifierCol {
			continue
		}
		if p, ok := n.cls.YearlyPeriod(g.At(yearlyLabelRow, col)); ok {
			periods[col] = p
		}
	}

	var out []models.Record
	for row := yearlyLabelRow + 1; row < len(g); row++ {
		idCell := g.At(row, yearlyIdentifierCol)
		if idCell.Kind != models.CellString {
			continue
		}
		id := identifier(idCell)
		if id == "" {
			continue
		}
		for col := 0; col < width; col++ {
			if !periods[col].Valid() {
				continue
			}
			v, ok := parseValue(g.At(row, col))
			if !ok {
				continue
			}
			out = append(out, models.Record{Identifier: id, Period: periods[col], Value: v})
		}
	}
	return out, nil
}

func identifier(c models.Cell) string {
	if c.Empty() || c.Kind == models.CellError {
		return ""
	}
	return strings.TrimSpace(c.Text)
}

// parseValue reads a numeric cell exactly. Empty, NaN, error and
// non-numeric cells are absent values.
func parseValue(c models.Cell) (decimal.Decimal, bool) {
	if c.Empty() || c.Kind == models.CellBool || c.Kind == models.CellError {
		return decimal.Decimal{}, false
	}
	v, err := decimal.NewFromString(strings.TrimSpace(c.Text))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return v, true
}
