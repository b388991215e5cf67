package models

import (
	"strconv"
	"time"
)

// PeriodKind discriminates the shapes a Period can take.
type PeriodKind uint8

const (
	PeriodInvalid PeriodKind = iota
	PeriodDate
	PeriodFiscalYear
	PeriodTrailing
)

func (k PeriodKind) String() string {
	switch k {
	case PeriodDate:
		return "date"
	case PeriodFiscalYear:
		return "fiscal_year"
	case PeriodTrailing:
		return "trailing"
	default:
		return "invalid"
	}
}

// DateLayout is the canonical key layout for daily periods.
const DateLayout = "2006-01-02"

// Period is either a calendar day (daily files) or a fiscal bucket
// (yearly files: a four-digit year or a trailing-twelve-month label).
// The zero value is the invalid period.
type Period struct {
	kind  PeriodKind
	day   time.Time
	year  int
	label string
}

// DatePeriod truncates t to its calendar day in UTC.
func DatePeriod(t time.Time) Period {
	y, m, d := t.Date()
	return Period{kind: PeriodDate, day: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func FiscalYearPeriod(year int) Period {
	return Period{kind: PeriodFiscalYear, year: year}
}

func TrailingPeriod(label string) Period {
	return Period{kind: PeriodTrailing, label: label}
}

// InvalidPeriod marks a period cell that could not be parsed.
func InvalidPeriod() Period { return Period{} }

func (p Period) Kind() PeriodKind { return p.kind }
func (p Period) Valid() bool      { return p.kind != PeriodInvalid }

// Day returns the calendar day of a date period and the zero time otherwise.
func (p Period) Day() time.Time { return p.day }

// Year returns the fiscal year of a fiscal-year period and 0 otherwise.
func (p Period) Year() int { return p.year }

// Daily reports whether the period belongs to the daily fact table.
func (p Period) Daily() bool { return p.kind == PeriodDate }

// Key is the canonical persisted form of the period.
func (p Period) Key() string {
	switch p.kind {
	case PeriodDate:
		return p.day.Format(DateLayout)
	case PeriodFiscalYear:
		return strconv.Itoa(p.year)
	case PeriodTrailing:
		return p.label
	default:
		return ""
	}
}

func (p Period) String() string {
	if !p.Valid() {
		return "<invalid>"
	}
	return p.Key()
}
