package sheet

import (
	"math"
	"strconv"
	"strings"
	"time"

	"ScoutSync/internal/domain/models"
	"ScoutSync/pkg/util"

	"github.com/xuri/excelize/v2"
)

const (
	DefaultMinYear = 1950
	// maxExcelSerial is 9999-12-31, the last day Excel can represent.
	maxExcelSerial = 2958465
)

// DefaultTrailingLabels are the trailing-twelve-month column labels accepted in yearly sheets.
var DefaultTrailingLabels = []string{"LTM", "LTM-4"}

// ClassifierOption configures Classifier.
type ClassifierOption func(*Classifier)

// WithTrailingLabels replaces the accepted trailing-twelve-month labels.
func WithTrailingLabels(labels ...string) ClassifierOption {
	return func(c *Classifier) {
		if len(labels) == 0 {
			return
		}
		c.trailing = make(map[string]struct{}, len(labels))
		for _, l := range labels {
			c.trailing[strings.TrimSpace(l)] = struct{}{}
		}
	}
}

// WithMinYear sets the oldest eligible fiscal year.
func WithMinYear(year int) ClassifierOption {
	return func(c *Classifier) {
		if year > 0 {
			c.minYear = year
		}
	}
}

// WithClock sets the clock used to determine the current year.
func WithClock(now func() time.Time) ClassifierOption {
	return func(c *Classifier) {
		if now != nil {
			c.now = now
		}
	}
}

// Classifier decides which spreadsheet cells denote reportable periods.
type Classifier struct {
	trailing map[string]struct{}
	minYear  int
	now      func() time.Time
}

func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{minYear: DefaultMinYear, now: time.Now}
	WithTrailingLabels(DefaultTrailingLabels...)(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// YearlyPeriod classifies a yearly column label. A label is eligible if it is a
// trailing label or a whole year in [minYear, current year].
func (c *Classifier) YearlyPeriod(label models.Cell) (models.Period, bool) {
	if label.Empty() {
		return models.InvalidPeriod(), false
	}
	text := strings.TrimSpace(label.Text)
	if _, ok := c.trailing[text]; ok {
		return models.TrailingPeriod(text), true
	}
	if label.Kind == models.CellBool || label.Kind == models.CellError {
		return models.InvalidPeriod(), false
	}
	year, ok := util.ParseWholeNumber(text)
	if !ok {
		return models.InvalidPeriod(), false
	}
	if year < c.minYear || year > c.now().Year() {
		return models.InvalidPeriod(), false
	}
	return models.FiscalYearPeriod(year), true
}

// DailyPeriod parses the period cell of a daily row. Numbers are Excel date
// serials; text goes through the common date layouts. Anything else is the
// invalid period.
func (c *Classifier) DailyPeriod(cell models.Cell) models.Period {
	if cell.Empty() || cell.Kind == models.CellBool || cell.Kind == models.CellError {
		return models.InvalidPeriod()
	}
	text := strings.TrimSpace(cell.Text)
	if serial, err := strconv.ParseFloat(text, 64); err == nil {
		if math.IsNaN(serial) || serial <= 0 || serial > maxExcelSerial {
			return models.InvalidPeriod()
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return models.InvalidPeriod()
		}
		return models.DatePeriod(t)
	}
	if t, ok := util.ParseDate(text); ok {
		return models.DatePeriod(t)
	}
	return models.InvalidPeriod()
}
