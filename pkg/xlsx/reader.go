package xlsx

import (
	"fmt"
	"strconv"
	"strings"

	"ScoutSync/internal/domain/models"
	"ScoutSync/internal/domain/repository"

	"github.com/xuri/excelize/v2"
)

// DefaultTitleRows is the number of leading rows consumed as the sheet's title line.
const DefaultTitleRows = 1

// Option configures Opener.
type Option func(*Opener)

// WithTitleRows sets how many leading rows are dropped before the grid starts.
func WithTitleRows(n int) Option {
	return func(o *Opener) {
		if n >= 0 {
			o.titleRows = n
		}
	}
}

// Opener opens .xlsx workbooks from local disk.
type Opener struct {
	titleRows int
}

func NewOpener(opts ...Option) *Opener {
	o := &Opener{titleRows: DefaultTitleRows}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Open reads path. Unreadable files are structural input errors.
func (o *Opener) Open(path string) (repository.Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, models.StructuralInputError(fmt.Sprintf("open workbook %s", path), err)
	}
	return &Workbook{f: f, titleRows: o.titleRows}, nil
}

// Workbook is an opened excelize file.
type Workbook struct {
	f         *excelize.File
	titleRows int
}

func (w *Workbook) SheetNames() []string {
	return w.f.GetSheetList()
}

// Sheet returns the typed, unformatted cells of sheet name.
func (w *Workbook) Sheet(name string) (models.Grid, error) {
	rows, err := w.f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, models.StructuralInputError(fmt.Sprintf("read sheet %s", name), err)
	}

	grid := make(models.Grid, 0, len(rows))
	for r := w.titleRows; r < len(rows); r++ {
		row := make([]models.Cell, len(rows[r]))
		for c, text := range rows[r] {
			if strings.TrimSpace(text) == "" {
				continue
			}
			row[c] = w.cell(name, c+1, r+1, text)
		}
		grid = append(grid, row)
	}
	return grid, nil
}

func (w *Workbook) cell(sheet string, col, row int, text string) models.Cell {
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return inferCell(text)
	}
	typ, err := w.f.GetCellType(sheet, ref)
	if err != nil {
		return inferCell(text)
	}

	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString:
		return models.Cell{Kind: models.CellString, Text: text}
	case excelize.CellTypeBool:
		return models.Cell{Kind: models.CellBool, Text: text}
	case excelize.CellTypeError:
		return models.Cell{Kind: models.CellError, Text: text}
	case excelize.CellTypeDate:
		return models.Cell{Kind: models.CellDate, Text: text}
	default:
		// numbers and formula results carry no reliable type; sniff the text
		return inferCell(text)
	}
}

func inferCell(text string) models.Cell {
	if _, err := strconv.ParseFloat(strings.TrimSpace(text), 64); err == nil {
		return models.Cell{Kind: models.CellNumber, Text: text}
	}
	return models.Cell{Kind: models.CellString, Text: text}
}

func (w *Workbook) Close() error {
	return w.f.Close()
}
