package xlsx

import (
	"path/filepath"
	"testing"

	"ScoutSync/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, sheets map[string][][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	first := true
	for name, rows := range sheets {
		if first {
			require.NoError(t, f.SetSheetName("Sheet1", name))
			first = false
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range rows {
			for c, v := range row {
				if v == nil {
					continue
				}
				ref, err := excelize.CoordinatesToCellName(c+1, r+1)
				require.NoError(t, err)
				require.NoError(t, f.SetCellValue(name, ref, v))
			}
		}
	}

	path := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestSheetTypesCellsAndDropsTitleRow(t *testing.T) {
	path := writeWorkbook(t, map[string][][]interface{}{
		"MC": {
			{"Title line"},
			{"Market cap"},
			{"Company", "Ticker", 2023, "LTM"},
			{"Alpha Co", "AAA", 100.25, nil},
			{"Numeric Co", 42, 1, true},
		},
	})

	wb, err := NewOpener().Open(path)
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{"MC"}, wb.SheetNames())

	g, err := wb.Sheet("MC")
	require.NoError(t, err)
	require.Len(t, g, 4)

	assert.Equal(t, models.StringCell("Market cap"), g.At(0, 0))
	assert.Equal(t, models.CellNumber, g.At(1, 2).Kind)
	assert.Equal(t, "2023", g.At(1, 2).Text)
	assert.Equal(t, models.CellString, g.At(1, 3).Kind)
	assert.Equal(t, "100.25", g.At(2, 2).Text)
	assert.True(t, g.At(2, 3).Empty())
	assert.Equal(t, models.CellNumber, g.At(3, 1).Kind)
	assert.Equal(t, models.CellBool, g.At(3, 3).Kind)
}

func TestWithTitleRowsZeroKeepsEverything(t *testing.T) {
	path := writeWorkbook(t, map[string][][]interface{}{
		"Sheet": {{"a"}, {"b"}},
	})
	wb, err := NewOpener(WithTitleRows(0)).Open(path)
	require.NoError(t, err)
	defer wb.Close()

	g, err := wb.Sheet("Sheet")
	require.NoError(t, err)
	assert.Len(t, g, 2)
}

func TestOpenMissingFileIsStructural(t *testing.T) {
	_, err := NewOpener().Open(filepath.Join(t.TempDir(), "missing.xlsx"))
	require.Error(t, err)
	assert.Equal(t, models.ErrKindStructuralInput, models.ErrorKind(err))
}

func TestSheetMissingIsStructural(t *testing.T) {
	path := writeWorkbook(t, map[string][][]interface{}{"MC": {{"x"}}})
	wb, err := NewOpener().Open(path)
	require.NoError(t, err)
	defer wb.Close()

	_, err = wb.Sheet("nope")
	require.Error(t, err)
	assert.Equal(t, models.ErrKindStructuralInput, models.ErrorKind(err))
}
