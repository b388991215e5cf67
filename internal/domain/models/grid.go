package models

import "strings"

// CellKind is the storage type of a spreadsheet cell.
type CellKind uint8

const (
	CellEmpty CellKind = iota
	CellString
	CellNumber
	CellBool
	CellDate
	CellError
)

// Cell holds the raw (unformatted) text of a spreadsheet cell and its type.
type Cell struct {
	Kind CellKind
	Text string
}

func StringCell(s string) Cell { return Cell{Kind: CellString, Text: s} }
func NumberCell(s string) Cell { return Cell{Kind: CellNumber, Text: s} }

// Empty reports whether the cell carries no usable text.
func (c Cell) Empty() bool {
	return c.Kind == CellEmpty || strings.TrimSpace(c.Text) == ""
}

// Grid is one sheet as rows of cells. Rows may be ragged.
type Grid [][]Cell

// At returns the cell at (row, col) or an empty cell when out of range.
func (g Grid) At(row, col int) Cell {
	if row < 0 || row >= len(g) || col < 0 || col >= len(g[row]) {
		return Cell{}
	}
	return g[row][col]
}

// Width returns the length of the longest row.
func (g Grid) Width() int {
	w := 0
	for _, r := range g {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}
