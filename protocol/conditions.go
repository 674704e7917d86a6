package protocol

import (
	"regexp"
	"strconv"
	"strings"
)

// Conditions grammar: rows split on ';'. Numeric columns split on ',' or
// whitespace and additionally expand range shorthand a:b (step 1) and
// a:step:stop (signed step). String columns split on ',' only and never
// expand ranges.

var colSplit = regexp.MustCompile(`[,\s]+`)

// ParseFloatGrid parses a numeric conditions spec. Unparseable fields are
// skipped; empty rows are dropped.
func ParseFloatGrid(s string) [][]float64 {
	var grid [][]float64
	for _, rowSpec := range strings.Split(s, ";") {
		row := parseFloatVec(rowSpec)
		if len(row) > 0 {
			grid = append(grid, row)
		}
	}

	return grid
}

func parseFloatVec(s string) []float64 {
	var vec []float64
	for _, field := range colSplit.Split(strings.TrimSpace(s), -1) {
		if field == "" {
			continue
		}
		sub := splitRange(field)
		switch len(sub) {
		case 1:
			if v, err := strconv.ParseFloat(sub[0], 64); err == nil {
				vec = append(vec, v)
			}
		case 2: // start:stop, step 1
			start, err1 := strconv.ParseFloat(sub[0], 64)
			stop, err2 := strconv.ParseFloat(sub[1], 64)
			if err1 == nil && err2 == nil {
				for v := start; v <= stop; v++ {
					vec = append(vec, v)
				}
			}
		case 3: // start:step:stop
			start, err1 := strconv.ParseFloat(sub[0], 64)
			step, err2 := strconv.ParseFloat(sub[1], 64)
			stop, err3 := strconv.ParseFloat(sub[2], 64)
			if err1 == nil && err2 == nil && err3 == nil {
				if step > 0 {
					for v := start; v <= stop; v += step {
						vec = append(vec, v)
					}
				} else if step < 0 {
					for v := start; v >= stop; v += step {
						vec = append(vec, v)
					}
				}
			}
		}
	}

	return vec
}

// splitRange splits on ':' while keeping a leading '-' attached to its
// number, dropping empty parts.
func splitRange(field string) []string {
	var out []string
	for _, part := range strings.Split(field, ":") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}

	return out
}

// ParseIntGrid parses an integer conditions spec with the same grammar.
func ParseIntGrid(s string) [][]int {
	var grid [][]int
	for _, rowSpec := range strings.Split(s, ";") {
		var row []int
		for _, field := range colSplit.Split(strings.TrimSpace(rowSpec), -1) {
			if field == "" {
				continue
			}
			sub := splitRange(field)
			switch len(sub) {
			case 1:
				if v, err := strconv.Atoi(sub[0]); err == nil {
					row = append(row, v)
				}
			case 2:
				start, err1 := strconv.Atoi(sub[0])
				stop, err2 := strconv.Atoi(sub[1])
				if err1 == nil && err2 == nil {
					for v := start; v <= stop; v++ {
						row = append(row, v)
					}
				}
			case 3:
				start, err1 := strconv.Atoi(sub[0])
				step, err2 := strconv.Atoi(sub[1])
				stop, err3 := strconv.Atoi(sub[2])
				if err1 == nil && err2 == nil && err3 == nil {
					if step > 0 {
						for v := start; v <= stop; v += step {
							row = append(row, v)
						}
					} else if step < 0 {
						for v := start; v >= stop; v += step {
							row = append(row, v)
						}
					}
				}
			}
		}
		if len(row) > 0 {
			grid = append(grid, row)
		}
	}

	return grid
}

// ParseStringGrid parses a string conditions spec; ranges do not apply.
func ParseStringGrid(s string) [][]string {
	var grid [][]string
	for _, rowSpec := range strings.Split(s, ";") {
		var row []string
		for _, field := range strings.Split(strings.TrimSpace(rowSpec), ",") {
			field = strings.TrimSpace(field)
			if field != "" {
				row = append(row, field)
			}
		}
		if len(row) > 0 {
			grid = append(grid, row)
		}
	}

	return grid
}

// gridLimits grows *rows/*cols to cover the given grid.
func gridLimits[T any](grid [][]T, rows, cols *int) {
	if len(grid) > *rows {
		*rows = len(grid)
	}
	for _, row := range grid {
		if len(row) > *cols {
			*cols = len(row)
		}
	}
}

// padGrid pads (or trims) grid to rows×cols: missing columns repeat the
// row's last element, missing rows repeat the last row; an empty grid is
// filled with def.
func padGrid[T any](grid [][]T, rows, cols int, def T) [][]T {
	for r := range grid {
		if len(grid[r]) == 0 {
			grid[r] = append(grid[r], def)
		}
		for len(grid[r]) < cols {
			grid[r] = append(grid[r], grid[r][len(grid[r])-1])
		}
		grid[r] = grid[r][:cols]
	}
	if len(grid) == 0 {
		row := make([]T, cols)
		for i := range row {
			row[i] = def
		}
		grid = append(grid, row)
	}
	for len(grid) < rows {
		last := grid[len(grid)-1]
		row := make([]T, cols)
		copy(row, last)
		grid = append(grid, row)
	}

	return grid[:rows]
}
