// Package export writes simulation results in the tool's text interchange
// formats: Monte Carlo event chains as .dwt dwell-time files and visible
// plot curves as tab-separated columns. Both formats use CRLF line
// endings; dwell times are emitted in milliseconds.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kinetigo/kinetiq/protocol"
)

// ErrExport wraps I/O failures at the export boundary.
var ErrExport = errors.New("export: write failed")

// WriteDwt writes one cell's event chains as a .dwt stream: one segment
// per run, a header line, one "<state>\t<dwell ms>" line per event, and a
// blank separator line. The dwell count in the header excludes the
// trailing closing event.
func WriteDwt(w io.Writer, chains []protocol.EventChain) error {
	for i, chain := range chains {
		if _, err := fmt.Fprintf(w, "Segment: %d Dwells: %d Sampling(ms): 1\r\n", i+1, len(chain)-1); err != nil {
			return fmt.Errorf("WriteDwt: %w: %w", err, ErrExport)
		}
		for _, ev := range chain {
			if _, err := fmt.Fprintf(w, "%d\t%g\r\n", ev.State, ev.Duration*1000); err != nil {
				return fmt.Errorf("WriteDwt: %w: %w", err, ErrExport)
			}
		}
		if _, err := io.WriteString(w, "\r\n"); err != nil {
			return fmt.Errorf("WriteDwt: %w: %w", err, ErrExport)
		}
	}

	return nil
}

// DwtPath names the per-cell file of a .dwt export: base plus the
// "(variableSet,row,col)" suffix.
func DwtPath(base string, variableSet, row, col int) string {
	base = strings.TrimSuffix(base, ".dwt")

	return fmt.Sprintf("%s (%d,%d,%d).dwt", base, variableSet, row, col)
}

// SaveDwt writes every (variable set, row, col) cell of the protocol that
// carries event chains to its own file next to base.
func SaveDwt(base string, p *protocol.Protocol) error {
	for row := range p.Simulations {
		for col := range p.Simulations[row] {
			sim := p.Simulations[row][col]
			for v, chains := range sim.Events {
				if len(chains) == 0 {
					continue
				}
				f, err := os.Create(DwtPath(base, v, row, col))
				if err != nil {
					return fmt.Errorf("SaveDwt: %w: %w", err, ErrExport)
				}
				if err := WriteDwt(f, chains); err != nil {
					_ = f.Close()

					return err
				}
				if err := f.Close(); err != nil {
					return fmt.Errorf("SaveDwt: %w: %w", err, ErrExport)
				}
			}
		}
	}

	return nil
}

// Curve is one visible plot trace: paired X/Y sample columns with their
// titles.
type Curve struct {
	XTitle string
	YTitle string
	X      []float64
	Y      []float64
}

// WriteCurves writes the visible curves as tab-separated "Xtitle\tYtitle"
// column pairs with one row per sample, CRLF-terminated. Curves whose
// length differs from the first curve's are skipped, so every emitted
// column has a common sample count.
func WriteCurves(w io.Writer, curves []Curve) error {
	if len(curves) == 0 {
		return nil
	}
	numPts := len(curves[0].X)
	kept := curves[:0:0]
	for _, c := range curves {
		if len(c.X) == numPts && len(c.Y) == numPts {
			kept = append(kept, c)
		}
	}
	var sb strings.Builder
	for i, c := range kept {
		if i > 0 {
			sb.WriteByte('\t')
		}
		sb.WriteString(c.XTitle)
		sb.WriteByte('\t')
		sb.WriteString(c.YTitle)
	}
	sb.WriteString("\r\n")
	for k := 0; k < numPts; k++ {
		for i, c := range kept {
			if i > 0 {
				sb.WriteByte('\t')
			}
			fmt.Fprintf(&sb, "%g\t%g", c.X[k], c.Y[k])
		}
		sb.WriteString("\r\n")
	}
	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("WriteCurves: %w: %w", err, ErrExport)
	}

	return nil
}
