package spectra

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Fiducial spectra file names shipped with the toolkit, CAMB column format.
const (
	LensPotentialFile = "fiducial_flatsky_lenspotentialCls.dat"
	LensedFile        = "fiducial_flatsky_lensedCls.dat"
	FieldRotationFile = "fiducial_fieldrotationCls.dat"
	TensorFile        = "fiducial_tensCls.dat"
)

// ParseCAMB reads a plain-text CAMB spectra table: a header line starting
// with '#' naming the columns (L first), followed by whitespace-separated
// rows. CAMB tabulates D_ell = ell(ell+1) C_ell / 2π for the TT/EE/BB/TE
// columns and [ell(ell+1)]² C_ell / 2π for the deflection (PP) column; the
// returned Cls are raw C_ell, zero-padded below the first tabulated row.
func ParseCAMB(r io.Reader) (*Cls, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1<<16), 1<<22)

	var cols []string
	type row struct {
		ell  int
		vals []float64
	}
	var rows []row
	lmax := 0
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if cols == nil {
				cols = strings.Fields(strings.TrimLeft(line, "# "))
			}
			continue
		}
		fields := strings.Fields(line)
		if cols == nil {
			return nil, fmt.Errorf("spectra: missing '#' header naming columns")
		}
		if len(fields) != len(cols) {
			return nil, fmt.Errorf("spectra: row has %d columns, header names %d", len(fields), len(cols))
		}
		ell, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("spectra: bad multipole %q: %w", fields[0], err)
		}
		vals := make([]float64, len(fields)-1)
		for i, f := range fields[1:] {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("spectra: bad value %q at L=%d: %w", f, ell, err)
			}
			vals[i] = v
		}
		rows = append(rows, row{ell: ell, vals: vals})
		if ell > lmax {
			lmax = ell
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("spectra: scan: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("spectra: empty table")
	}
	if !strings.EqualFold(cols[0], "l") {
		return nil, fmt.Errorf("spectra: first column is %q, want L", cols[0])
	}

	out := &Cls{}
	dest := func(name string) *[]float64 {
		switch strings.ToLower(name) {
		case "tt":
			return &out.TT
		case "ee":
			return &out.EE
		case "bb":
			return &out.BB
		case "te":
			return &out.TE
		case "pp", "dd":
			return &out.PP
		case "oo":
			return &out.OO
		default:
			return nil // unknown cross spectra (dT, dE, ...) are skipped
		}
	}
	for ci, name := range cols[1:] {
		slot := dest(name)
		if slot == nil {
			continue
		}
		cl := make([]float64, lmax+1)
		lower := strings.ToLower(name)
		for _, rw := range rows {
			l := float64(rw.ell)
			v := rw.vals[ci]
			switch lower {
			case "pp", "dd":
				if rw.ell > 0 {
					v *= 2 * math.Pi / (l * l * (l + 1) * (l + 1))
				}
			case "oo":
				// field rotation spectra are tabulated raw
			default:
				if rw.ell > 0 {
					v *= 2 * math.Pi / (l * (l + 1))
				}
			}
			cl[rw.ell] = v
		}
		*slot = cl
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadCAMB parses the named spectra file.
func LoadCAMB(path string) (*Cls, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("spectra: %w", err)
	}
	defer f.Close()
	cls, err := ParseCAMB(f)
	if err != nil {
		return nil, fmt.Errorf("spectra: %s: %w", filepath.Base(path), err)
	}
	return cls, nil
}

// LoadRotation reads a field-rotation spectrum: one raw C_ell per line,
// starting at L=0, comments allowed.
func LoadRotation(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("spectra: %w", err)
	}
	defer f.Close()
	var cl []float64
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		v, err := strconv.ParseFloat(strings.Fields(line)[0], 64)
		if err != nil {
			return nil, fmt.Errorf("spectra: %s: bad value %q: %w", filepath.Base(path), line, err)
		}
		cl = append(cl, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("spectra: %s: %w", filepath.Base(path), err)
	}
	return cl, nil
}
