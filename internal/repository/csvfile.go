package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"PumpWatch/internal/domain/models"
	"PumpWatch/pkg/util"
)

// readCSV returns the rows of path keyed by its header. A missing file yields os.ErrNotExist.
func readCSV(path string) ([]csvRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header %s: %w", path, err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}

	var out []csvRow
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s line %d: %w", path, line, err)
		}
		out = append(out, csvRow{idx: idx, vals: rec, line: line})
	}
	return out, nil
}

// writeCSVAtomic writes header and rows to a temp file in the same directory and renames it over path.
func writeCSVAtomic(path string, header []string, rows [][]string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write csv rows: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// csvRow reads typed cells by column name. Parse failures accumulate in err.
type csvRow struct {
	idx  map[string]int
	vals []string
	line int
	err  error
}

func (r *csvRow) str(col string) string {
	i, ok := r.idx[col]
	if !ok || i >= len(r.vals) {
		return ""
	}
	return r.vals[i]
}

func (r *csvRow) fail(col string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("line %d column %s: %w", r.line, col, err)
	}
}

func (r *csvRow) float(col string) float64 {
	v, err := models.ParseNullFloat(r.str(col))
	if err != nil {
		r.fail(col, err)
	}
	return v.Float64
}

func (r *csvRow) nullFloat(col string) models.NullFloat {
	v, err := models.ParseNullFloat(r.str(col))
	if err != nil {
		r.fail(col, err)
	}
	return v
}

func (r *csvRow) int(col string) int {
	v, err := models.ParseNullInt(r.str(col))
	if err != nil {
		r.fail(col, err)
	}
	return v.Int
}

func (r *csvRow) nullInt(col string) models.NullInt {
	v, err := models.ParseNullInt(r.str(col))
	if err != nil {
		r.fail(col, err)
	}
	return v
}

func (r *csvRow) date(col string) time.Time {
	s := r.str(col)
	if s == "" {
		return time.Time{}
	}
	t, ok := util.ParseDate(s)
	if !ok {
		r.fail(col, fmt.Errorf("invalid date %q", s))
	}
	return t
}

func fmtFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
func fmtInt(v int) string       { return strconv.Itoa(v) }
