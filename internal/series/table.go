package series

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"
)

// DefaultInterval is the conventional sample spacing of the process data.
const DefaultInterval = 3 * time.Minute

const timeColumn = "time_min"

var (
	ErrColumnNotFound = errors.New("column not found")
	ErrRowWidth       = errors.New("row width mismatch")
	ErrRowRange       = errors.New("row index out of range")
)

// Table is a time-indexed result table with named columns, one row per
// sample.
type Table struct {
	columns  []string
	index    map[string]int
	interval time.Duration
	rows     [][]float64
}

func New(columns []string, interval time.Duration) *Table {
	if interval <= 0 {
		interval = DefaultInterval
	}
	cols := append([]string(nil), columns...)
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		index[c] = i
	}
	return &Table{columns: cols, index: index, interval: interval}
}

func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

func (t *Table) Interval() time.Duration {
	return t.interval
}

func (t *Table) Len() int {
	return len(t.rows)
}

// Append adds one sample row. The row is copied; its width must match the
// column count.
func (t *Table) Append(row []float64) error {
	if len(row) != len(t.columns) {
		return fmt.Errorf("%w: want %d, got %d", ErrRowWidth, len(t.columns), len(row))
	}
	t.rows = append(t.rows, append([]float64(nil), row...))
	return nil
}

func (t *Table) Row(i int) ([]float64, error) {
	if i < 0 || i >= len(t.rows) {
		return nil, fmt.Errorf("%w: %d of %d", ErrRowRange, i, len(t.rows))
	}
	return append([]float64(nil), t.rows[i]...), nil
}

// Column returns the full series for one named column.
func (t *Table) Column(name string) ([]float64, error) {
	idx, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	out := make([]float64, len(t.rows))
	for i, row := range t.rows {
		out[i] = row[idx]
	}
	return out, nil
}

func (t *Table) Value(row int, name string) (float64, error) {
	idx, ok := t.index[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	if row < 0 || row >= len(t.rows) {
		return 0, fmt.Errorf("%w: %d of %d", ErrRowRange, row, len(t.rows))
	}
	return t.rows[row][idx], nil
}

// Time returns the simulated time offset of row i.
func (t *Table) Time(i int) time.Duration {
	return time.Duration(i) * t.interval
}

// WriteCSV emits the table with a leading time column in minutes.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := make([]string, 0, len(t.columns)+1)
	header = append(header, timeColumn)
	header = append(header, t.columns...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(t.columns)+1)
	for i, row := range t.rows {
		record[0] = strconv.FormatFloat(t.Time(i).Minutes(), 'g', -1, 64)
		for j, v := range row {
			record[j+1] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV rebuilds a table from WriteCSV output. The sample interval is
// recovered from the first two time values; a table with fewer than two
// rows gets the default interval.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return New(nil, DefaultInterval), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) < 1 || header[0] != timeColumn {
		return nil, fmt.Errorf("unexpected csv header: missing %s column", timeColumn)
	}

	table := New(header[1:], DefaultInterval)
	times := make([]float64, 0, 64)
	rowIndex := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", rowIndex, err)
		}
		if len(record) != len(header) {
			return nil, fmt.Errorf("%w: csv row %d has %d fields, want %d", ErrRowWidth, rowIndex, len(record), len(header))
		}
		tm, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, fmt.Errorf("parse csv time at row %d: %w", rowIndex, err)
		}
		times = append(times, tm)
		row := make([]float64, len(record)-1)
		for j, field := range record[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("parse csv value at row %d column %s: %w", rowIndex, header[j+1], err)
			}
			row[j] = v
		}
		table.rows = append(table.rows, row)
		rowIndex++
	}
	if len(times) >= 2 {
		minutes := times[1] - times[0]
		if minutes > 0 {
			table.interval = time.Duration(minutes * float64(time.Minute))
		}
	}
	return table, nil
}

// File is the JSON form of a table.
type File struct {
	Columns         []string    `json:"columns"`
	IntervalMinutes float64     `json:"interval_minutes"`
	Rows            [][]float64 `json:"rows"`
}

func (t *Table) File() File {
	rows := make([][]float64, len(t.rows))
	for i, row := range t.rows {
		rows[i] = append([]float64(nil), row...)
	}
	return File{
		Columns:         t.Columns(),
		IntervalMinutes: t.interval.Minutes(),
		Rows:            rows,
	}
}

func FromFile(f File) (*Table, error) {
	table := New(f.Columns, time.Duration(f.IntervalMinutes*float64(time.Minute)))
	for i, row := range f.Rows {
		if err := table.Append(row); err != nil {
			return nil, fmt.Errorf("file row %d: %w", i, err)
		}
	}
	return table, nil
}
