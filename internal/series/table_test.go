package series

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func sampleTable(t *testing.T) *Table {
	t.Helper()
	table := New([]string{"XMEAS(1)", "XMEAS(2)", "XMV(1)"}, DefaultInterval)
	rows := [][]float64{
		{0.25, 3664.0, 63.053},
		{0.26, 3668.5, 63.053},
		{0.24, 3659.25, 63.053},
	}
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	return table
}

func TestAppendRejectsWidthMismatch(t *testing.T) {
	table := New([]string{"a", "b"}, DefaultInterval)
	if err := table.Append([]float64{1, 2, 3}); !errors.Is(err, ErrRowWidth) {
		t.Fatalf("expected ErrRowWidth, got %v", err)
	}
	if table.Len() != 0 {
		t.Fatalf("rejected row was stored: %d", table.Len())
	}
}

func TestRowAndColumnAccess(t *testing.T) {
	table := sampleTable(t)

	row, err := table.Row(1)
	if err != nil {
		t.Fatalf("row: %v", err)
	}
	if row[1] != 3668.5 {
		t.Fatalf("row value: %v", row[1])
	}
	row[1] = 0
	again, err := table.Row(1)
	if err != nil {
		t.Fatalf("row again: %v", err)
	}
	if again[1] != 3668.5 {
		t.Fatal("row returned aliased storage")
	}

	col, err := table.Column("XMEAS(2)")
	if err != nil {
		t.Fatalf("column: %v", err)
	}
	if len(col) != 3 || col[2] != 3659.25 {
		t.Fatalf("column values: %v", col)
	}

	if _, err := table.Column("XMEAS(99)"); !errors.Is(err, ErrColumnNotFound) {
		t.Fatalf("expected ErrColumnNotFound, got %v", err)
	}
	if _, err := table.Row(3); !errors.Is(err, ErrRowRange) {
		t.Fatalf("expected ErrRowRange, got %v", err)
	}
	if _, err := table.Value(0, "nope"); !errors.Is(err, ErrColumnNotFound) {
		t.Fatalf("expected ErrColumnNotFound, got %v", err)
	}
}

func TestTimeIndex(t *testing.T) {
	table := sampleTable(t)
	if got := table.Time(0); got != 0 {
		t.Fatalf("time 0: %v", got)
	}
	if got := table.Time(2); got != 6*time.Minute {
		t.Fatalf("time 2: %v", got)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	table := sampleTable(t)

	var buf bytes.Buffer
	if err := table.WriteCSV(&buf); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	back, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if back.Len() != table.Len() {
		t.Fatalf("round-trip rows: want %d, got %d", table.Len(), back.Len())
	}
	if back.Interval() != DefaultInterval {
		t.Fatalf("round-trip interval: %v", back.Interval())
	}
	wantCols := table.Columns()
	gotCols := back.Columns()
	for i := range wantCols {
		if wantCols[i] != gotCols[i] {
			t.Fatalf("column %d: want %s, got %s", i, wantCols[i], gotCols[i])
		}
	}
	for i := 0; i < table.Len(); i++ {
		want, _ := table.Row(i)
		got, _ := back.Row(i)
		for j := range want {
			if want[j] != got[j] {
				t.Fatalf("row %d col %d: want %v, got %v", i, j, want[j], got[j])
			}
		}
	}
}

func TestCSVEmptyTable(t *testing.T) {
	table := New([]string{"XMEAS(1)"}, DefaultInterval)
	var buf bytes.Buffer
	if err := table.WriteCSV(&buf); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	back, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if back.Len() != 0 {
		t.Fatalf("expected empty table, got %d rows", back.Len())
	}
}

func TestReadCSVRejectsMalformedInput(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("not_time,XMEAS(1)\n0,1\n")); err == nil {
		t.Fatal("expected header rejection")
	}
	if _, err := ReadCSV(strings.NewReader("time_min,XMEAS(1)\n0,abc\n")); err == nil {
		t.Fatal("expected value parse error")
	}
}

func TestFileRoundTrip(t *testing.T) {
	table := sampleTable(t)
	file := table.File()
	if file.IntervalMinutes != 3 {
		t.Fatalf("interval minutes: %v", file.IntervalMinutes)
	}

	back, err := FromFile(file)
	if err != nil {
		t.Fatalf("from file: %v", err)
	}
	if back.Len() != table.Len() || back.Interval() != table.Interval() {
		t.Fatalf("round-trip mismatch: %d rows interval %v", back.Len(), back.Interval())
	}
	v, err := back.Value(2, "XMEAS(2)")
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if v != 3659.25 {
		t.Fatalf("round-trip value: %v", v)
	}

	file.Rows = append(file.Rows, []float64{1})
	if _, err := FromFile(file); !errors.Is(err, ErrRowWidth) {
		t.Fatalf("expected ErrRowWidth, got %v", err)
	}
}
