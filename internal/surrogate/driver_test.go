package surrogate

import (
	"errors"
	"math"
	"testing"

	"eidolon/internal/process"
)

func constantSchedule(n int, faultIndex int, intensity float64) [][]float64 {
	rows := make([][]float64, n)
	for i := range rows {
		row := make([]float64, process.DisturbanceCount)
		if faultIndex >= 0 {
			row[faultIndex] = intensity
		}
		rows[i] = row
	}
	return rows
}

func TestDriverRunShape(t *testing.T) {
	d := NewDriver(1)
	table, err := d.Run(constantSchedule(7, -1, 0), process.DefaultManipulated())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if table.Len() != 7 {
		t.Fatalf("row count: want 7, got %d", table.Len())
	}
	columns := table.Columns()
	if len(columns) != process.SlotCount {
		t.Fatalf("column count: want %d, got %d", process.SlotCount, len(columns))
	}
	if columns[0] != "XMEAS(1)" || columns[len(columns)-1] != "XMV(11)" {
		t.Fatalf("column order: first %s, last %s", columns[0], columns[len(columns)-1])
	}
}

func TestDriverRunEmptySchedule(t *testing.T) {
	d := NewDriver(1)
	table, err := d.Run(nil, process.DefaultManipulated())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if table.Len() != 0 {
		t.Fatalf("expected empty table, got %d rows", table.Len())
	}
}

func TestDriverRunRejectsBadShapes(t *testing.T) {
	d := NewDriver(1)

	schedule := constantSchedule(3, -1, 0)
	schedule[1] = make([]float64, 19)
	if _, err := d.Run(schedule, process.DefaultManipulated()); !errors.Is(err, process.ErrDisturbanceLength) {
		t.Fatalf("expected ErrDisturbanceLength, got %v", err)
	}

	if _, err := d.Run(constantSchedule(3, -1, 0), make([]float64, 5)); !errors.Is(err, process.ErrManipulatedLength) {
		t.Fatalf("expected ErrManipulatedLength, got %v", err)
	}
}

func TestNormalOperationHoldsReactorPressure(t *testing.T) {
	d := NewDriver(5)
	table, err := d.Run(constantSchedule(5, -1, 0), process.DefaultManipulated())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	baseline := process.MeasurementBaseline(6)
	pressure, err := table.Column("XMEAS(7)")
	if err != nil {
		t.Fatalf("column: %v", err)
	}
	for i, v := range pressure {
		if math.Abs(v-baseline) > 0.05*baseline {
			t.Fatalf("row %d reactor pressure strayed: baseline %v, got %v", i, baseline, v)
		}
	}
}

func TestFaultRampVisibleAcrossRun(t *testing.T) {
	d := NewDriver(9)
	table, err := d.Run(constantSchedule(7, 5, 1.0), process.DefaultManipulated())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	baseline := process.MeasurementBaseline(0)
	feed, err := table.Column("XMEAS(1)")
	if err != nil {
		t.Fatalf("column: %v", err)
	}
	first := math.Abs(feed[0] - baseline)
	last := math.Abs(feed[6] - baseline)
	if last <= first {
		t.Fatalf("fault effect did not grow: first %v, last %v", first, last)
	}
}

func TestManipulatedStepConvergesToLinearEffect(t *testing.T) {
	d := NewDriver(13)
	mv := process.DefaultManipulated()
	mv[0] = 90.0
	table, err := d.Run(constantSchedule(30, -1, 0), mv)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	expected := ManipulatedCoefficient(0, 1) * (mv[0] - mvDefaults[0]) / 100.0
	got, err := table.Value(29, "XMEAS(2)")
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	deviation := got - process.MeasurementBaseline(1)
	if math.Abs(deviation-expected) > 0.1*math.Abs(expected) {
		t.Fatalf("D feed deviation: want about %v, got %v", expected, deviation)
	}
}

func TestStateCarriesAcrossRuns(t *testing.T) {
	d := NewDriver(17)
	if _, err := d.Run(constantSchedule(3, 5, 1.0), process.DefaultManipulated()); err != nil {
		t.Fatalf("first run: %v", err)
	}

	table, err := d.Run(constantSchedule(1, -1, 0), process.DefaultManipulated())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	baseline := process.MeasurementBaseline(0)
	v, err := table.Value(0, "XMEAS(1)")
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if v > baseline-0.03 {
		t.Fatalf("carried fault depression lost: baseline %v, got %v", baseline, v)
	}
}
