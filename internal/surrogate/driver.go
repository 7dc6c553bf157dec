package surrogate

import (
	"eidolon/internal/process"
	"eidolon/internal/series"
)

// Driver runs the model across a disturbance schedule and assembles the
// named-column result table. The model's carried state survives across Run
// calls, so successive requests continue the same session; the fault ramp
// restarts with each request.
type Driver struct {
	model *Model
}

func NewDriver(seed int64) *Driver {
	return &Driver{model: New(seed)}
}

// Reset drops the session state without reseeding the noise source.
func (d *Driver) Reset() {
	d.model.Reset()
}

// Run produces one table row per disturbance row, holding mv constant for
// the whole call. An empty schedule yields an empty table.
func (d *Driver) Run(schedule [][]float64, mv []float64) (*series.Table, error) {
	if err := process.ValidateManipulated(mv); err != nil {
		return nil, err
	}
	if err := process.ValidateDisturbanceMatrix(schedule); err != nil {
		return nil, err
	}

	table := series.New(process.ChannelCodes(), series.DefaultInterval)
	for i, idv := range schedule {
		row, err := d.model.Step(mv, idv, i)
		if err != nil {
			return nil, err
		}
		if err := table.Append(row); err != nil {
			return nil, err
		}
	}
	return table, nil
}
