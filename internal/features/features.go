package features

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"eidolon/internal/process"
	"eidolon/internal/series"
)

// ChannelFeatures summarizes one measurement channel over a run. Slope is
// the fitted linear trend per minute of simulated time. DeviationPercent is
// the final-row deviation relative to the channel baseline, or the absolute
// deviation for channels without one.
type ChannelFeatures struct {
	Code             string  `json:"code"`
	Name             string  `json:"name"`
	Mean             float64 `json:"mean"`
	StdDev           float64 `json:"std_dev"`
	Min              float64 `json:"min"`
	Max              float64 `json:"max"`
	Slope            float64 `json:"slope_per_min"`
	FinalDeviation   float64 `json:"final_deviation"`
	DeviationPercent float64 `json:"deviation_percent"`
}

// Vector is the feature payload handed to the external analysis
// collaborator: one entry per measurement channel, in channel order.
type Vector struct {
	Samples  int               `json:"samples"`
	Channels []ChannelFeatures `json:"channels"`
}

// Extract computes the feature vector for a completed run table. An empty
// table yields an empty vector; degenerate statistics (single sample, flat
// series) come back as zeros rather than NaN.
func Extract(table *series.Table) (Vector, error) {
	if table == nil {
		return Vector{}, fmt.Errorf("nil table")
	}
	n := table.Len()
	if n == 0 {
		return Vector{}, nil
	}

	times := make([]float64, n)
	for i := range times {
		times[i] = table.Time(i).Minutes()
	}

	channels := make([]ChannelFeatures, 0, process.MeasurementCount)
	for m := 0; m < process.MeasurementCount; m++ {
		spec, err := process.MeasurementSpec(m)
		if err != nil {
			return Vector{}, err
		}
		values, err := table.Column(spec.Code)
		if err != nil {
			return Vector{}, fmt.Errorf("extract %s: %w", spec.Code, err)
		}
		channels = append(channels, summarize(spec, times, values))
	}
	return Vector{Samples: n, Channels: channels}, nil
}

func summarize(spec process.ChannelSpec, times, values []float64) ChannelFeatures {
	f := ChannelFeatures{
		Code: spec.Code,
		Name: spec.Name,
		Mean: stat.Mean(values, nil),
		Min:  values[0],
		Max:  values[0],
	}
	for _, v := range values {
		if v < f.Min {
			f.Min = v
		}
		if v > f.Max {
			f.Max = v
		}
	}
	if len(values) > 1 {
		f.StdDev = stat.StdDev(values, nil)
		_, f.Slope = stat.LinearRegression(times, values, nil, false)
	}
	if !finite(f.StdDev) {
		f.StdDev = 0
	}
	if !finite(f.Slope) {
		f.Slope = 0
	}

	f.FinalDeviation = values[len(values)-1] - spec.Baseline
	if spec.Baseline != 0 {
		f.DeviationPercent = 100 * f.FinalDeviation / spec.Baseline
	} else {
		f.DeviationPercent = f.FinalDeviation
	}
	return f
}

// RankByDeviation orders a copy of the vector's channels by deviation
// magnitude, largest first. Ties keep channel order.
func RankByDeviation(v Vector) []ChannelFeatures {
	ranked := append([]ChannelFeatures(nil), v.Channels...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return math.Abs(ranked[i].DeviationPercent) > math.Abs(ranked[j].DeviationPercent)
	})
	return ranked
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
