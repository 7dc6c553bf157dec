package process

import (
	"errors"
	"fmt"
)

var (
	ErrManipulatedLength = errors.New("manipulated vector length mismatch")
	ErrDisturbanceLength = errors.New("disturbance vector length mismatch")
)

// ValidateManipulated checks the shape of a manipulated-variable vector.
// Values are not range-checked; misaligned lengths would corrupt coefficient
// lookups, so only length is enforced.
func ValidateManipulated(mv []float64) error {
	if len(mv) != ManipulatedCount {
		return fmt.Errorf("%w: want %d, got %d", ErrManipulatedLength, ManipulatedCount, len(mv))
	}
	return nil
}

// ValidateDisturbance checks the shape of a disturbance vector.
func ValidateDisturbance(idv []float64) error {
	if len(idv) != DisturbanceCount {
		return fmt.Errorf("%w: want %d, got %d", ErrDisturbanceLength, DisturbanceCount, len(idv))
	}
	return nil
}

// ValidateDisturbanceMatrix checks every row of a disturbance matrix,
// identifying the first offending row on failure. An empty matrix is valid.
func ValidateDisturbanceMatrix(rows [][]float64) error {
	for i, row := range rows {
		if len(row) != DisturbanceCount {
			return fmt.Errorf("%w: row %d has %d columns, want %d", ErrDisturbanceLength, i, len(row), DisturbanceCount)
		}
	}
	return nil
}
