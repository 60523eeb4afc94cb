package engine

import (
	"errors"
	"fmt"
)

// Config holds the tuning constants of the evaluator. None of them are
// load-bearing for correctness; they only shift preferences between moves.
type Config struct {
	// Region quality: -size * max(bounding,1)^BoundingExponent / sqrt(heads + HeadOffset).
	BoundingExponent float64
	HeadOffset       float64
	// CompactnessDecay is the per-hop decay of a free cell's contribution to
	// Region.Compactness.
	CompactnessDecay float64

	// Territory field: each opponent multiplies a cell at distance d by
	// max(1 - FieldDecayBase^(FieldAlpha*d), FieldFloor).
	MaxFieldScore  float64
	FieldDecayBase float64
	FieldAlpha     float64
	FieldFloor     float64

	// Claim integration: scale(d) = MinScale + (MaxScale-MinScale)/(d+1)^DistanceExponent.
	MinScale         float64
	MaxScale         float64
	DistanceExponent float64
	WallFactor       float64
	HeadFactor       float64

	// Direct score weights.
	HeadProximityWeight float64
	ClaimWeight         float64
	CompactnessWeight   float64

	// WallHeadThreshold is the hop distance within which hugging an opponent
	// trail is discouraged.
	WallHeadThreshold int
}

// DefaultConfig returns the tuned constants.
func DefaultConfig() Config {
	return Config{
		BoundingExponent: 0.25,
		HeadOffset:       1.0,
		CompactnessDecay: 0.75,

		MaxFieldScore:  1.0,
		FieldDecayBase: 0.4,
		FieldAlpha:     0.6,
		FieldFloor:     0.05,

		MinScale:         0.9,
		MaxScale:         1.0,
		DistanceExponent: 0.6,
		WallFactor:       0.95,
		HeadFactor:       0.85,

		HeadProximityWeight: 1.0,
		ClaimWeight:         1.0 / 50.0,
		CompactnessWeight:   1.0 / 20.0,

		WallHeadThreshold: 4,
	}
}

// Validate rejects constants that would break the evaluator's numeric
// guarantees (field values in (0,1], finite region quality).
func (c Config) Validate() error {
	var errs []error
	inUnit := func(name string, v float64) {
		if !(v > 0 && v < 1) {
			errs = append(errs, fmt.Errorf("%s=%v must be in (0,1)", name, v))
		}
	}
	inUnit("compactness decay", c.CompactnessDecay)
	inUnit("field decay base", c.FieldDecayBase)
	inUnit("field floor", c.FieldFloor)
	if !(c.MaxFieldScore > 0 && c.MaxFieldScore <= 1) {
		errs = append(errs, fmt.Errorf("max field score=%v must be in (0,1]", c.MaxFieldScore))
	}
	if !(c.FieldAlpha > 0) {
		errs = append(errs, fmt.Errorf("field alpha=%v must be positive", c.FieldAlpha))
	}
	if !(c.HeadOffset > 0) {
		errs = append(errs, fmt.Errorf("head offset=%v must be positive", c.HeadOffset))
	}
	if c.MinScale < 0 || c.MaxScale < c.MinScale {
		errs = append(errs, fmt.Errorf("scale range [%v,%v] is invalid", c.MinScale, c.MaxScale))
	}
	for name, v := range map[string]float64{
		"bounding exponent":     c.BoundingExponent,
		"distance exponent":     c.DistanceExponent,
		"wall factor":           c.WallFactor,
		"head factor":           c.HeadFactor,
		"head proximity weight": c.HeadProximityWeight,
		"claim weight":          c.ClaimWeight,
		"compactness weight":    c.CompactnessWeight,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s=%v must not be negative", name, v))
		}
	}
	if c.WallHeadThreshold < 0 {
		errs = append(errs, fmt.Errorf("wall head threshold=%d must not be negative", c.WallHeadThreshold))
	}
	return errors.Join(errs...)
}
