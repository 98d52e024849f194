package workflows

import (
	"fmt"
	"slices"
)

// HRFModels lists the hemodynamic response models the beta-series step accepts.
var HRFModels = []string{
	"glover",
	"glover + derivative",
	"glover + derivative + dispersion",
	"spm",
	"spm + derivative",
	"spm + derivative + dispersion",
	"fir",
}

// Params are the processing parameters handed to every node.
type Params struct {
	HRFModel string
	// SliceTimeRef is the fraction of the repetition time used as the
	// reference slice during slice timing correction.
	SliceTimeRef float64
	// OMPNThreads is the most threads a single node may use.
	OMPNThreads int
}

// DefaultParams matches the defaults of the command line.
func DefaultParams() Params {
	return Params{HRFModel: "glover", SliceTimeRef: 0.5, OMPNThreads: 1}
}

// Validate reports the first out-of-range parameter.
func (p Params) Validate() error {
	if !slices.Contains(HRFModels, p.HRFModel) {
		return fmt.Errorf("unsupported hrf model %q", p.HRFModel)
	}
	if p.SliceTimeRef < 0 || p.SliceTimeRef > 1 {
		return fmt.Errorf("slice time reference must be between 0 and 1, got %g", p.SliceTimeRef)
	}
	if p.OMPNThreads < 1 {
		return fmt.Errorf("omp thread budget must be at least 1, got %d", p.OMPNThreads)
	}
	return nil
}
