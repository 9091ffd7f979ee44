package ugen

import "fmt"

// Rate is the update frequency class of a signal
type Rate uint8

const (
	// Scalar signals are computed once when the synth starts
	Scalar Rate = iota
	// Control signals are computed once per block
	Control
	// Audio signals are computed once per sample
	Audio
	// Demand signals are computed when a consumer pulls them
	Demand
)

// String returns the lower-case rate name
func (r Rate) String() string {
	switch r {
	case Scalar:
		return "scalar"
	case Control:
		return "control"
	case Audio:
		return "audio"
	case Demand:
		return "demand"
	default:
		return fmt.Sprintf("rate(%d)", uint8(r))
	}
}

// Valid reports whether r is one of the four known rates
func (r Rate) Valid() bool {
	return r <= Demand
}

// ParseRate converts a rate name to a Rate. The short forms used by
// client languages (ir, kr, ar, dr) are accepted as well.
func ParseRate(s string) (Rate, error) {
	switch s {
	case "scalar", "ir", "SCALAR":
		return Scalar, nil
	case "control", "kr", "CONTROL":
		return Control, nil
	case "audio", "ar", "AUDIO":
		return Audio, nil
	case "demand", "dr", "DEMAND":
		return Demand, nil
	default:
		return Scalar, fmt.Errorf("unknown rate %q", s)
	}
}
