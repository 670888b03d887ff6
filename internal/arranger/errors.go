package arranger

import "errors"

// Fatal input errors. Generate returns these before producing any notes.
var (
	ErrRootOutOfRange     = errors.New("root pitch out of range [0,127]")
	ErrEmptyTheory        = errors.New("theory has no genres")
	ErrUnknownMode        = errors.New("unknown scale mode")
	ErrEmptyStructure     = errors.New("empty song structure")
	ErrInvalidTempo       = errors.New("tempo out of range")
	ErrUnknownCompPattern = errors.New("unknown comp pattern")
	ErrUnknownProgression = errors.New("unknown progression")
	ErrUnknownDynamics    = errors.New("unknown dynamics marking")
	ErrInvalidInversion   = errors.New("inversion must not be negative")
	ErrInvalidBars        = errors.New("bar count out of range")
	ErrNilRand            = errors.New("random source is required")
)

// IsInvalidInput reports whether err was caused by the caller's request
// rather than by the arranger itself.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrRootOutOfRange) ||
		errors.Is(err, ErrUnknownMode) ||
		errors.Is(err, ErrEmptyStructure) ||
		errors.Is(err, ErrInvalidTempo) ||
		errors.Is(err, ErrUnknownCompPattern) ||
		errors.Is(err, ErrUnknownProgression) ||
		errors.Is(err, ErrUnknownDynamics) ||
		errors.Is(err, ErrInvalidInversion) ||
		errors.Is(err, ErrInvalidBars)
}
