package change

import "github.com/pkg/errors"

// Sentinel causes for the two caller-correctable failure classes. Functions
// in this package wrap these with call-site context, so callers should test
// them with the predicates below rather than direct equality.
var (
	// ErrInvalidInput indicates malformed data: a series that is too
	// short, a non-finite observation, or a segment that is out of range
	// or below the minimum length its cost family supports.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidParameter indicates an out-of-domain tuning value, such
	// as a false-positive level outside (0,1), a non-positive variance,
	// or a non-positive replicate count.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// IsInvalidInput reports whether err was caused by ErrInvalidInput.
func IsInvalidInput(err error) bool {
	return errors.Cause(err) == ErrInvalidInput
}

// IsInvalidParameter reports whether err was caused by ErrInvalidParameter.
func IsInvalidParameter(err error) bool {
	return errors.Cause(err) == ErrInvalidParameter
}
