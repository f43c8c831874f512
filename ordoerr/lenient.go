package ordoerr

import "errors"

// AsFieldNotFound reports whether err is, or wraps, a FieldNotFound error —
// the one kind Lenient field-missing policy recovers from during condition
// evaluation.
func AsFieldNotFound(err error) (*FieldNotFound, bool) {
	var fnf *FieldNotFound
	if errors.As(err, &fnf) {
		return fnf, true
	}
	return nil, false
}
