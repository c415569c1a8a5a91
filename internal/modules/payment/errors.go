package payment

import "errors"

var (
	ErrSignatureMismatch = errors.New("invalid payment signature")
	ErrNoOpenOrder       = errors.New("no open gateway order for phase")
	ErrFakeDisabled      = errors.New("fake payment is disabled")
	ErrNotFound          = errors.New("not_found")
	ErrForbidden         = errors.New("forbidden")
)
