package report

import "errors"

var (
	ErrValidation     = errors.New("validation_error")
	ErrNotFound       = errors.New("not_found")
	ErrAlreadyExists  = errors.New("report_already_exists")
	ErrNotYetUploaded = errors.New("report_not_uploaded")
)
