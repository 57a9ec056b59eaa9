package thermal

import "errors"

var (
	ErrInvalidModel = errors.New("invalid thermal model geometry")
	ErrSingular     = errors.New("thermal system is singular")
)
