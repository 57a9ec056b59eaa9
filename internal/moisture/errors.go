package moisture

import "errors"

var (
	ErrInvalidParams = errors.New("invalid moisture parameters")
	ErrSingular      = errors.New("moisture system is singular")
)
