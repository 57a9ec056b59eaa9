package ventilation

import "errors"

var (
	ErrUnknownRole    = errors.New("unknown fan role")
	ErrInvalidControl = errors.New("invalid ventilation control")
	ErrInvalidParams  = errors.New("invalid ventilation parameters")
)
