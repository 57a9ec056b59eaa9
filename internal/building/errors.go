package building

import "errors"

var (
	ErrZeroCoolingCapacity = errors.New("rated cooling capacity must be positive")
	ErrZeroHeatingCapacity = errors.New("rated heating capacity must be positive")
	ErrInvalidGeometry     = errors.New("invalid building geometry")
	ErrInvalidLeakage      = errors.New("invalid envelope leakage")
	ErrInvalidDucts        = errors.New("invalid duct description")
	ErrInvalidFan          = errors.New("invalid fan description")
	ErrEndOfFileMarker     = errors.New("end-of-file marker mismatch")
	ErrUnsupportedFormat   = errors.New("unsupported building file format")
)
