package status

import "errors"

var ErrNoSummary = errors.New("no annual summary yet")
