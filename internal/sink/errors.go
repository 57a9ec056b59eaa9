package sink

import "errors"

var (
	ErrNoTopic   = errors.New("sink: kafka topic is required")
	ErrNoBrokers = errors.New("sink: at least one kafka broker is required")
)
