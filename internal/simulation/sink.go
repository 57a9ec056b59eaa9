package simulation

import "context"

// Sink receives the records of a run. Errors abort the run.
type Sink interface {
	Minute(r *MinuteRecord) error
	Filter(r FilterRecord) error
	Summary(s AnnualSummary) error
}

// Gate is consulted before every simulated minute. Wait blocks while the run
// is paused and returns the context error when cancelled.
type Gate interface {
	Wait(ctx context.Context) error
}

type discard struct{}

func (discard) Minute(*MinuteRecord) error  { return nil }
func (discard) Filter(FilterRecord) error   { return nil }
func (discard) Summary(AnnualSummary) error { return nil }

// MultiSink forwards every record to each sink in order.
type MultiSink []Sink

func (m MultiSink) Minute(r *MinuteRecord) error {
	for _, s := range m {
		if err := s.Minute(r); err != nil {
			return err
		}
	}
	return nil
}

func (m MultiSink) Filter(r FilterRecord) error {
	for _, s := range m {
		if err := s.Filter(r); err != nil {
			return err
		}
	}
	return nil
}

func (m MultiSink) Summary(r AnnualSummary) error {
	for _, s := range m {
		if err := s.Summary(r); err != nil {
			return err
		}
	}
	return nil
}
