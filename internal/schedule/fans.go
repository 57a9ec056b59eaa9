package schedule

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// FanFlags are the scheduled auxiliary fans for one minute.
type FanFlags struct {
	Dryer   bool
	Kitchen bool
	Bath1   bool
	Bath2   bool
	Bath3   bool
}

// FanSchedule streams one row of five 0/1 flags per minute.
type FanSchedule interface {
	Next() (FanFlags, error)
	Close() error
}

type fanFile struct {
	f  *os.File
	sc *bufio.Scanner
	n  int
}

// OpenFanSchedule opens a minute fan schedule. An empty path yields a
// schedule with every fan off.
func OpenFanSchedule(path string) (FanSchedule, error) {
	if path == "" {
		return NoFans{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fan schedule %s: %w", path, err)
	}
	return &fanFile{f: f, sc: bufio.NewScanner(f)}, nil
}

// NewFanSchedule reads flags from r.
func NewFanSchedule(r io.Reader) FanSchedule {
	return &fanFile{sc: bufio.NewScanner(r)}
}

func (s *fanFile) Next() (FanFlags, error) {
	v, err := fields(s.sc, 5)
	if err != nil {
		return FanFlags{}, fmt.Errorf("fan schedule minute %d: %w", s.n, err)
	}
	s.n++
	return FanFlags{Dryer: v[0] != 0, Kitchen: v[1] != 0, Bath1: v[2] != 0, Bath2: v[3] != 0, Bath3: v[4] != 0}, nil
}

func (s *fanFile) Close() error {
	if s.f == nil {
		return nil
	}
	return s.f.Close()
}

// NoFans is a schedule with every auxiliary fan off.
type NoFans struct{}

func (NoFans) Next() (FanFlags, error) { return FanFlags{}, nil }
func (NoFans) Close() error            { return nil }
