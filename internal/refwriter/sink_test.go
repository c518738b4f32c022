package refwriter_test

import (
	"bytes"
	"errors"
	"sync"
)

// recordingSink is a Sink that counts flushes and closes.
type recordingSink struct {
	buf      bytes.Buffer
	closeErr error
	flushes  int
	closes   int
	mu       sync.Mutex
}

func (s *recordingSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closes > 0 {
		return 0, errors.New("write after close")
	}
	return s.buf.Write(p)
}

func (s *recordingSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return s.closeErr
}

func (s *recordingSink) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

func (s *recordingSink) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}
