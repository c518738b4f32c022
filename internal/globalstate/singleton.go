package globalstate

import (
	"errors"
	"sync"
)

// ErrAlreadyInitialized is returned when Init is called twice.
var ErrAlreadyInitialized = errors.New("globalstate: already initialized")

var (
	defaultMu      sync.RWMutex
	defaultManager *Manager
)

// Init creates the process-wide Manager returned by Default.
// New code should receive a *Manager explicitly; Default exists for call
// sites that cannot.
func Init(opts ...Option) (*Manager, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultManager != nil {
		return defaultManager, ErrAlreadyInitialized
	}

	m, err := New(opts...)
	if err != nil {
		return nil, err
	}
	defaultManager = m
	return m, nil
}

// Default returns the Manager created by Init, or nil before Init.
func Default() *Manager {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultManager
}
