package globalstate

import "errors"

// ResetDefault clears the process-wide manager (for testing).
func ResetDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultManager = nil
}

// DefaultLogPath returns the path of the current default log file (for testing).
func (m *Manager) DefaultLogPath() string {
	return m.files.DefaultPath().OrEmpty()
}

// DrainLogFiles empties the log-file table without marking the manager shut
// down, reproducing the moment inside Shutdown between the flag and the sweep.
func (m *Manager) DrainLogFiles() error {
	var errs []error
	for _, ref := range m.files.Drain() {
		errs = append(errs, ref.Close())
	}
	return errors.Join(errs...)
}
