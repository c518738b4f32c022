package routing

import "github.com/michsien/buck/internal/refwriter"

// UnwrapLogWriter returns the reference behind a resolved writer (for testing).
func UnwrapLogWriter(w Writer) *refwriter.Reference {
	if lw, ok := w.(logWriter); ok {
		return lw.ref
	}
	return nil
}
