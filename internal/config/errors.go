package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Configuration errors.
var (
	ErrUnsupportedFormat = errors.New("config: unsupported config file format")
	ErrWatcherClosed     = errors.New("config: watcher already closed")
)

// InvalidSetting names one rejected config key.
type InvalidSetting struct {
	Key     string
	Problem string
}

// ValidationError lists every setting Validate rejected, in file order.
type ValidationError struct {
	Settings []InvalidSetting
}

func (e *ValidationError) Error() string {
	parts := lo.Map(e.Settings, func(s InvalidSetting, _ int) string {
		return s.Key + ": " + s.Problem
	})
	return fmt.Sprintf("config: %d invalid setting(s): %s", len(parts), strings.Join(parts, "; "))
}

// Keys returns the rejected keys.
func (e *ValidationError) Keys() []string {
	return lo.Map(e.Settings, func(s InvalidSetting, _ int) string { return s.Key })
}

func (e *ValidationError) reject(key, format string, args ...any) {
	e.Settings = append(e.Settings, InvalidSetting{Key: key, Problem: fmt.Sprintf(format, args...)})
}
