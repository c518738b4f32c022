package invocation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownVerbosity is returned by ParseVerbosity for unrecognized names.
var ErrUnknownVerbosity = errors.New("invocation: unknown verbosity")

// Verbosity controls how much detail a command prints to its console.
type Verbosity int

// Verbosity levels, from quietest to loudest.
const (
	VerbositySilent Verbosity = iota
	VerbosityBinaryOutputs
	VerbosityCompact
	VerbosityStandardInformation
	VerbosityAll
)

var verbosityNames = map[Verbosity]string{
	VerbositySilent:              "silent",
	VerbosityBinaryOutputs:       "binary_outputs",
	VerbosityCompact:             "compact",
	VerbosityStandardInformation: "standard_information",
	VerbosityAll:                 "all",
}

// String returns the configuration name of the verbosity.
func (v Verbosity) String() string {
	if name, ok := verbosityNames[v]; ok {
		return name
	}
	return fmt.Sprintf("verbosity(%d)", int(v))
}

// IsMaximal reports whether the console should receive every log record.
func (v Verbosity) IsMaximal() bool {
	return v == VerbosityAll
}

// ParseVerbosity converts a configuration name to a Verbosity.
// Empty input yields VerbosityStandardInformation.
func ParseVerbosity(s string) (Verbosity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "standard_information":
		return VerbosityStandardInformation, nil
	case "silent":
		return VerbositySilent, nil
	case "binary_outputs":
		return VerbosityBinaryOutputs, nil
	case "compact":
		return VerbosityCompact, nil
	case "all":
		return VerbosityAll, nil
	default:
		return VerbositySilent, fmt.Errorf("%w: %q", ErrUnknownVerbosity, s)
	}
}
