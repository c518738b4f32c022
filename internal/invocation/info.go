// Package invocation describes one command invocation: the identifiers that
// join its routing entries and the log paths derived from its log root.
package invocation

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// DefaultLogRoot is where invocation log directories go when no log root is configured.
const DefaultLogRoot = "buck-out/log"

// LogFileName is the file name of every invocation's log inside its log directory.
const LogFileName = "buck.log"

// LaunchCommand is the sub-command name used for the log opened at process start.
const LaunchCommand = "launch"

// dirTimeFormat renders the invocation start time in log directory names.
const dirTimeFormat = "2006-01-02_15h04m05s"

// Info identifies a command invocation.
// CommandID is the join key for all routing tables.
type Info struct {
	StartedAt  time.Time
	CommandID  string
	BuildID    string
	SubCommand string
	LogRoot    string
}

// New creates an Info with fresh command and build identifiers.
func New(subCommand, logRoot string) Info {
	return Info{
		CommandID:  uuid.NewString(),
		BuildID:    NewBuildID(),
		SubCommand: subCommand,
		LogRoot:    logRoot,
		StartedAt:  time.Now(),
	}
}

// Launch returns the synthetic invocation whose log is the default destination
// before any real command has registered.
func Launch(logRoot string) Info {
	return New(LaunchCommand, logRoot)
}

// NewBuildID returns a random build identifier.
func NewBuildID() string {
	return uuid.NewString()
}

// LogDirectoryPath returns the per-invocation log directory.
func (i Info) LogDirectoryPath() string {
	name := fmt.Sprintf("%s_%s_%s", i.StartedAt.Format(dirTimeFormat), i.SubCommand, i.BuildID)
	return filepath.Join(i.LogRoot, name)
}

// LogFilePath returns the path of the invocation's log file.
func (i Info) LogFilePath() string {
	return filepath.Join(i.LogDirectoryPath(), LogFileName)
}
