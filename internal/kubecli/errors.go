package kubecli

import (
	"fmt"
	"strings"
	"time"
)

// ExternalProcessError reports a non-zero exit from an external tool,
// carrying the tool's error stream for diagnosis.
type ExternalProcessError struct {
	Tool     string
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *ExternalProcessError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = "command failed"
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Tool, e.ExitCode, msg)
}

// TimeoutError reports that a process exceeded its execution budget.
type TimeoutError struct {
	Tool   string
	Args   []string
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Tool, e.Budget)
}

// Timeout marks the error as a timeout for classification layers.
func (e *TimeoutError) Timeout() bool { return true }

// ParseError reports malformed structured output from a tool that exited
// successfully.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s output: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
