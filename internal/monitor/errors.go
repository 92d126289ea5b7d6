// internal/monitor/errors.go
package monitor

import (
	"errors"
	"fmt"
)

var (
	// ErrNotRunning is returned by Tick outside the RUNNING state.
	ErrNotRunning = errors.New("monitoring is not running")

	// ErrStartSuperseded is returned by a Start whose round was overtaken by
	// a later Start or a Stop before it could commit.
	ErrStartSuperseded = errors.New("monitoring start superseded")
)

// ConfigurationError reports an unusable wallet set. Monitoring is not armed.
type ConfigurationError struct {
	Reason string
	Wallet string
}

func (e *ConfigurationError) Error() string {
	if e.Wallet != "" {
		return fmt.Sprintf("invalid monitoring configuration: %s: %q", e.Reason, e.Wallet)
	}
	return fmt.Sprintf("invalid monitoring configuration: %s", e.Reason)
}
