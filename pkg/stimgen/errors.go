package stimgen

import "fmt"

// ConfigError reports an invalid traffic profile. It is always raised
// before the session loop starts, so no traffic has been sent.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid profile: " + e.Reason
}

// PrivilegeError reports that frame transport could not open its raw
// socket, typically because CAP_NET_RAW is missing.
type PrivilegeError struct {
	Op  string
	Err error
}

func (e *PrivilegeError) Error() string {
	return fmt.Sprintf("%s: insufficient privilege for raw packet injection (need CAP_NET_RAW): %v", e.Op, e.Err)
}

func (e *PrivilegeError) Unwrap() error { return e.Err }

// BestEffortError reports a stream-transport connect/write failure.
// The attempt is still counted as sent; callers may log or ignore it.
type BestEffortError struct {
	Op  string
	Err error
}

func (e *BestEffortError) Error() string {
	return fmt.Sprintf("best-effort %s: %v", e.Op, e.Err)
}

func (e *BestEffortError) Unwrap() error { return e.Err }
