package types

// Status is the state of one (path, tool) report.
type Status int

const (
	Pending Status = iota
	Running
	Ok
	Problem
	NotApplicable
	TimedOut
	Error
	Paused
)

// String returns a human-readable name for the status.
func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Ok:
		return "ok"
	case Problem:
		return "problem"
	case NotApplicable:
		return "not applicable"
	case TimedOut:
		return "timed out"
	case Error:
		return "error"
	case Paused:
		return "paused"
	}
	return "unknown"
}

// Terminal reports whether the status is a final state for the current
// snapshot. Terminal statuses have a persisted body; the others do not.
func (s Status) Terminal() bool {
	switch s {
	case Ok, Problem, TimedOut, Error:
		return true
	}
	return false
}

// Issue reports whether the status counts as an issue for the
// next-issue navigation keys.
func (s Status) Issue() bool {
	switch s {
	case Problem, TimedOut, Error:
		return true
	}
	return false
}
