package types

import "time"

// JobSpec is one unit of work sent to a worker process: run a tool on a
// file and classify the outcome. Argv is fully expanded; the worker runs
// it with the codebase root as working directory.
type JobSpec struct {
	ID      uint64        `cbor:"1,keyasint"`
	Path    string        `cbor:"2,keyasint"`
	AbsPath string        `cbor:"3,keyasint"`
	Tool    string        `cbor:"4,keyasint"`
	Argv    []string      `cbor:"5,keyasint"`
	Timeout time.Duration `cbor:"6,keyasint"`
	Key     SnapshotKey   `cbor:"7,keyasint"`
}

// Started announces that a job was handed to a worker, so the presenter
// can flip the cell from Pending to Running.
type Started struct {
	Path string
	Tool string
	Key  SnapshotKey
}

// Result is a completed report for one (path, tool) pair. Body is the
// captured output, control characters normalized, possibly containing SGR
// escapes that the presenter interprets into styled text.
type Result struct {
	ID         uint64      `cbor:"1,keyasint"`
	Path       string      `cbor:"2,keyasint"`
	Tool       string      `cbor:"3,keyasint"`
	Key        SnapshotKey `cbor:"4,keyasint"`
	Status     Status      `cbor:"5,keyasint"`
	Body       string      `cbor:"6,keyasint"`
	StartedAt  time.Time   `cbor:"7,keyasint"`
	FinishedAt time.Time   `cbor:"8,keyasint"`
}

// Duration returns how long the tool ran.
func (r Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
