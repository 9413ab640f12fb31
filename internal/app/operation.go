package app

import (
	"time"

	"chronovault/internal/chrono"
)

// Operation identifies one CLI invocation. Its ID tags every log line the
// invocation writes so interleaved runs can be told apart.
type Operation struct {
	ID        string
	Name      string
	StartedAt time.Time
	Status    string // "success" or "error"
}

// NewOperation creates an operation named after the CLI command being run
// (e.g. "CreateSeal", "OpenSeal").
func NewOperation(name string, clock chrono.Clock, ids chrono.IDGenerator) *Operation {
	now := clock.Now().UTC()
	suffix := ids.New()
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return &Operation{
		ID:        now.Format("20060102T150405Z") + "-" + suffix,
		Name:      name,
		StartedAt: now,
		Status:    "success",
	}
}

// Fail marks the operation as failed. It cannot be undone.
func (op *Operation) Fail() {
	op.Status = "error"
}

// Failed reports whether Fail was called.
func (op *Operation) Failed() bool {
	return op.Status == "error"
}

// Elapsed returns how long the operation has been running at now.
func (op *Operation) Elapsed(now time.Time) time.Duration {
	return now.Sub(op.StartedAt)
}
