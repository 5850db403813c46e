// Package saga provides the per-call compensation list used by multi-step
// writes.
//
// No distributed transaction coordinator exists between the services; the
// only consistency tool is an explicit list of reversing actions kept in
// the orchestrating call and executed in reverse order when a later step
// fails after an earlier, externally visible action has committed. The list
// lives on the stack of one handler invocation and shares no state between
// calls.
package saga

import (
	"context"
	"log"
)

// Compensation is one reversing action, such as deleting a blob that was
// stored earlier in the same call.
type Compensation struct {
	// Name describes the committed action, for failure logs.
	Name string
	// Undo reverses the action. It runs on a background context because
	// the original caller may already be gone by the time it executes.
	Undo func(ctx context.Context) error
}

// Log is the in-memory record of reversible actions taken so far in one
// saga execution. Append before treating the action as committed; then
// either Discard on success or Compensate on failure.
type Log struct {
	steps []Compensation
}

// Append records a reversing action for a step that is about to commit.
func (l *Log) Append(name string, undo func(ctx context.Context) error) {
	if undo == nil {
		return
	}
	l.steps = append(l.steps, Compensation{Name: name, Undo: undo})
}

// Len reports how many reversible actions are recorded.
func (l *Log) Len() int {
	return len(l.steps)
}

// Compensate executes the recorded actions in reverse chronological order.
// Compensation is best-effort: a failing undo is logged and the remaining
// actions still run, since each reverses an independent effect. It returns
// the first undo error for callers that need to escalate to a fatal,
// manual-remediation failure.
func (l *Log) Compensate(ctx context.Context) error {
	var first error
	for i := len(l.steps) - 1; i >= 0; i-- {
		step := l.steps[i]
		if err := step.Undo(ctx); err != nil {
			log.Printf("compensate %s: %v", step.Name, err)
			if first == nil {
				first = err
			}
		}
	}
	l.steps = nil
	return first
}

// Discard drops the recorded actions after the saga has succeeded.
func (l *Log) Discard() {
	l.steps = nil
}
