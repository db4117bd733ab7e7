package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents a failure of the engine itself, as opposed to a
// ledger rejection (which is a receipt, not an error).
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Seq is the logical seq involved, if any.
	Seq int64
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeMalformedCommand indicates a command that cannot be journaled.
	ErrCodeMalformedCommand RuntimeErrorCode = "MALFORMED_COMMAND"

	// ErrCodeJournalConflict indicates the journal already holds the seq or
	// command id being committed.
	ErrCodeJournalConflict RuntimeErrorCode = "JOURNAL_CONFLICT"

	// ErrCodePolicyMismatch indicates the journal is bound to a different
	// pricing or reward policy than the engine was built with.
	ErrCodePolicyMismatch RuntimeErrorCode = "POLICY_MISMATCH"

	// ErrCodeStopped indicates the engine no longer accepts commands.
	ErrCodeStopped RuntimeErrorCode = "STOPPED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Seq != 0 {
		return fmt.Sprintf("%s: %s (seq=%d)", e.Code, e.Message, e.Seq)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsStopped returns true if the error reports a stopped engine.
// Uses errors.As to handle wrapped errors.
func IsStopped(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeStopped
	}
	return false
}

// IsPolicyMismatch returns true if the journal was written under another
// policy.
func IsPolicyMismatch(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodePolicyMismatch
	}
	return false
}

// IsMalformed returns true if the command was refused before sequencing.
func IsMalformed(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeMalformedCommand
	}
	return false
}

var errStopped = &RuntimeError{Code: ErrCodeStopped, Message: "engine stopped"}

// ReplayMismatchError reports where a replay diverged from the journal.
type ReplayMismatchError struct {
	// Seq is the journal position, or 0 for the final state comparison.
	Seq int64

	// Field names what differed: "seq", "command_id", "case", "result"
	// or "state".
	Field string

	Want string
	Got  string
}

// Error implements the error interface.
func (e *ReplayMismatchError) Error() string {
	if e.Seq == 0 {
		return fmt.Sprintf("replay mismatch: %s: want %s, got %s", e.Field, e.Want, e.Got)
	}
	return fmt.Sprintf("replay mismatch at seq %d: %s: want %s, got %s", e.Seq, e.Field, e.Want, e.Got)
}

// IsReplayMismatch returns true if the error is a replay divergence.
func IsReplayMismatch(err error) bool {
	var me *ReplayMismatchError
	return errors.As(err, &me)
}
