package engine

import (
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
)

// ErrExecutionStopped is the cooperative cancellation error the per-block
// callback returns once the engine's started flag has been cleared,
// treated as a normal termination rather than a fault (spec.md §5, §7).
var ErrExecutionStopped = errors.New("engine: execution stopped")

// ErrNotStarted is returned by run and runWithoutSetHead when invoked
// before Start or after Stop.
var ErrNotStarted = errors.New("engine: not started")

// ErrNoRecoveryCandidate is logged (not returned to a caller; backstep
// failures are handled locally per spec.md §7) when backstep has no
// ancestor with a present state root to fall back to.
var ErrNoRecoveryCandidate = errors.New("engine: no backstep recovery candidate")

// ErrNotCanonical is setHead's hard failure when a named block's hash
// disagrees with the store's canonical entry at its number after the
// batched putBlocks (spec.md §4.6 P5, §7).
var ErrNotCanonical = errors.New("engine: block is not canonical")

// MissingStateRootError replaces the fragile "error message contains
// 'does not contain state root'" substring match spec.md §9 flags for
// redesign: the VM signals a missing state root as a typed error, and
// the engine dispatches on its type rather than string content.
type MissingStateRootError struct {
	Root        ids.ID
	BlockHash   ids.ID
	BlockNumber uint64
}

func (e *MissingStateRootError) Error() string {
	return fmt.Sprintf("engine: state root %s missing for block %s (number %d)", e.Root, e.BlockHash, e.BlockNumber)
}

// AsMissingStateRootError reports whether err is (or wraps) a
// *MissingStateRootError, mirroring the errors.As idiom the teacher uses
// throughout its wrapped-error handling.
func AsMissingStateRootError(err error) (*MissingStateRootError, bool) {
	var target *MissingStateRootError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
