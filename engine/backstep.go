package engine

import (
	log "github.com/inconshreveable/log15"

	"github.com/lattica-labs/execution-engine/chainstore"
)

// backstep implements spec.md §4.5's recovery procedure literally: the
// candidate is the last block the callback successfully advanced past
// (st.headBlock), not the block that failed. If the candidate's own
// state root is present, rewind the vm cursor to the candidate's parent
// so the next run re-executes from a known-good root. If it is absent,
// log and leave the cursor untouched rather than searching further back.
func (e *Engine) backstep(cause *MissingStateRootError, st *perBlockState) {
	candidate := st.headBlock
	if candidate == nil {
		log.Error("backstep recovery failed", "err", ErrNoRecoveryCandidate, "cause", cause.Error())
		return
	}

	if e.backend.StateManager().HasStateRoot(candidate.Header.StateRoot) {
		if err := e.store.SetIteratorHead(chainstore.CursorVM, candidate.Header.ParentHash); err != nil {
			log.Error("backstep failed to rewind cursor", "candidate", candidate.Hash(), "err", err)
			return
		}
		e.metrics.BackstepCount.Inc()
		log.Warn("backstep rewound vm cursor", "candidate", candidate.Hash(),
			"number", candidate.Header.Number, "rewoundTo", candidate.Header.ParentHash, "cause", cause.Error())
		return
	}

	log.Error("backstep recovery failed", "err", ErrNoRecoveryCandidate,
		"candidate", candidate.Hash(), "number", candidate.Header.Number, "cause", cause.Error())
}
