package engine

import (
	"math/big"

	log "github.com/inconshreveable/log15"
)

// checkHardforkTransition computes the hardfork active for
// (number, td, timestamp) and, if it differs from the engine's cached
// tag, logs the transition and rekeys both the engine's own tag and the
// VM backend's common parameters (spec.md §4.3 step 2: "this must happen
// before runBlock").
func (e *Engine) checkHardforkTransition(number uint64, td *big.Int, timestamp uint64) {
	hf := e.chainConfig.HardforkFor(number, td, timestamp)
	if hf == e.hardfork {
		return
	}
	log.Info("hardfork transition", "from", e.hardfork, "to", hf, "number", number)
	e.hardfork = hf
	e.backend.SetHardfork(hf)
}
