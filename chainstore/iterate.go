package chainstore

import "fmt"

// Iterate walks the named cursor toward the canonical head, delivering at
// most maxBlocks blocks (0 means unbounded) to cb in ascending order. If
// the cursor's current block has been reorged out of the canonical chain,
// Iterate walks back to the common ancestor and announces reorg=true on
// the first block delivered afterward (spec.md §4.2, §6).
func (s *Store) Iterate(name CursorName, cb IterateCallback, maxBlocks uint64, releaseLock bool) (int, error) {
	executed := 0
	for maxBlocks == 0 || uint64(executed) < maxBlocks {
		s.mu.Lock()
		cursorHash, err := s.cursorHashLocked(name)
		if err != nil {
			s.mu.Unlock()
			return executed, err
		}
		curBlock, err := s.getBlockByHashLocked(cursorHash)
		if err != nil {
			s.mu.Unlock()
			return executed, fmt.Errorf("iterate: cursor block %s: %w", cursorHash, err)
		}
		canonical, err := s.canonicalHeadLocked()
		if err != nil {
			s.mu.Unlock()
			return executed, err
		}
		if curBlock.Hash() == canonical.Hash() {
			s.mu.Unlock()
			break
		}

		reorg := false
		onCanonical, ok, err := s.canonicalHashAtNumberLocked(curBlock.Header.Number)
		if err != nil {
			s.mu.Unlock()
			return executed, err
		}
		if !ok || onCanonical != curBlock.Hash() {
			ancestor, err := s.findCommonAncestorLocked(curBlock)
			if err != nil {
				s.mu.Unlock()
				return executed, fmt.Errorf("iterate: find common ancestor: %w", err)
			}
			curBlock = ancestor
			reorg = true
		}

		nextHash, ok, err := s.canonicalHashAtNumberLocked(curBlock.Header.Number + 1)
		if err != nil {
			s.mu.Unlock()
			return executed, err
		}
		if !ok {
			s.mu.Unlock()
			break
		}
		nextBlock, err := s.getBlockByHashLocked(nextHash)
		if err != nil {
			s.mu.Unlock()
			return executed, fmt.Errorf("iterate: next block %s: %w", nextHash, err)
		}

		if releaseLock {
			s.mu.Unlock()
		}
		cbErr := cb(nextBlock, reorg)
		if !releaseLock {
			s.mu.Unlock()
		}
		if cbErr != nil {
			return executed, cbErr
		}

		s.mu.Lock()
		if err := s.setCursorLocked(name, nextBlock.Hash()); err != nil {
			s.mu.Unlock()
			return executed, err
		}
		s.mu.Unlock()
		executed++
	}
	return executed, nil
}

// findCommonAncestorLocked walks block's ancestry until it finds a block
// that is still canonical at its own height, returning that ancestor.
func (s *Store) findCommonAncestorLocked(block *Block) (*Block, error) {
	current := block
	for {
		hash, ok, err := s.canonicalHashAtNumberLocked(current.Header.Number)
		if err != nil {
			return nil, err
		}
		if ok && hash == current.Hash() {
			return current, nil
		}
		if current.Header.Number == 0 {
			return nil, fmt.Errorf("chainstore: no common ancestor found back to genesis")
		}
		parent, err := s.getBlockByHashLocked(current.Header.ParentHash)
		if err != nil {
			return nil, err
		}
		current = parent
	}
}
