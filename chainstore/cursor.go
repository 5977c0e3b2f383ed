package chainstore

import "github.com/ava-labs/avalanchego/ids"

var cursorKeys = map[CursorName][]byte{
	CursorVM:        []byte("cursor.vm"),
	CursorSafe:      []byte("cursor.safe"),
	CursorFinalized: []byte("cursor.finalized"),
}

// IteratorHead returns the block the named cursor currently points at.
func (s *Store) IteratorHead(name CursorName) (*Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash, err := s.cursorHashLocked(name)
	if err != nil {
		return nil, err
	}
	return s.getBlockByHashLocked(hash)
}

// SetIteratorHead rewrites the named cursor's persisted position,
// committing the versiondb itself rather than leaving the write staged
// for whatever Batch/PutBlocks call happens to commit next -- the same
// Abort()-deferred/Commit()-on-success idiom Batch follows.
func (s *Store) SetIteratorHead(name CursorName, hash ids.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	defer s.vDB.Abort()
	if err := s.setCursorLocked(name, hash); err != nil {
		return err
	}
	return s.vDB.Commit()
}

func (s *Store) cursorHashLocked(name CursorName) (ids.ID, error) {
	key, ok := cursorKeys[name]
	if !ok {
		return ids.Empty, ErrUnknownCursor
	}
	raw, err := s.cursorIndex.Get(key)
	if err != nil {
		return ids.Empty, err
	}
	return ids.ToID(raw)
}

func (s *Store) setCursorLocked(name CursorName, hash ids.ID) error {
	key, ok := cursorKeys[name]
	if !ok {
		return ErrUnknownCursor
	}
	return s.cursorIndex.Put(key, hash[:])
}
