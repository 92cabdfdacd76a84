// Package storage is the host-side durability layer outside the pure
// engine core (§1's "out of scope" boundary names sequencing and ingress,
// not this): a pebble-backed action log plus periodic state snapshots, so
// a host can restart and replay rather than starting from genesis.
package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// Store wraps a single pebble database holding the action log, snapshots,
// and the host's last-committed sequence/hash-chain tip.
type Store struct {
	db *pebble.DB
}

// Open opens (creating if absent) the pebble database at path.
func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble store at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// AppendAction durably records the action the engine committed as step
// sequence. The API server calls it after the engine has applied the
// action and before answering the submitter.
func (s *Store) AppendAction(sequence uint64, caller string, raw []byte) error {
	val, err := encodeGob(LoggedAction{Caller: caller, Raw: raw})
	if err != nil {
		return fmt.Errorf("encode logged action: %w", err)
	}
	if err := s.db.Set(actionKey(sequence), val, pebble.Sync); err != nil {
		return fmt.Errorf("append action %d: %w", sequence, err)
	}
	return nil
}

// LoadActions returns every logged action in sequence order, the replay
// path a host uses to rebuild state after a restart.
func (s *Store) LoadActions() ([]LoggedAction, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefixAction),
		UpperBound: keyUpperBound([]byte(prefixAction)),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var actions []LoggedAction
	for iter.First(); iter.Valid(); iter.Next() {
		var entry LoggedAction
		if err := decodeGob(iter.Value(), &entry); err != nil {
			return nil, fmt.Errorf("decode logged action: %w", err)
		}
		actions = append(actions, entry)
	}
	return actions, iter.Error()
}

// SaveSnapshot persists the canonical state encoding at sequence, letting a
// host skip replaying the full action log from genesis on restart.
func (s *Store) SaveSnapshot(sequence uint64, snapshot []byte) error {
	if err := s.db.Set(snapshotKey(sequence), snapshot, pebble.Sync); err != nil {
		return fmt.Errorf("save snapshot %d: %w", sequence, err)
	}
	return s.saveSequence(sequence)
}

// LoadLatestSnapshot returns the most recent snapshot and its sequence, or
// ok=false if none has ever been saved.
func (s *Store) LoadLatestSnapshot() (sequence uint64, snapshot []byte, ok bool, err error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefixSnapshot),
		UpperBound: keyUpperBound([]byte(prefixSnapshot)),
	})
	if err != nil {
		return 0, nil, false, err
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, nil, false, nil
	}
	key := iter.Key()
	sequence = decodeSeqFromKey(key, prefixSnapshot)
	snapshot = append([]byte(nil), iter.Value()...)
	return sequence, snapshot, true, nil
}

func decodeSeqFromKey(key []byte, prefix string) uint64 {
	raw := key[len(prefix):]
	var seq uint64
	for _, b := range raw {
		seq = seq<<8 | uint64(b)
	}
	return seq
}

func (s *Store) saveSequence(sequence uint64) error {
	return s.db.Set([]byte(keySequence), seqBytes(sequence), pebble.Sync)
}

// LastSequence returns the sequence recorded by the most recent
// SaveSnapshot or SaveTip call, or 0 if storage is fresh.
func (s *Store) LastSequence() (uint64, error) {
	val, closer, err := s.db.Get([]byte(keySequence))
	if err == pebble.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer closer.Close()
	return binary.BigEndian.Uint64(val), nil
}

// SaveTip records the engine's hash-chain tip after a committed step, so a
// restarted host can verify it replayed to the expected state rather than
// silently diverging.
func (s *Store) SaveTip(sequence uint64, tip [32]byte) error {
	if err := s.db.Set([]byte(keyTipHash), tip[:], pebble.Sync); err != nil {
		return fmt.Errorf("save tip: %w", err)
	}
	return s.saveSequence(sequence)
}

// LoadTip returns the last recorded hash-chain tip, or ok=false if none.
func (s *Store) LoadTip() (tip [32]byte, ok bool, err error) {
	val, closer, err := s.db.Get([]byte(keyTipHash))
	if err == pebble.ErrNotFound {
		return tip, false, nil
	}
	if err != nil {
		return tip, false, err
	}
	defer closer.Close()
	copy(tip[:], val)
	return tip, true, nil
}
