package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	match "github.com/oxygenfuel/contract"
	"github.com/oxygenfuel/contract/protocol"
)

// ErrOutOfOrder is returned when a journaled command does not advance the sequence.
var ErrOutOfOrder = errors.New("store: command sequence does not advance")

// keys: s:latest, j:<8-byte big-endian seq>
var (
	keySnapshot   = []byte("s:latest")
	journalPrefix = []byte("j:")
	journalEnd    = []byte("j;")
)

func journalKey(seq uint64) []byte {
	key := make([]byte, len(journalPrefix)+8)
	copy(key, journalPrefix)
	binary.BigEndian.PutUint64(key[len(journalPrefix):], seq)
	return key
}

func journalSeq(key []byte) uint64 {
	return binary.BigEndian.Uint64(key[len(journalPrefix):])
}

// PebbleStore persists engine snapshots and the command journal.
type PebbleStore struct {
	db *pebble.DB

	mu      sync.Mutex
	lastSeq uint64
}

// Option configures the underlying pebble database.
type Option func(*pebble.Options)

// WithFS runs the store on the given filesystem, e.g. vfs.NewMem() in tests.
func WithFS(fs vfs.FS) Option {
	return func(o *pebble.Options) { o.FS = fs }
}

// Open opens or creates a store at path.
func Open(path string, opts ...Option) (*PebbleStore, error) {
	options := &pebble.Options{}
	for _, opt := range opts {
		opt(options)
	}
	db, err := pebble.Open(path, options)
	if err != nil {
		return nil, fmt.Errorf("open pebble: %w", err)
	}

	s := &PebbleStore{db: db}
	last, err := s.scanLastSeq()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.lastSeq = last
	return s, nil
}

func (s *PebbleStore) Close() error { return s.db.Close() }

func (s *PebbleStore) scanLastSeq() (uint64, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: journalPrefix, UpperBound: journalEnd})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	if iter.Last() {
		return journalSeq(iter.Key()), nil
	}
	return 0, iter.Error()
}

// SaveSnapshot writes the snapshot as [crc32:4][json].
func (s *PebbleStore) SaveSnapshot(snap *match.EngineSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	val := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(val[:4], crc32.ChecksumIEEE(data))
	copy(val[4:], data)

	if err := s.db.Set(keySnapshot, val, pebble.Sync); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the latest snapshot, or nil when none was saved.
func (s *PebbleStore) LoadSnapshot() (*match.EngineSnapshot, error) {
	val, closer, err := s.db.Get(keySnapshot)
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	defer closer.Close()

	if len(val) < 4 {
		return nil, fmt.Errorf("%w: short snapshot record", match.ErrSnapshotCorrupted)
	}
	data := val[4:]
	if binary.BigEndian.Uint32(val[:4]) != crc32.ChecksumIEEE(data) {
		return nil, fmt.Errorf("%w: checksum mismatch", match.ErrSnapshotCorrupted)
	}

	var snap match.EngineSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", match.ErrSnapshotCorrupted, err)
	}
	return &snap, nil
}

// AppendCommand journals a command before it is executed. SeqIDs must strictly increase.
func (s *PebbleStore) AppendCommand(cmd *protocol.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cmd.SeqID <= s.lastSeq {
		return fmt.Errorf("%w: %d after %d", ErrOutOfOrder, cmd.SeqID, s.lastSeq)
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to marshal command: %w", err)
	}
	if err := s.db.Set(journalKey(cmd.SeqID), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to append command: %w", err)
	}
	s.lastSeq = cmd.SeqID
	return nil
}

// NextSeqID reserves the sequence for the next journaled command.
func (s *PebbleStore) NextSeqID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeq + 1
}

// LastSeqID returns the sequence of the last journaled command.
func (s *PebbleStore) LastSeqID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeq
}

// ForEachCommand visits journaled commands with SeqID > afterSeq in order.
func (s *PebbleStore) ForEachCommand(afterSeq uint64, fn func(*protocol.Command) error) error {
	if afterSeq == ^uint64(0) {
		return nil
	}

	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: journalKey(afterSeq + 1), UpperBound: journalEnd})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		var cmd protocol.Command
		if err := json.Unmarshal(iter.Value(), &cmd); err != nil {
			return fmt.Errorf("decode journal entry %d: %w", journalSeq(iter.Key()), err)
		}
		if err := fn(&cmd); err != nil {
			return err
		}
	}
	return iter.Error()
}

// Commands returns the journaled commands after afterSeq.
func (s *PebbleStore) Commands(afterSeq uint64) ([]*protocol.Command, error) {
	var cmds []*protocol.Command
	err := s.ForEachCommand(afterSeq, func(cmd *protocol.Command) error {
		cmds = append(cmds, cmd)
		return nil
	})
	return cmds, err
}

// TruncateJournal drops journaled commands with SeqID < beforeSeq once a snapshot covers them.
// The entry at beforeSeq is kept so LastSeqID survives a restart.
func (s *PebbleStore) TruncateJournal(beforeSeq uint64) error {
	if beforeSeq == 0 {
		return nil
	}
	if err := s.db.DeleteRange(journalPrefix, journalKey(beforeSeq), pebble.Sync); err != nil {
		return fmt.Errorf("failed to truncate journal: %w", err)
	}
	return nil
}
