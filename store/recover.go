package store

import (
	"errors"
	"fmt"

	match "github.com/oxygenfuel/contract"
	"github.com/oxygenfuel/contract/protocol"
)

// RecoverStats describes what Recover rebuilt.
type RecoverStats struct {
	SnapshotSeqID uint64
	Replayed      int
	Rejected      int
}

// Recover restores the latest snapshot into engine and replays the journal after it.
// Commands the engine rejects are counted and skipped, as they were in the live run.
func Recover(engine *match.Engine, s *PebbleStore) (*RecoverStats, error) {
	stats := &RecoverStats{}

	snap, err := s.LoadSnapshot()
	if err != nil {
		return nil, err
	}
	if snap != nil {
		if err := engine.Restore(snap); err != nil {
			return nil, fmt.Errorf("restore snapshot: %w", err)
		}
		stats.SnapshotSeqID = snap.LastCmdSeqID
	}

	err = s.ForEachCommand(engine.LastCmdSeqID(), func(cmd *protocol.Command) error {
		_, err := engine.Execute(cmd)
		switch {
		case err == nil:
			stats.Replayed++
		case errors.Is(err, match.ErrInternal), errors.Is(err, match.ErrDuplicateCommand):
			return fmt.Errorf("replay command %d: %w", cmd.SeqID, err)
		default:
			stats.Rejected++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
