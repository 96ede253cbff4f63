package recovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/common/logger"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/pos/table"
)

// Snapshot is the durable shape of all in-progress orders plus the
// selection, so an accidental process exit does not lose open tables.
type Snapshot struct {
	ActiveOrders  []table.OrderEntry `json:"active_orders"`
	SelectedTable string             `json:"selected_table_id"`
	SavedAt       time.Time          `json:"saved_at"`
}

// Store persists snapshots to a single JSON file on local disk.
type Store struct {
	path string
	lg   *logger.Logger
}

func NewStore(path string, lg *logger.Logger) *Store {
	return &Store{path: path, lg: lg}
}

// Restore loads the last snapshot. A missing file is a normal cold start;
// a corrupt one is logged and discarded. Neither ever fails startup.
func (s *Store) Restore() (Snapshot, bool) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.lg.Error("snapshot_read_failed", err, map[string]any{"path": s.path})
		}
		return Snapshot{}, false
	}
	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		s.lg.Error("snapshot_corrupt_discarded", err, map[string]any{"path": s.path})
		return Snapshot{}, false
	}
	return snap, true
}

// Save writes the snapshot atomically (temp file + rename) so a crash
// mid-write never leaves a half-written snapshot behind.
func (s *Store) Save(snap Snapshot) error {
	snap.SavedAt = time.Now().UTC()
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("snapshot dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Run snapshots the registry on a ticker and once more on shutdown.
func (s *Store) Run(ctx context.Context, interval time.Duration, reg *table.Registry) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			s.capture(reg)
			return
		case <-t.C:
			s.capture(reg)
		}
	}
}

func (s *Store) capture(reg *table.Registry) {
	orders, selected := reg.Export()
	if err := s.Save(Snapshot{ActiveOrders: orders, SelectedTable: selected}); err != nil {
		s.lg.Error("snapshot_save_failed", err, map[string]any{"path": s.path})
	} else {
		s.lg.Debug("snapshot_saved", map[string]any{"orders": len(orders)})
	}
}
