// Package history persists allocation snapshots to SQLite so leak
// trends can be read back after the fact: which classes grew, when, and
// by how much.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/objtrace/snapshot"
)

var log = commonlog.GetLogger("objtrace.history")

// ErrNoSnapshots indicates the store holds no snapshots yet.
var ErrNoSnapshots = errors.New("no snapshots recorded")

// Store is a SQLite-backed series of allocation snapshots. Snapshots
// are stored as CBOR blobs; queries decode in Go, which is fine at
// diagnostic scale.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// Open opens (creating if needed) the snapshot store at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		taken_at INTEGER NOT NULL,
		data BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	log.Debugf("opened snapshot store at %s", dbPath)
	return &Store{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Append stores one snapshot.
func (s *Store) Append(snap *snapshot.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := snapshot.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if _, err := s.db.Exec(
		"INSERT INTO snapshots (taken_at, data) VALUES (?, ?)",
		snap.TakenAt.UnixNano(), data,
	); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	log.Debugf("appended snapshot with %d classes", len(snap.Classes))
	return nil
}

// Latest returns the most recently appended snapshot.
func (s *Store) Latest() (*snapshot.Snapshot, error) {
	var data []byte
	err := s.db.QueryRow(
		"SELECT data FROM snapshots ORDER BY id DESC LIMIT 1",
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoSnapshots
		}
		return nil, fmt.Errorf("querying latest snapshot: %w", err)
	}
	return snapshot.Unmarshal(data)
}

// Range returns the snapshots taken in [from, to], oldest first.
func (s *Store) Range(from, to time.Time) ([]*snapshot.Snapshot, error) {
	rows, err := s.db.Query(
		"SELECT data FROM snapshots WHERE taken_at >= ? AND taken_at <= ? ORDER BY id",
		from.UnixNano(), to.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var out []*snapshot.Snapshot
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		snap, err := snapshot.Unmarshal(data)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Classes returns every class that appears anywhere in the series, in
// order of first appearance.
func (s *Store) Classes() ([]string, error) {
	snaps, err := s.all()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, snap := range snaps {
		for _, cs := range snap.Classes {
			if !seen[cs.Class] {
				seen[cs.Class] = true
				out = append(out, cs.Class)
			}
		}
	}
	return out, nil
}

// GrowthPoint is one sample of a class's live count over time.
type GrowthPoint struct {
	TakenAt time.Time
	Count   uint64
	Total   uint64
	Peak    uint64
}

// Growth returns the live-count series for one class across the whole
// store, oldest first. Snapshots that never saw the class are skipped.
func (s *Store) Growth(class string) ([]GrowthPoint, error) {
	snaps, err := s.all()
	if err != nil {
		return nil, err
	}
	var out []GrowthPoint
	for _, snap := range snaps {
		for _, cs := range snap.Classes {
			if cs.Class != class {
				continue
			}
			out = append(out, GrowthPoint{
				TakenAt: snap.TakenAt,
				Count:   cs.Count,
				Total:   cs.Total,
				Peak:    cs.Peak,
			})
			break
		}
	}
	return out, nil
}

// all decodes the full series, oldest first.
func (s *Store) all() ([]*snapshot.Snapshot, error) {
	rows, err := s.db.Query("SELECT data FROM snapshots ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var out []*snapshot.Snapshot
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		snap, err := snapshot.Unmarshal(data)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}
