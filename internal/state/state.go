// Package state persists the last counter snapshots so a freshly started
// process can derive rates without a warm-up sample.
//
// The file is JSON:
//
//	{
//	    "counters_time": 1767268800.123456,
//	    "cpu_counters":  {"idle": 123, "user": 45, ...},
//	    "disk_counters": {"read_bytes": 678, ...},
//	    "net_counters":  {"bytes_recv": 910, ...}
//	}
//
// The field names inside each family are taken from the file itself. Save
// writes atomically (temporary file, fsync, rename). Load never fails: any
// problem means "no prior state" and the caller bootstraps instead.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/Dicklesworthstone/hardmon/internal/counter"
)

// State is the set of snapshots carried across process lifetimes. All
// three families share one timestamp.
type State struct {
	Time time.Time
	CPU  counter.Snapshot
	Disk counter.Snapshot
	Net  counter.Snapshot
}

type fileFormat struct {
	CountersTime *float64          `json:"counters_time"`
	CPUCounters  map[string]uint64 `json:"cpu_counters"`
	DiskCounters map[string]uint64 `json:"disk_counters"`
	NetCounters  map[string]uint64 `json:"net_counters"`
}

// Store reads and writes the state file at Path.
type Store struct {
	Path   string
	Logger *slog.Logger
}

// NewStore returns a Store for path. A nil logger discards.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{Path: path, Logger: logger}
}

// Load returns the persisted state and true, or a zero State and false when
// the file is absent, unreadable or does not match the expected schema.
func (s *Store) Load() (State, bool) {
	st, err := Read(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.Logger.Debug("no saved counters", "path", s.Path)
		} else {
			s.Logger.Info("ignoring saved counters", "path", s.Path, "error", err)
		}
		return State{}, false
	}
	return st, true
}

// Save writes st to the store path.
func (s *Store) Save(st State) error {
	if err := Write(s.Path, st); err != nil {
		return err
	}
	s.Logger.Debug("saved counters", "path", s.Path, "time", st.Time)
	return nil
}

// Read parses a state file. A missing file yields an error wrapping
// os.ErrNotExist.
func Read(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}, err
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return State{}, fmt.Errorf("parsing state file %s: %w", path, err)
	}
	if f.CountersTime == nil {
		return State{}, fmt.Errorf("state file %s: missing counters_time", path)
	}
	if f.CPUCounters == nil || f.DiskCounters == nil || f.NetCounters == nil {
		return State{}, fmt.Errorf("state file %s: missing counter family", path)
	}
	seconds := *f.CountersTime
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return State{}, fmt.Errorf("state file %s: invalid counters_time %v", path, seconds)
	}

	t := fromEpoch(seconds)
	return State{
		Time: t,
		CPU:  counter.New(f.CPUCounters, t),
		Disk: counter.New(f.DiskCounters, t),
		Net:  counter.New(f.NetCounters, t),
	}, nil
}

// Write atomically replaces the state file at path. The parent directory
// must exist.
func Write(path string, st State) error {
	f := fileFormat{
		CountersTime: ptr(toEpoch(st.Time)),
		CPUCounters:  st.CPU.Values(),
		DiskCounters: st.Disk.Values(),
		NetCounters:  st.Net.Values(),
	}
	data, err := json.MarshalIndent(f, "", "    ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	file, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating temporary state file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing temporary state file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("syncing temporary state file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing temporary state file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming state file into place: %w", err)
	}

	if dir, err := os.Open(filepath.Dir(path)); err == nil {
		dir.Sync()
		dir.Close()
	}
	return nil
}

// Epoch seconds as a float keep microsecond precision for current dates;
// both directions round to the microsecond.
func toEpoch(t time.Time) float64 {
	return float64(t.Truncate(time.Microsecond).UnixMicro()) / 1e6
}

func fromEpoch(seconds float64) time.Time {
	return time.UnixMicro(int64(math.Round(seconds * 1e6)))
}

func ptr[T any](v T) *T { return &v }
