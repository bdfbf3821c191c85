// Package store persists install log summaries and hands out their ids.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rflorenc/deploy-ledger/internal/contract"
	"github.com/rflorenc/deploy-ledger/internal/ledger"
)

// ErrNotFound is returned when no row carries the requested id.
var ErrNotFound = errors.New("log summary not found")

// LogStore is the persistence boundary for install logs.
type LogStore interface {
	// Save assigns the next id to s and returns the stored copy. A summary
	// that already carries an id is rejected.
	Save(s *ledger.LogSummary) (*ledger.LogSummary, error)
	Get(id int) (*ledger.LogSummary, error)
	// List returns every row ordered by id.
	List() ([]*ledger.LogSummary, error)
	// ForPackage returns the rows for one archive package, ordered by id.
	ForPackage(name string) ([]*ledger.LogSummary, error)
	// MarkArchivePurged clears the archive-exists flag of a row.
	MarkArchivePurged(id int) (*ledger.LogSummary, error)
}

type row struct {
	pkg  string
	data []byte
}

// Memory keeps encoded rows in memory. Rows are decoded on every read so
// callers never share state with the store.
type Memory struct {
	mu   sync.RWMutex
	next int
	rows map[int]row
}

// NewMemory returns an empty store whose first assigned id is 1.
func NewMemory() *Memory {
	return &Memory{next: 1, rows: make(map[int]row)}
}

// Save stamps an unpersisted s with the next id and keeps its encoded form.
func (m *Memory) Save(s *ledger.LogSummary) (*ledger.LogSummary, error) {
	if s == nil {
		return nil, contract.Required("logSummary")
	}
	if s.IsPersisted() {
		return nil, contract.Invalid("id", fmt.Sprintf("already assigned (%d)", s.ID()))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	stored, err := s.WithID(m.next)
	if err != nil {
		return nil, err
	}
	data, err := contract.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("encoding log %d: %w", m.next, err)
	}
	m.rows[m.next] = row{pkg: ledger.PackageName(stored.Package()), data: data}
	m.next++
	return stored, nil
}

// Get decodes the row with the given id, or returns ErrNotFound.
func (m *Memory) Get(id int) (*ledger.LogSummary, error) {
	m.mu.RLock()
	r, ok := m.rows[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("log %d: %w", id, ErrNotFound)
	}
	return decodeRow(id, r)
}

// List returns every stored row ordered by id.
func (m *Memory) List() ([]*ledger.LogSummary, error) {
	return m.collect(func(row) bool { return true })
}

// ForPackage returns the rows stored under package name, ordered by id.
func (m *Memory) ForPackage(name string) ([]*ledger.LogSummary, error) {
	return m.collect(func(r row) bool { return r.pkg == name })
}

// MarkArchivePurged rewrites row id with archiveExist=false and returns it.
func (m *Memory) MarkArchivePurged(id int) (*ledger.LogSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, fmt.Errorf("log %d: %w", id, ErrNotFound)
	}
	s, err := decodeRow(id, r)
	if err != nil {
		return nil, err
	}
	purged := s.WithArchiveExists(false)
	data, err := contract.Marshal(purged)
	if err != nil {
		return nil, fmt.Errorf("encoding log %d: %w", id, err)
	}
	m.rows[id] = row{pkg: r.pkg, data: data}
	return purged, nil
}

func (m *Memory) collect(keep func(row) bool) ([]*ledger.LogSummary, error) {
	m.mu.RLock()
	ids := make([]int, 0, len(m.rows))
	rows := make(map[int]row)
	for id, r := range m.rows {
		if keep(r) {
			ids = append(ids, id)
			rows[id] = r
		}
	}
	m.mu.RUnlock()

	sort.Ints(ids)
	out := make([]*ledger.LogSummary, 0, len(ids))
	for _, id := range ids {
		s, err := decodeRow(id, rows[id])
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func decodeRow(id int, r row) (*ledger.LogSummary, error) {
	s, err := contract.Unmarshal(r.data, ledger.DecodeLogSummary)
	if err != nil {
		return nil, fmt.Errorf("decoding log %d: %w", id, err)
	}
	return s, nil
}
