package store

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/precip-subset/internal/pipeline"
)

var (
	// ErrNotFound is returned when no run matches the query.
	ErrNotFound = errors.New("no run found")
)

// MemoryStore is a concurrency-safe in-memory history of pipeline runs,
// ordered by start time.
type MemoryStore struct {
	mu sync.RWMutex

	reports []pipeline.RunReport

	// retention configuration
	maxHistory int           // max number of reports kept
	maxAge     time.Duration // optional max age for reports

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// SaveReport appends a report and enforces retention.
func (s *MemoryStore) SaveReport(report pipeline.RunReport) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Keep the history sorted by start time even if reports arrive late.
	i := len(s.reports)
	for i > 0 && s.reports[i-1].StartedAt.After(report.StartedAt) {
		i--
	}
	s.reports = append(s.reports, pipeline.RunReport{})
	copy(s.reports[i+1:], s.reports[i:])
	s.reports[i] = report

	// Enforce retention by count.
	if s.maxHistory > 0 && len(s.reports) > s.maxHistory {
		over := len(s.reports) - s.maxHistory
		s.reports = s.reports[over:]
	}

	// Enforce retention by age. The newest report is always kept.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(s.reports)-1; i++ {
			if !s.reports[i].StartedAt.Before(cutoff) {
				break
			}
		}
		s.reports = s.reports[i:]
	}
}

// Get returns the report with the given id.
func (s *MemoryStore) Get(id uuid.UUID) (pipeline.RunReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.reports {
		if r.ID == id {
			return r, nil
		}
	}
	return pipeline.RunReport{}, ErrNotFound
}

// GetLatest returns the most recent report.
func (s *MemoryStore) GetLatest() (pipeline.RunReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.reports) == 0 {
		return pipeline.RunReport{}, ErrNotFound
	}
	return s.reports[len(s.reports)-1], nil
}

// GetLatestSucceeded returns the most recent report of a run that wrote its
// output.
func (s *MemoryStore) GetLatestSucceeded() (pipeline.RunReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.reports) - 1; i >= 0; i-- {
		if s.reports[i].Succeeded() {
			return s.reports[i], nil
		}
	}
	return pipeline.RunReport{}, ErrNotFound
}

// GetRange returns all reports started between from and to (inclusive).
func (s *MemoryStore) GetRange(from, to time.Time) ([]pipeline.RunReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []pipeline.RunReport
	for _, r := range s.reports {
		if !r.StartedAt.Before(from) && !r.StartedAt.After(to) {
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}
