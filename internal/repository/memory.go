package repository

import (
	"context"
	"sync"
	"time"

	"github.com/edcshuttle/passgate/internal/domain"
)

// MemoryPassRepository is the in-process ledger used when no DATABASE_URL is
// configured (single-box kiosk mode) and by the test suite. Each token gets
// its own lock so concurrent scans of different tokens never serialize
// against each other; the per-entry lock is the whole atomicity story for
// Consume.
type MemoryPassRepository struct {
	mu      sync.RWMutex
	entries map[string]*passEntry
}

type passEntry struct {
	mu   sync.Mutex
	pass domain.Pass
}

func NewMemoryPassRepository() *MemoryPassRepository {
	return &MemoryPassRepository{entries: make(map[string]*passEntry)}
}

func (r *MemoryPassRepository) Consume(ctx context.Context, token string, scanType domain.ScanType) (domain.ConsumeResult, error) {
	r.mu.RLock()
	entry, ok := r.entries[token]
	r.mu.RUnlock()

	if !ok {
		return domain.ConsumeResult{Outcome: domain.OutcomeInvalid, Message: domain.MsgInvalidQR}, nil
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.pass.LegUsed(scanType) {
		return domain.ConsumeResult{Outcome: domain.OutcomeAlreadyUsed, Message: domain.MsgAlreadyUsed}, nil
	}

	now := time.Now()
	if scanType == domain.ScanReturn {
		entry.pass.ReturnUsedAt = &now
	} else {
		entry.pass.DepartUsedAt = &now
	}
	return domain.ConsumeResult{Outcome: domain.OutcomeAllowed, Message: domain.MsgValidPass}, nil
}

func (r *MemoryPassRepository) GetByToken(ctx context.Context, token string) (*domain.Pass, error) {
	r.mu.RLock()
	entry, ok := r.entries[token]
	r.mu.RUnlock()

	if !ok {
		return nil, nil
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	p := entry.pass
	return &p, nil
}

func (r *MemoryPassRepository) Create(ctx context.Context, pass *domain.Pass) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := *pass
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	r.entries[p.Token] = &passEntry{pass: p}
	return nil
}

var _ PassRepository = (*MemoryPassRepository)(nil)

// MemoryScanRepository keeps the audit trail in memory, append-only.
type MemoryScanRepository struct {
	mu     sync.Mutex
	nextID int64
	events []domain.ScanEvent
}

func NewMemoryScanRepository() *MemoryScanRepository {
	return &MemoryScanRepository{nextID: 1}
}

func (r *MemoryScanRepository) Append(ctx context.Context, event *domain.ScanEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.ScannedAt.IsZero() {
		event.ScannedAt = time.Now()
	}
	event.ID = r.nextID
	r.nextID++
	r.events = append(r.events, *event)
	return nil
}

func (r *MemoryScanRepository) ListByToken(ctx context.Context, token string, limit int) ([]domain.ScanEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	limit = clampLimit(limit)
	var out []domain.ScanEvent
	for i := len(r.events) - 1; i >= 0 && len(out) < limit; i-- {
		if r.events[i].Token == token {
			out = append(out, r.events[i])
		}
	}
	return out, nil
}

func (r *MemoryScanRepository) ListByTimeRange(ctx context.Context, from, to time.Time, limit int) ([]domain.ScanEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	limit = clampLimit(limit)
	var out []domain.ScanEvent
	for i := len(r.events) - 1; i >= 0 && len(out) < limit; i-- {
		at := r.events[i].ScannedAt
		if !at.Before(from) && !at.After(to) {
			out = append(out, r.events[i])
		}
	}
	return out, nil
}

var _ ScanRepository = (*MemoryScanRepository)(nil)
