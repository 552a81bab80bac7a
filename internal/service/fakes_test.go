package service

// In-memory repository fakes shared by the service tests. They reproduce the
// conditional-write semantics of the real repositories: transitions are keyed
// on the current status and report applied=false when the precondition no
// longer holds.

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"tillpoint/internal/model"
	"tillpoint/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var errNotFound = errors.New("not found")

// ── Session repository fake ──────────────────────────────────────────────────

type fakeSessionRepo struct {
	mu        sync.Mutex
	sessions  map[uuid.UUID]*model.Session
	movements []model.CashMovement
	// failNext makes the next write return a transient error.
	failNext bool
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[uuid.UUID]*model.Session)}
}

func (r *fakeSessionRepo) Create(_ context.Context, s *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *fakeSessionRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, errNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSessionRepo) FindOpenByTerminal(_ context.Context, locationID uuid.UUID, terminalID string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.LocationID == locationID && s.TerminalID == terminalID && s.Status == model.SessionOpen {
			cp := *s
			return &cp, nil
		}
	}
	return nil, errNotFound
}

func (r *fakeSessionRepo) CloseTemporary(_ context.Context, id uuid.UUID, closedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext {
		r.failNext = false
		return false, errors.New("connection reset")
	}
	s, ok := r.sessions[id]
	if !ok || s.Status != model.SessionOpen {
		return false, nil
	}
	s.Status = model.SessionTemporarilyClosed
	s.ClosedAt = &closedAt
	return true, nil
}

func (r *fakeSessionRepo) ClosePermanent(_ context.Context, id uuid.UUID, fromStatus string, close repository.SessionClose) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext {
		r.failNext = false
		return false, errors.New("connection reset")
	}
	s, ok := r.sessions[id]
	if !ok || s.Status != fromStatus {
		return false, nil
	}
	closedAt := close.ClosedAt
	expected, counted, variance := close.ExpectedCash, close.CountedCash, close.Variance
	s.Status = model.SessionPermanentlyClosed
	s.ClosedAt = &closedAt
	s.ExpectedCash = &expected
	s.CountedCash = &counted
	s.Variance = &variance
	s.VarianceReason = close.VarianceReason
	return true, nil
}

func (r *fakeSessionRepo) Reopen(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.Status != model.SessionTemporarilyClosed {
		return false, nil
	}
	s.Status = model.SessionOpen
	s.ClosedAt = nil
	return true, nil
}

func (r *fakeSessionRepo) ListClosedInWindow(_ context.Context, locationID uuid.UUID, from, to time.Time) ([]model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Session
	for _, s := range r.sessions {
		if s.LocationID != locationID || s.Status == model.SessionOpen || s.ClosedAt == nil {
			continue
		}
		if s.ClosedAt.Before(from) || !s.ClosedAt.Before(to) {
			continue
		}
		out = append(out, *s)
	}
	// closed_at DESC, matching the real repository's ORDER BY
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].ClosedAt.After(*out[i].ClosedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) AppendMovement(_ context.Context, m *model.CashMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.movements = append(r.movements, *m)
	return nil
}

func (r *fakeSessionRepo) SumMovements(_ context.Context, sessionID uuid.UUID) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := decimal.Zero
	for _, m := range r.movements {
		if m.SessionID == sessionID {
			sum = sum.Add(m.Amount)
		}
	}
	return sum, nil
}

func (r *fakeSessionRepo) CountForDate(_ context.Context, locationID uuid.UUID, from, to time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.sessions {
		if s.LocationID == locationID && !s.OpenedAt.Before(from) && s.OpenedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

var _ repository.SessionRepository = (*fakeSessionRepo)(nil)

// ── Interim repository fake ──────────────────────────────────────────────────

type fakeInterimRepo struct {
	mu      sync.Mutex
	entries []model.InterimSettlement
}

func (r *fakeInterimRepo) Append(_ context.Context, entry *model.InterimSettlement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	maxSeq := 0
	for _, e := range r.entries {
		if e.SessionID == entry.SessionID && e.Sequence > maxSeq {
			maxSeq = e.Sequence
		}
	}
	entry.Sequence = maxSeq + 1
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeInterimRepo) ListBySession(_ context.Context, sessionID uuid.UUID) ([]model.InterimSettlement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.InterimSettlement
	for _, e := range r.entries {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out, nil
}

var _ repository.InterimRepository = (*fakeInterimRepo)(nil)

// ── Location repository fake ─────────────────────────────────────────────────

type fakeLocationRepo struct {
	locations map[uuid.UUID]*model.Location
}

func newFakeLocationRepo(locs ...*model.Location) *fakeLocationRepo {
	r := &fakeLocationRepo{locations: make(map[uuid.UUID]*model.Location)}
	for _, l := range locs {
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		r.locations[l.ID] = l
	}
	return r
}

func (r *fakeLocationRepo) Create(_ context.Context, l *model.Location) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	r.locations[l.ID] = l
	return nil
}

func (r *fakeLocationRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Location, error) {
	l, ok := r.locations[id]
	if !ok {
		return nil, errNotFound
	}
	return l, nil
}

func (r *fakeLocationRepo) List(_ context.Context) ([]model.Location, error) {
	var out []model.Location
	for _, l := range r.locations {
		out = append(out, *l)
	}
	return out, nil
}

var _ repository.LocationRepository = (*fakeLocationRepo)(nil)

// ── Day repository fake ──────────────────────────────────────────────────────

type fakeDayRepo struct {
	mu   sync.Mutex
	days map[uuid.UUID]*model.DayRecord
	// failWrites makes Close fail with a transient error this many times.
	failWrites int
	// closeCount counts applied closes (idempotence assertions).
	closeCount int
}

func newFakeDayRepo() *fakeDayRepo {
	return &fakeDayRepo{days: make(map[uuid.UUID]*model.DayRecord)}
}

func (r *fakeDayRepo) Create(_ context.Context, d *model.DayRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	cp := *d
	r.days[d.ID] = &cp
	return nil
}

func (r *fakeDayRepo) FindByID(_ context.Context, id uuid.UUID) (*model.DayRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.days[id]
	if !ok {
		return nil, errNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *fakeDayRepo) FindByLocationDate(_ context.Context, locationID uuid.UUID, businessDate time.Time) (*model.DayRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.days {
		if d.LocationID == locationID && d.BusinessDate.Equal(businessDate) {
			cp := *d
			return &cp, nil
		}
	}
	return nil, errNotFound
}

func (r *fakeDayRepo) Close(_ context.Context, id uuid.UUID, closedAt time.Time, checklist model.Checklist, snapshot json.RawMessage) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites > 0 {
		r.failWrites--
		return false, errors.New("connection reset")
	}
	d, ok := r.days[id]
	if !ok || d.Status != model.DayOpen {
		return false, nil
	}
	d.Status = model.DayClosed
	d.ClosedAt = &closedAt
	d.Checklist = checklist
	d.SettlementSnapshot = snapshot
	r.closeCount++
	return true, nil
}

func (r *fakeDayRepo) MarkReportSent(_ context.Context, id uuid.UUID, sentAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.days[id]
	if !ok {
		return errNotFound
	}
	d.ReportSentAt = &sentAt
	return nil
}

func (r *fakeDayRepo) ListClosedUnreported(_ context.Context, closedBefore time.Time, limit int) ([]model.DayRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.DayRecord
	for _, d := range r.days {
		if d.Status == model.DayClosed && d.ReportSentAt == nil && d.ClosedAt != nil && d.ClosedAt.Before(closedBefore) {
			out = append(out, *d)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

var _ repository.DayRepository = (*fakeDayRepo)(nil)
