package integration

import (
	"context"
	"sync"
	"time"

	"ride-token-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory User Repo ---

type inMemoryUserRepo struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*domain.User
}

func newInMemoryUserRepo() *inMemoryUserRepo {
	return &inMemoryUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *inMemoryUserRepo) Create(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Phone == u.Phone {
			return domain.ErrPhoneExists
		}
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *inMemoryUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *inMemoryUserRepo) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Phone == phone {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

// --- In-Memory Account Repo (accounts + ledger) ---

type inMemoryAccountRepo struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*domain.Account
	ledger   []domain.LedgerEntry
}

func newInMemoryAccountRepo() *inMemoryAccountRepo {
	return &inMemoryAccountRepo{accounts: make(map[uuid.UUID]*domain.Account)}
}

func (r *inMemoryAccountRepo) Create(ctx context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.accounts[a.UserID] = &cp
	return nil
}

func (r *inMemoryAccountRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[userID]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *inMemoryAccountRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Account, error) {
	return r.GetByUserID(ctx, userID)
}

func (r *inMemoryAccountRepo) AdjustBalance(ctx context.Context, tx pgx.Tx, userID uuid.UUID, delta int64, reason domain.LedgerReason, referenceID string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[userID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	if a.TokenBalance+delta < 0 {
		return nil, domain.ErrInsufficientBalance
	}
	a.TokenBalance += delta
	a.UpdatedAt = time.Now().UTC()
	r.ledger = append(r.ledger, domain.LedgerEntry{
		ID:          uuid.New(),
		UserID:      userID,
		Delta:       delta,
		Reason:      reason,
		ReferenceID: referenceID,
		CreatedAt:   a.UpdatedAt,
	})
	cp := *a
	return &cp, nil
}

func (r *inMemoryAccountRepo) DeductUpTo(ctx context.Context, tx pgx.Tx, userID uuid.UUID, max int64, reason domain.LedgerReason, referenceID string) (int64, *domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[userID]
	if !ok {
		return 0, nil, domain.ErrAccountNotFound
	}
	deduct := max
	if a.TokenBalance < deduct {
		deduct = a.TokenBalance
	}
	a.TokenBalance -= deduct
	a.UpdatedAt = time.Now().UTC()
	if deduct > 0 {
		r.ledger = append(r.ledger, domain.LedgerEntry{
			ID:          uuid.New(),
			UserID:      userID,
			Delta:       -deduct,
			Reason:      reason,
			ReferenceID: referenceID,
			CreatedAt:   a.UpdatedAt,
		})
	}
	cp := *a
	return deduct, &cp, nil
}

func (r *inMemoryAccountRepo) RecordRiderNoShow(ctx context.Context, tx pgx.Tx, userID uuid.UUID, noShowCount int, lastNoShowAt time.Time, restricted bool, until *time.Time) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[userID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	a.NoShowCount = noShowCount
	a.LastNoShowAt = &lastNoShowAt
	a.IsRestricted = restricted
	a.RestrictionUntil = until
	a.UpdatedAt = time.Now().UTC()
	cp := *a
	return &cp, nil
}

func (r *inMemoryAccountRepo) ClearExpiredRestriction(ctx context.Context, userID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[userID]
	if !ok {
		return false, domain.ErrAccountNotFound
	}
	if !a.IsRestricted {
		return false, nil
	}
	a.IsRestricted = false
	a.RestrictionUntil = nil
	a.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *inMemoryAccountRepo) ListLedgerEntries(ctx context.Context, userID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.LedgerEntry
	for i := len(r.ledger) - 1; i >= 0; i-- {
		if r.ledger[i].UserID != userID {
			continue
		}
		result = append(result, r.ledger[i])
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

// --- In-Memory Event Repo ---

type inMemoryEventRepo struct {
	mu     sync.Mutex
	events map[string]*domain.ExternalEventRecord
}

func newInMemoryEventRepo() *inMemoryEventRepo {
	return &inMemoryEventRepo{events: make(map[string]*domain.ExternalEventRecord)}
}

func (r *inMemoryEventRepo) Begin(ctx context.Context, record *domain.ExternalEventRecord) (*domain.ExternalEventRecord, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.events[record.ExternalID]; ok {
		cp := *existing
		return &cp, false, nil
	}
	cp := *record
	cp.Status = domain.EventStatusPending
	now := time.Now().UTC()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	r.events[record.ExternalID] = &cp
	out := cp
	return &out, true, nil
}

func (r *inMemoryEventRepo) Get(ctx context.Context, externalID string) (*domain.ExternalEventRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[externalID]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (r *inMemoryEventRepo) Complete(ctx context.Context, tx pgx.Tx, externalID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[externalID]
	if !ok || e.Status != domain.EventStatusPending {
		return domain.ErrEventNotPending
	}
	e.Status = domain.EventStatusCompleted
	e.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *inMemoryEventRepo) Fail(ctx context.Context, externalID string, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[externalID]
	if !ok || e.Status != domain.EventStatusPending {
		return domain.ErrEventNotPending
	}
	e.Status = domain.EventStatusFailed
	e.FailureReason = &reason
	e.UpdatedAt = time.Now().UTC()
	return nil
}

// --- In-Memory Trip Repo ---

type inMemoryTripRepo struct {
	mu    sync.Mutex
	trips map[uuid.UUID]*domain.Trip
}

func newInMemoryTripRepo() *inMemoryTripRepo {
	return &inMemoryTripRepo{trips: make(map[uuid.UUID]*domain.Trip)}
}

func (r *inMemoryTripRepo) Create(ctx context.Context, t *domain.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.trips[t.ID] = &cp
	return nil
}

func (r *inMemoryTripRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trips[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *inMemoryTripRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Trip, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryTripRepo) AssignDriver(ctx context.Context, tx pgx.Tx, id uuid.UUID, driverID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trips[id]
	if !ok {
		return domain.ErrTripNotFound
	}
	if t.Status != domain.TripStatusPending {
		return domain.ErrTripNotPending
	}
	t.DriverID = &driverID
	t.Status = domain.TripStatusAccepted
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *inMemoryTripRepo) MarkStarted(ctx context.Context, tx pgx.Tx, id uuid.UUID, startedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trips[id]
	if !ok {
		return domain.ErrTripNotFound
	}
	if t.Status != domain.TripStatusAccepted {
		return domain.ErrTripNotAccepted
	}
	t.Status = domain.TripStatusStarted
	t.StartedAt = &startedAt
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *inMemoryTripRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.TripStatus, reason *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trips[id]
	if !ok {
		return domain.ErrTripNotFound
	}
	t.Status = status
	t.CancellationReason = reason
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *inMemoryTripRepo) SetProposedPrice(ctx context.Context, id uuid.UUID, price int64) (*domain.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trips[id]
	if !ok {
		return nil, domain.ErrTripNotFound
	}
	if t.Status != domain.TripStatusPending {
		return nil, domain.ErrTripNotPending
	}
	t.ProposedPrice = &price
	t.UpdatedAt = time.Now().UTC()
	cp := *t
	return &cp, nil
}

func (r *inMemoryTripRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Trip
	for _, t := range r.trips {
		if t.RiderID == userID || (t.DriverID != nil && *t.DriverID == userID) {
			result = append(result, *t)
		}
	}
	return result, nil
}

// --- In-Memory No-Show Repo ---

type inMemoryNoShowRepo struct {
	mu        sync.Mutex
	reports   map[uuid.UUID]*domain.NoShowReport
	penalties map[uuid.UUID]*domain.NoShowPenalty
}

func newInMemoryNoShowRepo() *inMemoryNoShowRepo {
	return &inMemoryNoShowRepo{
		reports:   make(map[uuid.UUID]*domain.NoShowReport),
		penalties: make(map[uuid.UUID]*domain.NoShowPenalty),
	}
}

func (r *inMemoryNoShowRepo) CreateReport(ctx context.Context, tx pgx.Tx, report *domain.NoShowReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *report
	r.reports[report.ID] = &cp
	return nil
}

func (r *inMemoryNoShowRepo) CreatePenalty(ctx context.Context, tx pgx.Tx, penalty *domain.NoShowPenalty) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *penalty
	r.penalties[penalty.ID] = &cp
	return nil
}

func (r *inMemoryNoShowRepo) ListReportsByUser(ctx context.Context, userID uuid.UUID) ([]domain.NoShowReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.NoShowReport
	for _, rep := range r.reports {
		if rep.ReportedUserID == userID {
			result = append(result, *rep)
		}
	}
	return result, nil
}

func (r *inMemoryNoShowRepo) ListActivePenalties(ctx context.Context, userID uuid.UUID) ([]domain.NoShowPenalty, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.NoShowPenalty
	for _, p := range r.penalties {
		if p.UserID == userID && p.IsActive {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (r *inMemoryNoShowRepo) CountActivePenalties(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, p := range r.penalties {
		if p.UserID == userID && p.IsActive {
			count++
		}
	}
	return count, nil
}

func (r *inMemoryNoShowRepo) DeactivateExpired(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	var flipped int64
	for _, p := range r.penalties {
		if p.UserID == userID && p.IsActive && p.ExpiresAt != nil && p.ExpiresAt.Before(now) {
			p.IsActive = false
			flipped++
		}
	}
	return flipped, nil
}

// --- In-Memory Transactor (no-op tx) ---

type inMemoryTransactor struct{}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }
