package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/iotrix/puller-dispatch/internal/core/domain"
	"github.com/iotrix/puller-dispatch/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub repositories
// ---------------------------------------------------------------------------

type stubAccountRepo struct {
	mu   sync.Mutex
	byID map[string]*domain.Account
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{byID: make(map[string]*domain.Account)}
}

func cloneAccount(a *domain.Account) *domain.Account {
	clone := *a
	return &clone
}

func (r *stubAccountRepo) Create(_ context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Username == a.Username {
			return domain.ErrDuplicateUsername
		}
	}
	r.byID[a.ID] = cloneAccount(a)
	return nil
}

func (r *stubAccountRepo) FindByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return cloneAccount(a), nil
}

func (r *stubAccountRepo) FindByUsername(_ context.Context, username string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.Username == username {
			return cloneAccount(a), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *stubAccountRepo) ListPending(_ context.Context) ([]*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Account
	for _, a := range r.byID {
		if a.Role == domain.RolePuller && a.ApprovalStatus == domain.ApprovalPending {
			out = append(out, cloneAccount(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// SetApproval mirrors the conditional update of the real repository.
func (r *stubAccountRepo) SetApproval(_ context.Context, id string, from, to domain.ApprovalStatus, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok || a.Role != domain.RolePuller || a.ApprovalStatus != from {
		return false, nil
	}
	a.ApprovalStatus = to
	a.DecidedAt = &at
	a.UpdatedAt = at
	return true, nil
}

func (r *stubAccountRepo) AddCompletion(_ context.Context, id string, points int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.Points += points
	a.CompletedRides++
	return nil
}

func (r *stubAccountRepo) SetRating(_ context.Context, id string, rating *float64, ratedRides int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.Rating = rating
	a.RatedRides = ratedRides
	return nil
}

func (r *stubAccountRepo) TopPullers(_ context.Context, limit int) ([]*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Account
	for _, a := range r.byID {
		if a.Role == domain.RolePuller && a.ApprovalStatus == domain.ApprovalApproved {
			out = append(out, cloneAccount(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := out[i].Rating, out[j].Rating
		switch {
		case ri != nil && rj == nil:
			return true
		case ri == nil && rj != nil:
			return false
		case ri != nil && rj != nil && *ri != *rj:
			return *ri > *rj
		}
		return out[i].CompletedRides > out[j].CompletedRides
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *stubAccountRepo) CountPullers(_ context.Context, status domain.ApprovalStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, a := range r.byID {
		if a.Role == domain.RolePuller && a.ApprovalStatus == status {
			n++
		}
	}
	return n, nil
}

func (r *stubAccountRepo) TotalPoints(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, a := range r.byID {
		n += int64(a.Points)
	}
	return n, nil
}

type stubRideRepo struct {
	mu   sync.Mutex
	byID map[string]*domain.Ride
}

func newStubRideRepo() *stubRideRepo {
	return &stubRideRepo{byID: make(map[string]*domain.Ride)}
}

func cloneRide(r *domain.Ride) *domain.Ride {
	clone := *r
	clone.DeclinedBy = append([]string(nil), r.DeclinedBy...)
	return &clone
}

func (r *stubRideRepo) Create(_ context.Context, ride *domain.Ride) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[ride.ID] = cloneRide(ride)
	return nil
}

func (r *stubRideRepo) FindByID(_ context.Context, id string) (*domain.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ride, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrRideNotFound
	}
	return cloneRide(ride), nil
}

// List applies the same filters and ordering the Mongo repository uses.
func (r *stubRideRepo) List(_ context.Context, f ports.RideFilter) ([]*domain.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Ride
	for _, ride := range r.byID {
		if f.Status != "" && ride.Status != f.Status {
			continue
		}
		if f.ConsumerID != "" && ride.ConsumerID != f.ConsumerID {
			continue
		}
		if f.PullerID != "" && !ride.AssignedTo(f.PullerID) {
			continue
		}
		if f.OnlyRated && !ride.Rated() {
			continue
		}
		if f.NotDeclinedBy != "" && contains(ride.DeclinedBy, f.NotDeclinedBy) {
			continue
		}
		out = append(out, cloneRide(ride))
	}
	sort.Slice(out, func(i, j int) bool {
		if f.OldestFirst {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *stubRideRepo) Claim(_ context.Context, id, pullerID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ride, ok := r.byID[id]
	if !ok || ride.Status != domain.RideStatusPending {
		return false, nil
	}
	p := pullerID
	ride.Status = domain.RideStatusAccepted
	ride.PullerID = &p
	ride.AcceptedAt = &at
	return true, nil
}

func (r *stubRideRepo) Complete(_ context.Context, id, pullerID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ride, ok := r.byID[id]
	if !ok || ride.Status != domain.RideStatusAccepted || !ride.AssignedTo(pullerID) {
		return false, nil
	}
	ride.Status = domain.RideStatusCompleted
	ride.CompletedAt = &at
	return true, nil
}

func (r *stubRideRepo) RecordDecline(_ context.Context, id, pullerID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ride, ok := r.byID[id]
	if !ok || ride.Status != domain.RideStatusPending {
		return false, nil
	}
	if !contains(ride.DeclinedBy, pullerID) {
		ride.DeclinedBy = append(ride.DeclinedBy, pullerID)
	}
	return true, nil
}

func (r *stubRideRepo) SetRating(_ context.Context, id string, rating int, review *string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ride, ok := r.byID[id]
	if !ok || ride.Status != domain.RideStatusCompleted || ride.Rating != nil {
		return false, nil
	}
	ride.Rating = &rating
	ride.Review = review
	return true, nil
}

func (r *stubRideRepo) RatingStats(_ context.Context, pullerID string) (ports.RatingStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stats ports.RatingStats
	for _, ride := range r.byID {
		if ride.AssignedTo(pullerID) && ride.Rating != nil {
			stats.Sum += int64(*ride.Rating)
			stats.Count++
		}
	}
	return stats, nil
}

func (r *stubRideRepo) CountByStatus(_ context.Context) (map[domain.RideStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[domain.RideStatus]int64)
	for _, ride := range r.byID {
		out[ride.Status]++
	}
	return out, nil
}

func (r *stubRideRepo) DestinationHistogram(_ context.Context, limit int) ([]domain.DestinationCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int64)
	for _, ride := range r.byID {
		counts[ride.Destination]++
	}
	out := make([]domain.DestinationCount, 0, len(counts))
	for d, n := range counts {
		out = append(out, domain.DestinationCount{Destination: d, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Destination < out[j].Destination
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *stubRideRepo) CountActivePullers(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]struct{})
	for _, ride := range r.byID {
		if ride.PullerID == nil {
			continue
		}
		if ride.Status == domain.RideStatusAccepted || ride.Status == domain.RideStatusCompleted {
			seen[*ride.PullerID] = struct{}{}
		}
	}
	return int64(len(seen)), nil
}

type stubNotificationRepo struct {
	mu        sync.Mutex
	items     []*domain.Notification
	insertErr error // if set, Insert returns this error
}

func (r *stubNotificationRepo) Insert(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	clone := *n
	r.items = append(r.items, &clone)
	return nil
}

func (r *stubNotificationRepo) ListUnread(_ context.Context, accountID string) ([]*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Notification
	for i := len(r.items) - 1; i >= 0; i-- {
		n := r.items[i]
		if n.AccountID == accountID && !n.IsRead {
			clone := *n
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *stubNotificationRepo) CountUnread(ctx context.Context, accountID string) (int64, error) {
	list, err := r.ListUnread(ctx, accountID)
	return int64(len(list)), err
}

// forAccount returns every notification for accountID in insertion order.
func (r *stubNotificationRepo) forAccount(accountID string) []*domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Notification
	for _, n := range r.items {
		if n.AccountID == accountID {
			out = append(out, n)
		}
	}
	return out
}

// passTx runs fn directly; the stubs apply writes immediately.
type passTx struct{}

func (passTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type recordingSink struct {
	mu     sync.Mutex
	events []domain.RideEvent
}

func (s *recordingSink) Enqueue(e domain.RideEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) types() []domain.RideEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.RideEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

type stubCache struct {
	mu   sync.Mutex
	data map[string][]byte
	hits int
	sets int
}

func newStubCache() *stubCache {
	return &stubCache{data: make(map[string][]byte)}
}

func (c *stubCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(raw, dst)
}

func (c *stubCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	c.sets++
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var discardLogger = zerolog.Nop()

var testEpoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// fakeClock advances one second on every reading.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func (c *fakeClock) set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type harness struct {
	accounts      *stubAccountRepo
	rides         *stubRideRepo
	notes         *stubNotificationRepo
	sink          *recordingSink
	cache         *stubCache
	clock         *fakeClock
	seq           int
	accountSvc    *AccountService
	approvals     *ApprovalService
	notifications *NotificationService
	ratings       *RatingService
	dispatch      *DispatchService
	analytics     *AnalyticsService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		accounts: newStubAccountRepo(),
		rides:    newStubRideRepo(),
		notes:    &stubNotificationRepo{},
		sink:     &recordingSink{},
		cache:    newStubCache(),
		clock:    &fakeClock{t: testEpoch},
	}
	h.accountSvc = NewAccountService(h.accounts, "test-secret", time.Hour, discardLogger)
	h.notifications = NewNotificationService(h.notes, h.accounts, discardLogger)
	h.approvals = NewApprovalService(h.accounts, h.notifications, passTx{}, discardLogger)
	h.ratings = NewRatingService(h.rides, h.accounts, h.notifications, passTx{}, h.sink, discardLogger)
	h.dispatch = NewDispatchService(h.rides, h.accounts, h.notifications, h.ratings, passTx{}, h.sink, discardLogger)
	h.analytics = NewAnalyticsService(h.rides, h.accounts, h.cache, time.Minute, discardLogger)

	h.accountSvc.now = h.clock.Now
	h.notifications.now = h.clock.Now
	h.approvals.now = h.clock.Now
	h.ratings.now = h.clock.Now
	h.dispatch.now = h.clock.Now
	h.analytics.now = h.clock.Now
	return h
}

// seed inserts an account directly, skipping password hashing.
func (h *harness) seed(t *testing.T, role domain.Role, status domain.ApprovalStatus) string {
	t.Helper()
	h.seq++
	now := h.clock.Now()
	a := &domain.Account{
		ID:             fmt.Sprintf("%s-%d", role, h.seq),
		Username:       fmt.Sprintf("%s_%d", role, h.seq),
		Role:           role,
		ApprovalStatus: status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := h.accounts.Create(context.Background(), a); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return a.ID
}

func (h *harness) admin(t *testing.T) string {
	return h.seed(t, domain.RoleAdmin, domain.ApprovalApproved)
}

func (h *harness) consumer(t *testing.T) string {
	return h.seed(t, domain.RoleConsumer, domain.ApprovalApproved)
}

func (h *harness) puller(t *testing.T) string {
	return h.seed(t, domain.RolePuller, domain.ApprovalApproved)
}

func (h *harness) submit(t *testing.T, consumerID, destination string) *domain.Ride {
	t.Helper()
	ride, err := h.dispatch.Submit(context.Background(), ports.SubmitRideInput{
		ConsumerID:  consumerID,
		Destination: destination,
	})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	return ride
}

// completed drives a fresh ride through claim and completion.
func (h *harness) completed(t *testing.T, consumerID, pullerID, destination string) *domain.Ride {
	t.Helper()
	ctx := context.Background()
	ride := h.submit(t, consumerID, destination)
	if _, err := h.dispatch.Claim(ctx, ride.ID, pullerID); err != nil {
		t.Fatalf("Claim returned error: %v", err)
	}
	done, err := h.dispatch.Complete(ctx, ride.ID, pullerID)
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	return done
}

func (h *harness) account(t *testing.T, id string) *domain.Account {
	t.Helper()
	a, err := h.accounts.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("FindByID(%s): %v", id, err)
	}
	return a
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
