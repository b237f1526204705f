package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/HammerMeetNail/anniversary/internal/database"
	"github.com/HammerMeetNail/anniversary/internal/logging"
	"github.com/HammerMeetNail/anniversary/internal/models"
	"github.com/HammerMeetNail/anniversary/internal/store"
)

type fakeUoW struct {
	WithinFunc func(ctx context.Context, fn func(store.Stores) error) error
	ReadFunc   func(ctx context.Context, fn func(store.Stores) error) error
}

func (u *fakeUoW) Within(ctx context.Context, fn func(store.Stores) error) error {
	if u.WithinFunc == nil {
		return errors.New("within not configured")
	}
	return u.WithinFunc(ctx, fn)
}

func (u *fakeUoW) Read(ctx context.Context, fn func(store.Stores) error) error {
	if u.ReadFunc == nil {
		return errors.New("read not configured")
	}
	return u.ReadFunc(ctx, fn)
}

type fakeRow struct {
	scanFunc func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scanFunc(dest...) }

func rowFromValues(values ...any) fakeRow {
	return fakeRow{scanFunc: func(dest ...any) error {
		if len(dest) != len(values) {
			return fmt.Errorf("scan: got %d destinations for %d values", len(dest), len(values))
		}
		for i, d := range dest {
			reflect.ValueOf(d).Elem().Set(reflect.ValueOf(values[i]))
		}
		return nil
	}}
}

type fakeConn struct {
	QueryRowFunc func(ctx context.Context, sql string, args ...any) database.Row
}

func (c *fakeConn) Exec(context.Context, string, ...any) (database.CommandTag, error) {
	return nil, errors.New("exec not configured")
}

func (c *fakeConn) Query(context.Context, string, ...any) (database.Rows, error) {
	return nil, errors.New("query not configured")
}

func (c *fakeConn) QueryRow(ctx context.Context, sql string, args ...any) database.Row {
	return c.QueryRowFunc(ctx, sql, args...)
}

type fakeSessionCache struct {
	values  map[string]string
	getErr  error
	expired []string
	set     map[string]time.Duration
}

func (c *fakeSessionCache) Get(_ context.Context, key string) *redis.StringCmd {
	if c.getErr != nil {
		return redis.NewStringResult("", c.getErr)
	}
	v, ok := c.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (c *fakeSessionCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if c.set == nil {
		c.set = map[string]time.Duration{}
	}
	c.set[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (c *fakeSessionCache) Expire(_ context.Context, key string, _ time.Duration) *redis.BoolCmd {
	c.expired = append(c.expired, key)
	return redis.NewBoolResult(true, nil)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []PairingEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event PairingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// pairingFixture wires a PairingService and UserService to one memory store
// with a fixed clock.
type pairingFixture struct {
	mem     *store.Memory
	pairing *PairingService
	users   *UserService
	events  *recordingPublisher
	now     time.Time
}

func newPairingFixture(t *testing.T) *pairingFixture {
	t.Helper()
	mem := store.NewMemory()
	f := &pairingFixture{
		mem:     mem,
		pairing: NewPairingService(mem),
		users:   NewUserService(mem),
		events:  &recordingPublisher{},
		now:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.pairing.SetClock(func() time.Time { return f.now })
	f.pairing.SetEventPublisher(f.events)
	f.pairing.SetLogger(logging.New().SetOutput(io.Discard))
	return f
}

// register creates a user with a fixed invite code.
func (f *pairingFixture) register(t *testing.T, username, code string) *models.User {
	t.Helper()
	f.users.newCode = func() string { return code }
	user, err := f.users.Create(context.Background(), models.CreateUserParams{Username: username})
	if err != nil {
		t.Fatalf("registering %s: %v", username, err)
	}
	return user
}

func (f *pairingFixture) user(t *testing.T, id fmt.Stringer) *models.User {
	t.Helper()
	for _, u := range f.snapshotUsers() {
		if u.ID.String() == id.String() {
			return &u
		}
	}
	t.Fatalf("user %s not found", id)
	return nil
}

func (f *pairingFixture) snapshotUsers() []models.User {
	users, _, _ := f.mem.Snapshot()
	return users
}

func (f *pairingFixture) request(t *testing.T, id fmt.Stringer) models.CoupleRequest {
	t.Helper()
	_, requests, _ := f.mem.Snapshot()
	for _, r := range requests {
		if r.ID.String() == id.String() {
			return r
		}
	}
	t.Fatalf("request %s not found", id)
	return models.CoupleRequest{}
}

func (f *pairingFixture) couple(t *testing.T, id fmt.Stringer) models.Couple {
	t.Helper()
	_, _, couples := f.mem.Snapshot()
	for _, c := range couples {
		if c.ID.String() == id.String() {
			return c
		}
	}
	t.Fatalf("couple %s not found", id)
	return models.Couple{}
}

// racingStores wraps a unit of work's stores so that a request status update
// first sees the request finished by a competing transaction, the way a
// concurrent cancel commits between a read and the conditional update.
type racingStores struct {
	store.Stores
	finishedAs models.CoupleRequestStatus
	raced      map[uuid.UUID]bool
}

func (s racingStores) Requests() store.RequestStore {
	return racingRequests{RequestStore: s.Stores.Requests(), stores: s}
}

type racingRequests struct {
	store.RequestStore
	stores racingStores
}

func (r racingRequests) UpdateStatus(ctx context.Context, id uuid.UUID, status models.CoupleRequestStatus) error {
	if !r.stores.raced[id] {
		r.stores.raced[id] = true
		if err := r.RequestStore.UpdateStatus(ctx, id, r.stores.finishedAs); err != nil {
			return err
		}
	}
	return r.RequestStore.UpdateStatus(ctx, id, status)
}

// racingUoW runs every unit of work against mem through racingStores.
func racingUoW(mem *store.Memory, finishedAs models.CoupleRequestStatus) *fakeUoW {
	raced := map[uuid.UUID]bool{}
	return &fakeUoW{
		WithinFunc: func(ctx context.Context, fn func(store.Stores) error) error {
			return mem.Within(ctx, func(st store.Stores) error {
				return fn(racingStores{Stores: st, finishedAs: finishedAs, raced: raced})
			})
		},
		ReadFunc: mem.Read,
	}
}
