package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/anniversary/internal/models"
)

// Memory is an in-process UnitOfWork. Units of work are serialized by a single
// mutex and run against a staged copy that replaces the live state only when
// the unit succeeds. It enforces the same uniqueness rules as the SQL schema.
type Memory struct {
	mu    sync.Mutex
	state *memState
}

func NewMemory() *Memory {
	return &Memory{state: newMemState()}
}

func (m *Memory) Within(ctx context.Context, fn func(Stores) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	staged := m.state.clone()
	if err := fn(memStores{st: staged}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.state = staged
	return nil
}

func (m *Memory) Read(ctx context.Context, fn func(Stores) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	return fn(memStores{st: m.state.clone()})
}

// Snapshot returns copies of every stored record. Requests keep insertion
// order.
func (m *Memory) Snapshot() (users []models.User, requests []models.CoupleRequest, couples []models.Couple) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.state.clone()
	for _, u := range st.users {
		users = append(users, u)
	}
	for _, id := range st.requestOrder {
		requests = append(requests, st.requests[id])
	}
	for _, c := range st.couples {
		couples = append(couples, c)
	}
	return users, requests, couples
}

type memState struct {
	users        map[uuid.UUID]models.User
	requests     map[uuid.UUID]models.CoupleRequest
	requestOrder []uuid.UUID
	couples      map[uuid.UUID]models.Couple
}

func newMemState() *memState {
	return &memState{
		users:    map[uuid.UUID]models.User{},
		requests: map[uuid.UUID]models.CoupleRequest{},
		couples:  map[uuid.UUID]models.Couple{},
	}
}

func (s *memState) clone() *memState {
	out := &memState{
		users:        make(map[uuid.UUID]models.User, len(s.users)),
		requests:     make(map[uuid.UUID]models.CoupleRequest, len(s.requests)),
		requestOrder: append([]uuid.UUID(nil), s.requestOrder...),
		couples:      make(map[uuid.UUID]models.Couple, len(s.couples)),
	}
	for id, u := range s.users {
		out.users[id] = copyUser(u)
	}
	for id, r := range s.requests {
		out.requests[id] = r
	}
	for id, c := range s.couples {
		out.couples[id] = copyCouple(c)
	}
	return out
}

func copyUser(u models.User) models.User {
	if u.CoupleID != nil {
		id := *u.CoupleID
		u.CoupleID = &id
	}
	return u
}

func copyCouple(c models.Couple) models.Couple {
	if c.AnniversaryDate != nil {
		d := *c.AnniversaryDate
		c.AnniversaryDate = &d
	}
	return c
}

type memStores struct {
	st *memState
}

func (s memStores) Users() UserDirectory  { return memUsers(s) }
func (s memStores) Requests() RequestStore { return memRequests(s) }
func (s memStores) Couples() CoupleStore   { return memCouples(s) }

type memUsers struct {
	st *memState
}

func (u memUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := u.st.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := copyUser(user)
	return &out, nil
}

func (u memUsers) FindByInviteCode(_ context.Context, code string) (*models.User, error) {
	code = models.NormalizeInviteCode(code)
	for _, user := range u.st.users {
		if user.InviteCode == code {
			out := copyUser(user)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (u memUsers) LockUsers(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]*models.User, error) {
	locked := make(map[uuid.UUID]*models.User, len(ids))
	for _, id := range sortedUnique(ids) {
		user, err := u.FindByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("locking user %s: %w", id, err)
		}
		locked[id] = user
	}
	return locked, nil
}

func (u memUsers) UpdateCoupleID(_ context.Context, userID uuid.UUID, coupleID *uuid.UUID) error {
	user, ok := u.st.users[userID]
	if !ok {
		return ErrNotFound
	}
	user.CoupleID = nil
	if coupleID != nil {
		id := *coupleID
		user.CoupleID = &id
	}
	user.UpdatedAt = time.Now()
	u.st.users[userID] = user
	return nil
}

func (u memUsers) Insert(_ context.Context, user *models.User) error {
	for _, existing := range u.st.users {
		if strings.EqualFold(existing.Username, user.Username) {
			return fmt.Errorf("%w: users_username_key", ErrUniqueViolation)
		}
		if existing.InviteCode == user.InviteCode {
			return fmt.Errorf("%w: users_invite_code_key", ErrUniqueViolation)
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	u.st.users[user.ID] = copyUser(*user)
	return nil
}

func (u memUsers) UpdateDisplayName(_ context.Context, userID uuid.UUID, displayName string) (*models.User, error) {
	user, ok := u.st.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	user.DisplayName = displayName
	user.UpdatedAt = time.Now()
	u.st.users[userID] = user
	out := copyUser(user)
	return &out, nil
}

type memRequests struct {
	st *memState
}

func (r memRequests) Insert(_ context.Context, req *models.CoupleRequest) error {
	if !req.Status.Valid() {
		return fmt.Errorf("unknown couple request status %q", req.Status)
	}
	if req.IsPending() {
		for _, existing := range r.st.requests {
			if existing.FromUserID == req.FromUserID && existing.IsPending() {
				return fmt.Errorf("%w: couple_requests_one_pending_per_sender", ErrUniqueViolation)
			}
		}
	}
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	r.st.requests[req.ID] = *req
	r.st.requestOrder = append(r.st.requestOrder, req.ID)
	return nil
}

func (r memRequests) FindByID(_ context.Context, id uuid.UUID, _ bool) (*models.CoupleRequest, error) {
	req, ok := r.st.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &req, nil
}

func (r memRequests) pending(match func(models.CoupleRequest) bool) []*models.CoupleRequest {
	out := []*models.CoupleRequest{}
	for _, id := range r.st.requestOrder {
		req := r.st.requests[id]
		if req.IsPending() && match(req) {
			out = append(out, &req)
		}
	}
	return out
}

func (r memRequests) FindPendingByFrom(_ context.Context, userID uuid.UUID) (*models.CoupleRequest, error) {
	found := r.pending(func(req models.CoupleRequest) bool { return req.FromUserID == userID })
	if len(found) == 0 {
		return nil, ErrNotFound
	}
	return found[len(found)-1], nil
}

func (r memRequests) FindPendingByTo(_ context.Context, userID uuid.UUID) ([]*models.CoupleRequest, error) {
	return r.pending(func(req models.CoupleRequest) bool { return req.ToUserID == userID }), nil
}

func (r memRequests) FindPendingBetween(_ context.Context, fromUserID, toUserID uuid.UUID) (*models.CoupleRequest, error) {
	found := r.pending(func(req models.CoupleRequest) bool {
		return req.FromUserID == fromUserID && req.ToUserID == toUserID
	})
	if len(found) == 0 {
		return nil, ErrNotFound
	}
	return found[0], nil
}

func (r memRequests) UpdateStatus(_ context.Context, id uuid.UUID, status models.CoupleRequestStatus) error {
	req, ok := r.st.requests[id]
	if !ok || !req.IsPending() {
		return ErrStaleState
	}
	if err := req.Transition(status); err != nil {
		return err
	}
	r.st.requests[id] = req
	return nil
}

type memCouples struct {
	st *memState
}

func (c memCouples) Insert(_ context.Context, couple *models.Couple) error {
	if couple.IsActive() {
		for _, existing := range c.st.couples {
			if !existing.IsActive() {
				continue
			}
			if existing.HasParticipant(couple.User1ID) || existing.HasParticipant(couple.User2ID) {
				return fmt.Errorf("%w: couples_one_active_per_user", ErrUniqueViolation)
			}
		}
	}
	if couple.ID == uuid.Nil {
		couple.ID = uuid.New()
	}
	c.st.couples[couple.ID] = copyCouple(*couple)
	return nil
}

func (c memCouples) FindActiveByParticipant(_ context.Context, userID uuid.UUID) (*models.Couple, error) {
	for _, couple := range c.st.couples {
		if couple.IsActive() && couple.HasParticipant(userID) {
			out := copyCouple(couple)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (c memCouples) UpdateStatus(_ context.Context, id uuid.UUID, status models.CoupleStatus) error {
	couple, ok := c.st.couples[id]
	if !ok || !couple.IsActive() {
		return ErrStaleState
	}
	if err := couple.Transition(status); err != nil {
		return err
	}
	c.st.couples[id] = couple
	return nil
}

func (c memCouples) UpdateAnniversary(_ context.Context, id uuid.UUID, date time.Time) error {
	couple, ok := c.st.couples[id]
	if !ok || !couple.IsActive() {
		return ErrStaleState
	}
	couple.AnniversaryDate = &date
	c.st.couples[id] = couple
	return nil
}
