package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/anniversary/internal/logging"
	"github.com/HammerMeetNail/anniversary/internal/models"
	"github.com/HammerMeetNail/anniversary/internal/store"
)

// PairingService owns the couple request and couple lifecycles. It is the only
// writer of User.CoupleID, CoupleRequest.Status and Couple.Status.
type PairingService struct {
	uow    store.UnitOfWork
	now    func() time.Time
	logger *logging.Logger
	events EventPublisher
}

func NewPairingService(uow store.UnitOfWork) *PairingService {
	return &PairingService{
		uow:    uow,
		now:    time.Now,
		logger: logging.Default.WithField("component", "pairing"),
		events: nopPublisher{},
	}
}

func (s *PairingService) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *PairingService) SetLogger(logger *logging.Logger) {
	if logger != nil {
		s.logger = logger.WithField("component", "pairing")
	}
}

func (s *PairingService) SetEventPublisher(p EventPublisher) {
	if p == nil {
		p = nopPublisher{}
	}
	s.events = p
}

// within runs fn as one unit of work. Backstop constraint violations and
// conditional updates that lost a race surface as ErrPairingConflict.
func (s *PairingService) within(ctx context.Context, op string, fn func(store.Stores) error) error {
	err := s.uow.Within(ctx, fn)
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrUniqueViolation) || errors.Is(err, store.ErrStaleState) {
		s.logger.Warn("pairing conflict", map[string]interface{}{"op": op, "error": err})
		return ErrPairingConflict
	}
	if KindOf(err) == KindUnknown {
		s.logger.Error("pairing operation failed", map[string]interface{}{"op": op, "error": err})
		return fmt.Errorf("%s: %w", op, err)
	}
	return err
}

func (s *PairingService) SendRequestByInviteCode(ctx context.Context, fromUserID uuid.UUID, inviteCode string) (*models.CoupleRequest, error) {
	code := models.NormalizeInviteCode(inviteCode)
	if !models.ValidInviteCode(code) {
		return nil, ErrInviteCodeNotFound
	}

	var created *models.CoupleRequest
	var superseded []*models.CoupleRequest
	err := s.within(ctx, "sending couple request", func(st store.Stores) error {
		target, err := st.Users().FindByInviteCode(ctx, code)
		if errors.Is(err, store.ErrNotFound) {
			return ErrInviteCodeNotFound
		}
		if err != nil {
			return err
		}
		if target.ID == fromUserID {
			return ErrCannotPairSelf
		}

		users, err := st.Users().LockUsers(ctx, fromUserID, target.ID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}
		if users[fromUserID].IsCoupled() {
			return ErrSenderAlreadyCoupled
		}
		if users[target.ID].IsCoupled() {
			return ErrRecipientAlreadyCoupled
		}

		_, err = st.Requests().FindPendingBetween(ctx, fromUserID, target.ID)
		if err == nil {
			return ErrRequestAlreadyPending
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		gone := map[uuid.UUID]bool{}
		for {
			previous, err := st.Requests().FindPendingByFrom(ctx, fromUserID)
			if errors.Is(err, store.ErrNotFound) {
				break
			}
			if err != nil {
				return err
			}
			err = st.Requests().UpdateStatus(ctx, previous.ID, models.CoupleRequestStatusCancelled)
			if errors.Is(err, store.ErrStaleState) && !gone[previous.ID] {
				// Finished concurrently (cancelled, accepted or rejected); nothing
				// left to supersede.
				gone[previous.ID] = true
				continue
			}
			if err != nil {
				return err
			}
			previous.Status = models.CoupleRequestStatusCancelled
			superseded = append(superseded, previous)
		}

		req, err := models.NewCoupleRequest(fromUserID, target.ID, s.now())
		if err != nil {
			return ErrCannotPairSelf
		}
		if err := st.Requests().Insert(ctx, req); err != nil {
			return err
		}
		created = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, prev := range superseded {
		s.logger.Info("couple request superseded", map[string]interface{}{"request_id": prev.ID, "from_user_id": fromUserID})
		s.publish(ctx, EventRequestCancelled, prev.ID, uuid.Nil, fromUserID, prev.ToUserID)
	}
	s.logger.Info("couple request sent", map[string]interface{}{
		"request_id":   created.ID,
		"from_user_id": created.FromUserID,
		"to_user_id":   created.ToUserID,
	})
	s.publish(ctx, EventRequestSent, created.ID, uuid.Nil, created.FromUserID, created.ToUserID)
	return created, nil
}

func (s *PairingService) ListIncomingPending(ctx context.Context, userID uuid.UUID) ([]*models.CoupleRequest, error) {
	var requests []*models.CoupleRequest
	err := s.uow.Read(ctx, func(st store.Stores) error {
		var err error
		requests, err = st.Requests().FindPendingByTo(ctx, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing incoming requests: %w", err)
	}
	if requests == nil {
		requests = []*models.CoupleRequest{}
	}
	return requests, nil
}

// GetOutgoingPending returns nil when the user has no pending request.
func (s *PairingService) GetOutgoingPending(ctx context.Context, userID uuid.UUID) (*models.CoupleRequest, error) {
	var req *models.CoupleRequest
	err := s.uow.Read(ctx, func(st store.Stores) error {
		found, err := st.Requests().FindPendingByFrom(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		req = found
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("getting outgoing request: %w", err)
	}
	return req, nil
}

type party int

const (
	partySender party = iota
	partyRecipient
)

// loadPending reads a request and checks that actingUserID is the given party
// and that the request is still pending.
func loadPending(ctx context.Context, st store.Stores, requestID, actingUserID uuid.UUID, who party, forUpdate bool) (*models.CoupleRequest, error) {
	req, err := st.Requests().FindByID(ctx, requestID, forUpdate)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	switch who {
	case partySender:
		if req.FromUserID != actingUserID {
			return nil, ErrNotRequestSender
		}
	case partyRecipient:
		if req.ToUserID != actingUserID {
			return nil, ErrNotRequestRecipient
		}
	}
	if !req.IsPending() {
		return nil, ErrRequestNotPending
	}
	return req, nil
}

func (s *PairingService) CancelRequest(ctx context.Context, requestID, actingUserID uuid.UUID) error {
	var req *models.CoupleRequest
	err := s.within(ctx, "cancelling couple request", func(st store.Stores) error {
		var err error
		req, err = loadPending(ctx, st, requestID, actingUserID, partySender, true)
		if err != nil {
			return err
		}
		return st.Requests().UpdateStatus(ctx, req.ID, models.CoupleRequestStatusCancelled)
	})
	if err != nil {
		return err
	}

	s.logger.Info("couple request cancelled", map[string]interface{}{"request_id": requestID})
	s.publish(ctx, EventRequestCancelled, req.ID, uuid.Nil, req.FromUserID, req.ToUserID)
	return nil
}

// AcceptRequest pairs the request's sender and recipient. If either has been
// paired since the request was sent the call fails with ErrPairingConflict and
// the request stays pending.
func (s *PairingService) AcceptRequest(ctx context.Context, requestID, actingUserID uuid.UUID, anniversaryDate *time.Time) (*models.Couple, error) {
	now := s.now()
	if anniversaryDate != nil && anniversaryDate.After(now) {
		return nil, ErrInvalidAnniversary
	}

	var couple *models.Couple
	var req *models.CoupleRequest
	err := s.within(ctx, "accepting couple request", func(st store.Stores) error {
		peek, err := loadPending(ctx, st, requestID, actingUserID, partyRecipient, false)
		if err != nil {
			return err
		}

		// Users are locked before the request row, the same order
		// SendRequestByInviteCode uses when it supersedes older requests.
		users, err := st.Users().LockUsers(ctx, peek.FromUserID, peek.ToUserID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}
		req, err = loadPending(ctx, st, requestID, actingUserID, partyRecipient, true)
		if err != nil {
			return err
		}
		if users[req.FromUserID].IsCoupled() || users[req.ToUserID].IsCoupled() {
			return ErrPairingConflict
		}

		c, err := models.NewCouple(req.FromUserID, req.ToUserID, anniversaryDate, now)
		if err != nil {
			return err
		}
		if err := st.Couples().Insert(ctx, c); err != nil {
			return err
		}
		if err := st.Requests().UpdateStatus(ctx, req.ID, models.CoupleRequestStatusAccepted); err != nil {
			return err
		}
		for _, userID := range []uuid.UUID{c.User1ID, c.User2ID} {
			if err := st.Users().UpdateCoupleID(ctx, userID, &c.ID); err != nil {
				return err
			}
		}
		couple = c
		return nil
	})
	if errors.Is(err, ErrPairingConflict) {
		s.logger.Warn("couple request accept lost race", map[string]interface{}{"request_id": requestID, "user_id": actingUserID})
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("couple request accepted", map[string]interface{}{
		"request_id": requestID,
		"couple_id":  couple.ID,
	})
	s.publish(ctx, EventRequestAccepted, req.ID, couple.ID, req.ToUserID, req.FromUserID)
	return couple, nil
}

func (s *PairingService) RejectRequest(ctx context.Context, requestID, actingUserID uuid.UUID) error {
	var req *models.CoupleRequest
	err := s.within(ctx, "rejecting couple request", func(st store.Stores) error {
		var err error
		req, err = loadPending(ctx, st, requestID, actingUserID, partyRecipient, true)
		if err != nil {
			return err
		}
		return st.Requests().UpdateStatus(ctx, req.ID, models.CoupleRequestStatusRejected)
	})
	if err != nil {
		return err
	}

	s.logger.Info("couple request rejected", map[string]interface{}{"request_id": requestID})
	s.publish(ctx, EventRequestRejected, req.ID, uuid.Nil, req.ToUserID, req.FromUserID)
	return nil
}

func (s *PairingService) Breakup(ctx context.Context, actingUserID uuid.UUID) error {
	var couple *models.Couple
	err := s.within(ctx, "breaking up", func(st store.Stores) error {
		c, err := st.Couples().FindActiveByParticipant(ctx, actingUserID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotInCouple
		}
		if err != nil {
			return err
		}
		if _, err := st.Users().LockUsers(ctx, c.User1ID, c.User2ID); err != nil {
			return err
		}
		// The partner may have ended the couple while we waited for the locks.
		c, err = st.Couples().FindActiveByParticipant(ctx, actingUserID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotInCouple
		}
		if err != nil {
			return err
		}
		if err := st.Couples().UpdateStatus(ctx, c.ID, models.CoupleStatusInactive); err != nil {
			return err
		}
		for _, userID := range []uuid.UUID{c.User1ID, c.User2ID} {
			if err := st.Users().UpdateCoupleID(ctx, userID, nil); err != nil {
				return err
			}
		}
		couple = c
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("couple ended", map[string]interface{}{"couple_id": couple.ID, "user_id": actingUserID})
	s.publish(ctx, EventCoupleEnded, uuid.Nil, couple.ID, actingUserID, couple.Partner(actingUserID))
	return nil
}

// GetCouple returns the caller's active couple, or nil when not coupled.
func (s *PairingService) GetCouple(ctx context.Context, userID uuid.UUID) (*models.CoupleView, error) {
	var view *models.CoupleView
	err := s.uow.Read(ctx, func(st store.Stores) error {
		c, err := st.Couples().FindActiveByParticipant(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		view, err = s.describeCouple(ctx, st, c)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("getting couple: %w", err)
	}
	return view, nil
}

func (s *PairingService) UpdateAnniversary(ctx context.Context, userID uuid.UUID, date time.Time) (*models.Couple, error) {
	if date.IsZero() || date.After(s.now()) {
		return nil, ErrInvalidAnniversary
	}

	var couple *models.Couple
	err := s.within(ctx, "updating anniversary", func(st store.Stores) error {
		c, err := st.Couples().FindActiveByParticipant(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotInCouple
		}
		if err != nil {
			return err
		}
		if err := st.Couples().UpdateAnniversary(ctx, c.ID, date); err != nil {
			return err
		}
		c.AnniversaryDate = &date
		couple = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return couple, nil
}

func (s *PairingService) DescribeRequest(ctx context.Context, req *models.CoupleRequest) (*models.CoupleRequestView, error) {
	views, err := s.DescribeRequests(ctx, []*models.CoupleRequest{req})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// DescribeRequests attaches sender and recipient summaries. Users that no
// longer resolve are left nil.
func (s *PairingService) DescribeRequests(ctx context.Context, reqs []*models.CoupleRequest) ([]*models.CoupleRequestView, error) {
	views := make([]*models.CoupleRequestView, 0, len(reqs))
	err := s.uow.Read(ctx, func(st store.Stores) error {
		cache := map[uuid.UUID]*models.UserSummary{}
		for _, req := range reqs {
			from, err := summary(ctx, st, cache, req.FromUserID)
			if err != nil {
				return err
			}
			to, err := summary(ctx, st, cache, req.ToUserID)
			if err != nil {
				return err
			}
			views = append(views, &models.CoupleRequestView{CoupleRequest: *req, FromUser: from, ToUser: to})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("describing couple requests: %w", err)
	}
	return views, nil
}

func (s *PairingService) describeCouple(ctx context.Context, st store.Stores, c *models.Couple) (*models.CoupleView, error) {
	cache := map[uuid.UUID]*models.UserSummary{}
	user1, err := summary(ctx, st, cache, c.User1ID)
	if err != nil {
		return nil, err
	}
	user2, err := summary(ctx, st, cache, c.User2ID)
	if err != nil {
		return nil, err
	}
	return &models.CoupleView{
		Couple:       *c,
		User1:        user1,
		User2:        user2,
		DaysTogether: c.DaysTogether(s.now()),
	}, nil
}

func summary(ctx context.Context, st store.Stores, cache map[uuid.UUID]*models.UserSummary, id uuid.UUID) (*models.UserSummary, error) {
	if sum, ok := cache[id]; ok {
		return sum, nil
	}
	user, err := st.Users().FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		cache[id] = nil
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cache[id] = user.Summary()
	return cache[id], nil
}

func (s *PairingService) publish(ctx context.Context, typ EventType, requestID, coupleID, actorID, targetID uuid.UUID) {
	event := PairingEvent{
		Type:       typ,
		RequestID:  requestID,
		CoupleID:   coupleID,
		ActorID:    actorID,
		TargetID:   targetID,
		OccurredAt: s.now().UTC(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("publishing pairing event failed", map[string]interface{}{"type": string(typ), "error": err})
	}
}
