package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/HammerMeetNail/anniversary/internal/database"
	"github.com/HammerMeetNail/anniversary/internal/models"
)

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

const (
	userColumns    = `id, username, display_name, invite_code, couple_id, created_at, updated_at`
	requestColumns = `id, from_user_id, to_user_id, status, created_at`
	coupleColumns  = `id, user1_id, user2_id, anniversary_date, status, created_at`
)

// Postgres implements UnitOfWork on top of a pgx pool. Each Within call is one
// READ COMMITTED transaction.
type Postgres struct {
	db database.DB
}

func NewPostgres(db database.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Within(ctx context.Context, fn func(Stores) error) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	if err := fn(pgStores{conn: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", mapPGError(err))
	}
	committed = true
	return nil
}

func (p *Postgres) Read(ctx context.Context, fn func(Stores) error) error {
	return fn(pgStores{conn: p.db})
}

func mapPGError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrUniqueViolation, pgErr.ConstraintName)
		case pgSerializationFailure, pgDeadlockDetected:
			return fmt.Errorf("%w: %s", ErrStaleState, pgErr.Message)
		}
	}
	return err
}

type pgStores struct {
	conn database.Conn
}

func (s pgStores) Users() UserDirectory  { return pgUsers(s) }
func (s pgStores) Requests() RequestStore { return pgRequests(s) }
func (s pgStores) Couples() CoupleStore   { return pgCouples(s) }

type pgUsers struct {
	conn database.Conn
}

func scanUser(row database.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Username, &user.DisplayName, &user.InviteCode, &user.CoupleID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (u pgUsers) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := scanUser(u.conn.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("getting user by id: %w", mapPGError(err))
	}
	return user, nil
}

func (u pgUsers) FindByInviteCode(ctx context.Context, code string) (*models.User, error) {
	user, err := scanUser(u.conn.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE invite_code = $1`, models.NormalizeInviteCode(code)))
	if err != nil {
		return nil, fmt.Errorf("getting user by invite code: %w", mapPGError(err))
	}
	return user, nil
}

func (u pgUsers) LockUsers(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]*models.User, error) {
	ordered := sortedUnique(ids)
	locked := make(map[uuid.UUID]*models.User, len(ordered))
	for _, id := range ordered {
		user, err := scanUser(u.conn.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return nil, fmt.Errorf("locking user %s: %w", id, mapPGError(err))
		}
		locked[id] = user
	}
	return locked, nil
}

func (u pgUsers) UpdateCoupleID(ctx context.Context, userID uuid.UUID, coupleID *uuid.UUID) error {
	result, err := u.conn.Exec(ctx,
		`UPDATE users SET couple_id = $1, updated_at = NOW() WHERE id = $2`,
		coupleID, userID,
	)
	if err != nil {
		return fmt.Errorf("updating couple id: %w", mapPGError(err))
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (u pgUsers) Insert(ctx context.Context, user *models.User) error {
	err := u.conn.QueryRow(ctx,
		`INSERT INTO users (username, display_name, invite_code)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		user.Username, user.DisplayName, user.InviteCode,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating user: %w", mapPGError(err))
	}
	return nil
}

func (u pgUsers) UpdateDisplayName(ctx context.Context, userID uuid.UUID, displayName string) (*models.User, error) {
	user, err := scanUser(u.conn.QueryRow(ctx,
		`UPDATE users SET display_name = $1, updated_at = NOW()
		 WHERE id = $2
		 RETURNING `+userColumns,
		displayName, userID,
	))
	if err != nil {
		return nil, fmt.Errorf("updating display name: %w", mapPGError(err))
	}
	return user, nil
}

type pgRequests struct {
	conn database.Conn
}

func scanRequest(row database.Row) (*models.CoupleRequest, error) {
	req := &models.CoupleRequest{}
	var status string
	if err := row.Scan(&req.ID, &req.FromUserID, &req.ToUserID, &status, &req.CreatedAt); err != nil {
		return nil, err
	}
	parsed, ok := models.ParseCoupleRequestStatus(status)
	if !ok {
		return nil, fmt.Errorf("unknown couple request status %q", status)
	}
	req.Status = parsed
	return req, nil
}

func (r pgRequests) Insert(ctx context.Context, req *models.CoupleRequest) error {
	err := r.conn.QueryRow(ctx,
		`INSERT INTO couple_requests (from_user_id, to_user_id, status, created_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		req.FromUserID, req.ToUserID, string(req.Status), req.CreatedAt,
	).Scan(&req.ID)
	if err != nil {
		return fmt.Errorf("creating couple request: %w", mapPGError(err))
	}
	return nil
}

func (r pgRequests) FindByID(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.CoupleRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM couple_requests WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	req, err := scanRequest(r.conn.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("getting couple request: %w", mapPGError(err))
	}
	return req, nil
}

func (r pgRequests) FindPendingByFrom(ctx context.Context, userID uuid.UUID) (*models.CoupleRequest, error) {
	req, err := scanRequest(r.conn.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM couple_requests
		 WHERE from_user_id = $1 AND status = 'PENDING'
		 ORDER BY created_at DESC
		 LIMIT 1`,
		userID,
	))
	if err != nil {
		return nil, fmt.Errorf("getting outgoing request: %w", mapPGError(err))
	}
	return req, nil
}

func (r pgRequests) FindPendingByTo(ctx context.Context, userID uuid.UUID) ([]*models.CoupleRequest, error) {
	rows, err := r.conn.Query(ctx,
		`SELECT `+requestColumns+` FROM couple_requests
		 WHERE to_user_id = $1 AND status = 'PENDING'
		 ORDER BY created_at, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing incoming requests: %w", err)
	}
	defer rows.Close()

	requests := []*models.CoupleRequest{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning couple request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing incoming requests: %w", err)
	}
	return requests, nil
}

func (r pgRequests) FindPendingBetween(ctx context.Context, fromUserID, toUserID uuid.UUID) (*models.CoupleRequest, error) {
	req, err := scanRequest(r.conn.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM couple_requests
		 WHERE from_user_id = $1 AND to_user_id = $2 AND status = 'PENDING'`,
		fromUserID, toUserID,
	))
	if err != nil {
		return nil, fmt.Errorf("getting pending request: %w", mapPGError(err))
	}
	return req, nil
}

func (r pgRequests) UpdateStatus(ctx context.Context, id uuid.UUID, status models.CoupleRequestStatus) error {
	if !models.CoupleRequestStatusPending.CanTransitionTo(status) {
		return models.ErrInvalidTransition
	}
	result, err := r.conn.Exec(ctx,
		`UPDATE couple_requests SET status = $1 WHERE id = $2 AND status = 'PENDING'`,
		string(status), id,
	)
	if err != nil {
		return fmt.Errorf("updating couple request status: %w", mapPGError(err))
	}
	if result.RowsAffected() == 0 {
		return ErrStaleState
	}
	return nil
}

type pgCouples struct {
	conn database.Conn
}

func scanCouple(row database.Row) (*models.Couple, error) {
	couple := &models.Couple{}
	var status string
	if err := row.Scan(&couple.ID, &couple.User1ID, &couple.User2ID, &couple.AnniversaryDate, &status, &couple.CreatedAt); err != nil {
		return nil, err
	}
	parsed, ok := models.ParseCoupleStatus(status)
	if !ok {
		return nil, fmt.Errorf("unknown couple status %q", status)
	}
	couple.Status = parsed
	return couple, nil
}

func (c pgCouples) Insert(ctx context.Context, couple *models.Couple) error {
	err := c.conn.QueryRow(ctx,
		`INSERT INTO couples (user1_id, user2_id, anniversary_date, status, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		couple.User1ID, couple.User2ID, couple.AnniversaryDate, string(couple.Status), couple.CreatedAt,
	).Scan(&couple.ID)
	if err != nil {
		return fmt.Errorf("creating couple: %w", mapPGError(err))
	}
	return nil
}

func (c pgCouples) FindActiveByParticipant(ctx context.Context, userID uuid.UUID) (*models.Couple, error) {
	couple, err := scanCouple(c.conn.QueryRow(ctx,
		`SELECT `+coupleColumns+` FROM couples
		 WHERE (user1_id = $1 OR user2_id = $1) AND status = 'ACTIVE'`,
		userID,
	))
	if err != nil {
		return nil, fmt.Errorf("getting active couple: %w", mapPGError(err))
	}
	return couple, nil
}

func (c pgCouples) UpdateStatus(ctx context.Context, id uuid.UUID, status models.CoupleStatus) error {
	if !models.CoupleStatusActive.CanTransitionTo(status) {
		return models.ErrInvalidTransition
	}
	result, err := c.conn.Exec(ctx,
		`UPDATE couples SET status = $1 WHERE id = $2 AND status = 'ACTIVE'`,
		string(status), id,
	)
	if err != nil {
		return fmt.Errorf("updating couple status: %w", mapPGError(err))
	}
	if result.RowsAffected() == 0 {
		return ErrStaleState
	}
	return nil
}

func (c pgCouples) UpdateAnniversary(ctx context.Context, id uuid.UUID, date time.Time) error {
	result, err := c.conn.Exec(ctx,
		`UPDATE couples SET anniversary_date = $1 WHERE id = $2 AND status = 'ACTIVE'`,
		date, id,
	)
	if err != nil {
		return fmt.Errorf("updating anniversary: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrStaleState
	}
	return nil
}

func sortedUnique(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}
