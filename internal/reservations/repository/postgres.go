package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	reservationserrors "examslots/internal/reservations/errors"
	"examslots/pkg/config"
	"examslots/pkg/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const reservationCols = `slot_key, examiner_profile_id, booking_time, examination_id, claimant_id, reserved_at, expires_at`

// The upsert only overwrites a row whose expiry has passed; a live row
// leaves the statement with zero affected rows.
const createReservationSQL = `
	INSERT INTO ` + TableName + ` (` + reservationCols + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (slot_key) DO UPDATE SET
		examiner_profile_id = EXCLUDED.examiner_profile_id,
		booking_time        = EXCLUDED.booking_time,
		examination_id      = EXCLUDED.examination_id,
		claimant_id         = EXCLUDED.claimant_id,
		reserved_at         = EXCLUDED.reserved_at,
		expires_at          = EXCLUDED.expires_at
	WHERE ` + TableName + `.expires_at <= $8`

type postgresReservationStore struct {
	db           queryable
	pool         *pgxpool.Pool
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func NewPostgresReservationStore(cfg *config.Config) ReservationStore {
	return &postgresReservationStore{
		db:           cfg.Client.Postgres,
		pool:         cfg.Client.Postgres,
		readTimeout:  cfg.StoreReadTimeout,
		writeTimeout: cfg.StoreWriteTimeout,
	}
}

func scanReservation(row pgx.Row) (*model.SlotReservation, error) {
	var r model.SlotReservation
	err := row.Scan(&r.SlotKey, &r.ExaminerProfileID, &r.BookingTime, &r.ExaminationID,
		&r.ClaimantID, &r.ReservedAt, &r.ExpiresAt)
	return &r, err
}

func (r *postgresReservationStore) Create(ctx context.Context, res *model.SlotReservation, now time.Time) error {
	ctx, cancel := withTimeout(ctx, r.writeTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, createReservationSQL,
		res.SlotKey, res.ExaminerProfileID, res.BookingTime, res.ExaminationID,
		res.ClaimantID, res.ReservedAt, res.ExpiresAt, now.Unix())
	if err != nil {
		return fmt.Errorf("failed to create slot reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return reservationserrors.ErrConflict
	}
	return nil
}

func (r *postgresReservationStore) Get(ctx context.Context, slotKey string) (*model.SlotReservation, error) {
	ctx, cancel := withTimeout(ctx, r.readTimeout)
	defer cancel()

	res, err := scanReservation(r.db.QueryRow(ctx,
		`SELECT `+reservationCols+` FROM `+TableName+` WHERE slot_key = $1`, slotKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, reservationserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find slot reservation: %w", err)
	}
	return res, nil
}

func (r *postgresReservationStore) DeleteIfOwner(ctx context.Context, slotKey, examinationID string) error {
	ctx, cancel := withTimeout(ctx, r.writeTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx,
		`DELETE FROM `+TableName+` WHERE slot_key = $1 AND examination_id = $2`, slotKey, examinationID)
	if err != nil {
		return fmt.Errorf("failed to delete slot reservation: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	err = r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+TableName+` WHERE slot_key = $1)`, slotKey).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check slot reservation: %w", err)
	}
	if !exists {
		return reservationserrors.ErrNotFound
	}
	return reservationserrors.ErrConditionFailed
}

func (r *postgresReservationStore) FindLiveByExaminer(ctx context.Context, examinerProfileID string, now time.Time) ([]*model.SlotReservation, error) {
	ctx, cancel := withTimeout(ctx, r.readTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx,
		`SELECT `+reservationCols+` FROM `+TableName+`
		WHERE examiner_profile_id = $1 AND expires_at > $2
		ORDER BY booking_time`, examinerProfileID, now.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to find examiner reservations: %w", err)
	}
	defer rows.Close()

	reservations := []*model.SlotReservation{}
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to decode slot reservation: %w", err)
		}
		reservations = append(reservations, res)
	}
	return reservations, rows.Err()
}

func (r *postgresReservationStore) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.writeTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM `+TableName+` WHERE expires_at <= $1`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired reservations: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *postgresReservationStore) Ping(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, r.readTimeout)
	defer cancel()
	return r.pool.Ping(ctx)
}
