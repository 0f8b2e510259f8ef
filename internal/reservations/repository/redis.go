package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	reservationserrors "examslots/internal/reservations/errors"
	"examslots/pkg/config"
	"examslots/pkg/model"

	"github.com/redis/go-redis/v9"
)

// KEYS[1] record hash, KEYS[2] examiner index.
// ARGV: now, expires_at, slot_key, examiner_profile_id, booking_time,
// examination_id, claimant_id, reserved_at.
var createReservationScript = redis.NewScript(`
local existing = redis.call('HGET', KEYS[1], 'expires_at')
if existing and tonumber(existing) > tonumber(ARGV[1]) then
	return 0
end
redis.call('DEL', KEYS[1])
redis.call('HSET', KEYS[1],
	'slot_key', ARGV[3],
	'examiner_profile_id', ARGV[4],
	'booking_time', ARGV[5],
	'examination_id', ARGV[6],
	'claimant_id', ARGV[7],
	'reserved_at', ARGV[8],
	'expires_at', ARGV[2])
redis.call('EXPIREAT', KEYS[1], ARGV[2])
redis.call('ZREMRANGEBYSCORE', KEYS[2], '-inf', ARGV[1])
redis.call('ZADD', KEYS[2], ARGV[2], ARGV[5])
local top = redis.call('ZRANGE', KEYS[2], -1, -1, 'WITHSCORES')
redis.call('EXPIREAT', KEYS[2], top[2])
return 1
`)

// KEYS[1] record hash, KEYS[2] examiner index. ARGV: examination_id, booking_time.
// Returns -1 when absent, 0 on owner mismatch, 1 when deleted.
var deleteIfOwnerScript = redis.NewScript(`
local owner = redis.call('HGET', KEYS[1], 'examination_id')
if not owner then
	return -1
end
if owner ~= ARGV[1] then
	return 0
end
redis.call('DEL', KEYS[1])
redis.call('ZREM', KEYS[2], ARGV[2])
return 1
`)

type redisReservation struct {
	SlotKey           string `redis:"slot_key"`
	ExaminerProfileID string `redis:"examiner_profile_id"`
	BookingTime       string `redis:"booking_time"`
	ExaminationID     string `redis:"examination_id"`
	ClaimantID        string `redis:"claimant_id"`
	ReservedAt        int64  `redis:"reserved_at"`
	ExpiresAt         int64  `redis:"expires_at"`
}

func (r redisReservation) toModel() *model.SlotReservation {
	return &model.SlotReservation{
		SlotKey:           r.SlotKey,
		ExaminerProfileID: r.ExaminerProfileID,
		BookingTime:       r.BookingTime,
		ExaminationID:     r.ExaminationID,
		ClaimantID:        r.ClaimantID,
		ReservedAt:        r.ReservedAt,
		ExpiresAt:         r.ExpiresAt,
	}
}

type redisReservationStore struct {
	rdb          redis.UniversalClient
	prefix       string
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func NewRedisReservationStore(cfg *config.Config) ReservationStore {
	return newRedisReservationStore(cfg.Client.Redis, cfg.RedisKeyPrefix, cfg.StoreReadTimeout, cfg.StoreWriteTimeout)
}

func newRedisReservationStore(rdb redis.UniversalClient, prefix string, readTimeout, writeTimeout time.Duration) *redisReservationStore {
	return &redisReservationStore{
		rdb:          rdb,
		prefix:       prefix,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

// recordKey hash-tags the examiner id so a record and its index share a
// cluster slot and can be touched by one script.
func (r *redisReservationStore) recordKey(examinerProfileID, bookingTime string) string {
	return fmt.Sprintf("%s:{%s}:%s", r.prefix, examinerProfileID, bookingTime)
}

func (r *redisReservationStore) indexKey(examinerProfileID string) string {
	return fmt.Sprintf("%s:{%s}:index", r.prefix, examinerProfileID)
}

func (r *redisReservationStore) keysFor(slotKey string) (record, index, bookingTime string, err error) {
	examinerProfileID, bookingTime, ok := model.ParseSlotKey(slotKey)
	if !ok {
		return "", "", "", fmt.Errorf("malformed slot key %q", slotKey)
	}
	return r.recordKey(examinerProfileID, bookingTime), r.indexKey(examinerProfileID), bookingTime, nil
}

func (r *redisReservationStore) Create(ctx context.Context, res *model.SlotReservation, now time.Time) error {
	ctx, cancel := withTimeout(ctx, r.writeTimeout)
	defer cancel()

	keys := []string{r.recordKey(res.ExaminerProfileID, res.BookingTime), r.indexKey(res.ExaminerProfileID)}
	created, err := createReservationScript.Run(ctx, r.rdb, keys,
		now.Unix(),
		res.ExpiresAt,
		res.SlotKey,
		res.ExaminerProfileID,
		res.BookingTime,
		res.ExaminationID,
		res.ClaimantID,
		res.ReservedAt,
	).Int()
	if err != nil {
		return fmt.Errorf("failed to create slot reservation: %w", err)
	}
	if created == 0 {
		return reservationserrors.ErrConflict
	}
	return nil
}

func (r *redisReservationStore) Get(ctx context.Context, slotKey string) (*model.SlotReservation, error) {
	ctx, cancel := withTimeout(ctx, r.readTimeout)
	defer cancel()

	recordKey, _, _, err := r.keysFor(slotKey)
	if err != nil {
		return nil, err
	}

	cmd := r.rdb.HGetAll(ctx, recordKey)
	fields, err := cmd.Result()
	if err != nil {
		return nil, fmt.Errorf("failed to find slot reservation: %w", err)
	}
	if len(fields) == 0 {
		return nil, reservationserrors.ErrNotFound
	}

	var rec redisReservation
	if err := cmd.Scan(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode slot reservation: %w", err)
	}
	return rec.toModel(), nil
}

func (r *redisReservationStore) DeleteIfOwner(ctx context.Context, slotKey, examinationID string) error {
	ctx, cancel := withTimeout(ctx, r.writeTimeout)
	defer cancel()

	recordKey, indexKey, bookingTime, err := r.keysFor(slotKey)
	if err != nil {
		return err
	}

	outcome, err := deleteIfOwnerScript.Run(ctx, r.rdb, []string{recordKey, indexKey}, examinationID, bookingTime).Int()
	if err != nil {
		return fmt.Errorf("failed to delete slot reservation: %w", err)
	}
	switch outcome {
	case 1:
		return nil
	case 0:
		return reservationserrors.ErrConditionFailed
	default:
		return reservationserrors.ErrNotFound
	}
}

func (r *redisReservationStore) FindLiveByExaminer(ctx context.Context, examinerProfileID string, now time.Time) ([]*model.SlotReservation, error) {
	ctx, cancel := withTimeout(ctx, r.readTimeout)
	defer cancel()

	bookingTimes, err := r.rdb.ZRangeByScore(ctx, r.indexKey(examinerProfileID), &redis.ZRangeBy{
		Min: "(" + strconv.FormatInt(now.Unix(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read examiner index: %w", err)
	}
	if len(bookingTimes) == 0 {
		return []*model.SlotReservation{}, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(bookingTimes))
	_, err = r.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, bookingTime := range bookingTimes {
			cmds[i] = pipe.HGetAll(ctx, r.recordKey(examinerProfileID, bookingTime))
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read examiner reservations: %w", err)
	}

	reservations := make([]*model.SlotReservation, 0, len(cmds))
	for _, cmd := range cmds {
		if len(cmd.Val()) == 0 {
			continue
		}
		var rec redisReservation
		if err := cmd.Scan(&rec); err != nil {
			return nil, fmt.Errorf("failed to decode slot reservation: %w", err)
		}
		if rec.ExpiresAt > now.Unix() {
			reservations = append(reservations, rec.toModel())
		}
	}
	sort.Slice(reservations, func(i, j int) bool {
		return reservations[i].BookingTime < reservations[j].BookingTime
	})
	return reservations, nil
}

func (r *redisReservationStore) Ping(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, r.readTimeout)
	defer cancel()
	return r.rdb.Ping(ctx).Err()
}
