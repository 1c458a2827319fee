package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gather/internal/model"
)

const (
	DefaultTTL   = 30 * time.Minute
	keyPrefix    = "conv:"
	maxTxRetries = 3
)

// Store persists sessions in Redis. Reads and writes both extend the TTL.
type Store struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

func NewStore(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{rdb: rdb, ttl: ttl, logger: logger, now: time.Now}
}

func key(id string) string { return keyPrefix + id }

// Create starts a new idle session for the user.
func (s *Store) Create(ctx context.Context, userID int64) (*Session, error) {
	sess := NewSession(uuid.NewString(), userID, s.now())
	if err := s.save(ctx, s.rdb, sess); err != nil {
		return nil, err
	}
	s.logger.Debug("Conversation created", zap.String("session_id", sess.ID), zap.Int64("user_id", userID))
	return sess, nil
}

// Get loads a session owned by userID. Sessions of other users are
// reported as missing.
func (s *Store) Get(ctx context.Context, id string, userID int64) (*Session, error) {
	raw, err := s.rdb.GetEx(ctx, key(id), s.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	sess, err := decode(raw)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, model.ErrNotFound
	}
	return sess, nil
}

// Apply loads the session, applies ev and writes it back atomically. A
// concurrent writer causes a bounded number of retries.
func (s *Store) Apply(ctx context.Context, id string, userID int64, ev Event) (*Session, error) {
	var out *Session
	k := key(id)
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			return model.ErrNotFound
		}
		if err != nil {
			return err
		}
		sess, err := decode(raw)
		if err != nil {
			return err
		}
		if sess.UserID != userID {
			return model.ErrNotFound
		}
		if err := sess.Apply(ev, s.now()); err != nil {
			return err
		}
		data, err := json.Marshal(sess)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, data, s.ttl)
			return nil
		})
		if err == nil {
			out = sess
		}
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.rdb.Watch(ctx, txf, k)
		if err == nil {
			s.logger.Debug("Conversation event applied",
				zap.String("session_id", id),
				zap.String("event", string(ev.Type)),
				zap.String("state", string(out.State)))
			return out, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("apply conversation event: %w", redis.TxFailedErr)
}

// Put overwrites a session, used to attach results such as the created task.
func (s *Store) Put(ctx context.Context, sess *Session) error {
	return s.save(ctx, s.rdb, sess)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, key(id)).Err()
}

func (s *Store) save(ctx context.Context, c redis.Cmdable, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}
	if err := c.Set(ctx, key(sess.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}

func decode(raw []byte) (*Session, error) {
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}
	return &sess, nil
}
