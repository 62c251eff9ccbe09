package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	jsoniter "github.com/json-iterator/go"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"localtube/pkg/models"
	"localtube/pkg/repository"
)

var ErrSessionNotFound = errors.New("auth: session not found")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SessionStore keeps server-side sessions so logout can revoke a token
// before it expires.
type SessionStore interface {
	Save(ctx context.Context, s *models.Session) error
	// Find returns ErrSessionNotFound for unknown or expired sessions.
	Find(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
}

// DBSessionStore keeps sessions in the relational store.
type DBSessionStore struct {
	repo repository.SessionRepository
	now  func() time.Time
}

func NewDBSessionStore(repo repository.SessionRepository) *DBSessionStore {
	return &DBSessionStore{repo: repo, now: time.Now}
}

func (d *DBSessionStore) Save(_ context.Context, s *models.Session) error {
	return d.repo.CreateSession(s)
}

func (d *DBSessionStore) Find(_ context.Context, id string) (*models.Session, error) {
	sess, err := d.repo.FindSession(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if sess.IsExpired(d.now()) {
		if err := d.repo.DeleteSession(id); err != nil {
			logrus.WithError(err).Warn("Failed to delete expired session")
		}
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (d *DBSessionStore) Delete(_ context.Context, id string) error {
	return d.repo.DeleteSession(id)
}

// Purge removes every expired session.
func (d *DBSessionStore) Purge() (int64, error) {
	return d.repo.DeleteExpiredSessions(d.now())
}

// ScheduleJanitor registers a purge of expired sessions on c using a cron
// spec such as "@every 10m".
func (d *DBSessionStore) ScheduleJanitor(c *cron.Cron, spec string) (cron.EntryID, error) {
	id, err := c.AddFunc(spec, d.purgeAndLog)
	if err != nil {
		return 0, fmt.Errorf("schedule session janitor %q: %w", spec, err)
	}
	return id, nil
}

func (d *DBSessionStore) purgeAndLog() {
	n, err := d.Purge()
	if err != nil {
		logrus.WithError(err).Error("Session janitor: purge failed")
		return
	}
	if n > 0 {
		logrus.WithField("purged", n).Info("Session janitor: removed expired sessions")
	}
}

// RedisSessionStore keeps sessions as JSON values that expire with the session.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
}

func NewRedisSessionStore(client *redis.Client, prefix string) *RedisSessionStore {
	if client == nil {
		panic("Redis client cannot be nil for RedisSessionStore")
	}
	return &RedisSessionStore{client: client, prefix: prefix}
}

func (r *RedisSessionStore) key(id string) string {
	return r.prefix + "session:" + id
}

func (r *RedisSessionStore) Save(ctx context.Context, s *models.Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", s.ID)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, r.key(s.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: save session: %w", err)
	}
	return nil
}

func (r *RedisSessionStore) Find(ctx context.Context, id string) (*models.Session, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("redis: find session: %w", err)
	}
	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

func (r *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("redis: delete session: %w", err)
	}
	return nil
}
