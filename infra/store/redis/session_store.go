// Package redisstore keeps charging sessions in Redis. Sessions are hot,
// short-lived state, which suits a key-value store with TTL better than a
// document database.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/evroam/roaminghub/core/model"
	"github.com/evroam/roaminghub/core/session"
)

// Config defines the Redis connection settings.
type Config struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	// TTLHours expires settled sessions; zero keeps them forever.
	TTLHours int `json:"ttl_hours"`
}

// SessionStore implements session.Store on Redis. Cross-process create-once
// is guaranteed by SETNX; mutation exclusivity per session id is enforced by
// in-process per-key locks, so a single hub instance must own its keyspace.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSessionStore connects to Redis and verifies the connection.
func NewSessionStore(ctx context.Context, cfg Config) (*SessionStore, error) {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redisstore: ping: %w", err)
	}
	return &SessionStore{
		client: client,
		ttl:    time.Duration(cfg.TTLHours) * time.Hour,
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

func key(id string) string { return "sessions:" + id }

func (s *SessionStore) keyLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func (s *SessionStore) load(ctx context.Context, id string) (*model.ChargingSession, error) {
	raw, err := s.client.Get(ctx, key(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redisstore: get %s: %w", id, err)
	}
	var sess model.ChargingSession
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("redisstore: decode %s: %w", id, err)
	}
	return &sess, nil
}

func (s *SessionStore) save(ctx context.Context, sess *model.ChargingSession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("redisstore: encode %s: %w", sess.ID, err)
	}
	return s.client.Set(ctx, key(sess.ID), data, s.ttl).Err()
}

// Get returns a copy of the stored session.
func (s *SessionStore) Get(ctx context.Context, id string) (*model.ChargingSession, error) {
	return s.load(ctx, id)
}

// Exists reports whether the id is stored.
func (s *SessionStore) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("redisstore: exists %s: %w", id, err)
	}
	return n > 0, nil
}

// Create stores a new session, rejecting duplicate ids atomically.
func (s *SessionStore) Create(ctx context.Context, sess *model.ChargingSession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("redisstore: encode %s: %w", sess.ID, err)
	}
	ok, err := s.client.SetNX(ctx, key(sess.ID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("redisstore: create %s: %w", sess.ID, err)
	}
	if !ok {
		return session.ErrExists
	}
	return nil
}

// MutateStart applies fn under the per-id lock, creating the session if
// absent.
func (s *SessionStore) MutateStart(ctx context.Context, id string, fn func(*model.ChargingSession)) error {
	l := s.keyLock(id)
	l.Lock()
	defer l.Unlock()
	sess, err := s.load(ctx, id)
	if errors.Is(err, session.ErrNotFound) {
		sess = &model.ChargingSession{ID: id}
	} else if err != nil {
		return err
	}
	fn(sess)
	return s.save(ctx, sess)
}

// MutateStop applies fn to an existing session under the per-id lock.
func (s *SessionStore) MutateStop(ctx context.Context, id string, fn func(*model.ChargingSession)) error {
	l := s.keyLock(id)
	l.Lock()
	defer l.Unlock()
	sess, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	fn(sess)
	return s.save(ctx, sess)
}

// AttachCDR attaches the record unless one is already present.
func (s *SessionStore) AttachCDR(ctx context.Context, id string, cdr model.ChargeDetailRecord) (bool, error) {
	l := s.keyLock(id)
	l.Lock()
	defer l.Unlock()
	sess, err := s.load(ctx, id)
	if err != nil {
		return false, err
	}
	if sess.CDR != nil {
		return false, nil
	}
	c := cdr
	sess.CDR = &c
	sess.State = model.SessionSettled
	if err := s.save(ctx, sess); err != nil {
		return false, err
	}
	return true, nil
}

// List returns all stored sessions in id order.
func (s *SessionStore) List(ctx context.Context) ([]model.ChargingSession, error) {
	var out []model.ChargingSession
	iter := s.client.Scan(ctx, 0, key("*"), 0).Iterator()
	for iter.Next(ctx) {
		raw, err := s.client.Get(ctx, iter.Val()).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redisstore: list: %w", err)
		}
		var sess model.ChargingSession
		if err := json.Unmarshal([]byte(raw), &sess); err != nil {
			return nil, fmt.Errorf("redisstore: decode: %w", err)
		}
		out = append(out, sess)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redisstore: scan: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Close releases the Redis client.
func (s *SessionStore) Close() error { return s.client.Close() }
