package faucet

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/puzpuzpuz/xsync"
	"github.com/questx-lab/engagement/pkg/xredis"
	bolt "go.etcd.io/bbolt"
)

// Store keeps the throttle records of the faucet.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type MemoryStore struct {
	values *xsync.MapOf[string, string]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: xsync.NewMapOf[string]()}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	value, ok := s.values.Load(key)
	return value, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.values.Store(key, value)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.values.Delete(key)
	return nil
}

type RedisStore struct {
	client xredis.Client
	ttl    time.Duration
}

// NewRedisStore stores every record with the ttl, zero keeps them forever.
func NewRedisStore(client xredis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, key)
	if err != nil {
		if errors.Is(err, xredis.ErrNotFound) {
			return "", false, nil
		}

		return "", false, err
	}

	return value, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, key, value, s.ttl)
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key)
}

var throttleBucket = []byte("faucet_throttle")

type BoltStore struct {
	db *bolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	if path == "" {
		return nil, errors.New("bolt file path can not be empty")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, errors.New("cannot obtain database lock, database may be in use by another process")
		}

		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(throttleBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Get(_ context.Context, key string) (string, bool, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if data := tx.Bucket(throttleBucket).Get([]byte(key)); data != nil {
			value = append([]byte(nil), data...)
		}

		return nil
	})
	if err != nil {
		return "", false, err
	}

	return string(value), value != nil, nil
}

func (s *BoltStore) Set(_ context.Context, key, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(throttleBucket).Put([]byte(key), []byte(value))
	})
}

func (s *BoltStore) Delete(_ context.Context, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(throttleBucket).Delete([]byte(key))
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
