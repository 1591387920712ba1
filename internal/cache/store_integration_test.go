//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"beacon/internal/cache"
	"beacon/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *cache.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = cache.NewRedisStore(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

	s.Require().NoError(s.store.Put(ctx, "geocode:nyc", []byte(`{"lat":40.7}`), expires))

	entry, err := s.store.Get(ctx, "geocode:nyc")
	s.Require().NoError(err)
	s.Equal(`{"lat":40.7}`, string(entry.Value))
	s.True(entry.ExpiresAt.Equal(expires))
}

func (s *RedisStoreSuite) TestMissingKey() {
	_, err := s.store.Get(context.Background(), "absent")
	s.Require().ErrorIs(err, cache.ErrNotFound)
}

func (s *RedisStoreSuite) TestLastWriteWins() {
	ctx := context.Background()

	s.Require().NoError(s.store.Put(ctx, "k", []byte(`1`), time.Now()))
	s.Require().NoError(s.store.Put(ctx, "k", []byte(`2`), time.Now().Add(time.Hour)))

	entry, err := s.store.Get(ctx, "k")
	s.Require().NoError(err)
	s.Equal("2", string(entry.Value))
}

type PostgresCacheSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *cache.PostgresStore
}

func TestPostgresCacheSuite(t *testing.T) {
	suite.Run(t, new(PostgresCacheSuite))
}

func (s *PostgresCacheSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = cache.NewPostgresStore(s.postgres.Pool)
	s.Require().NoError(s.store.Init(context.Background()))
}

func (s *PostgresCacheSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background(), "cache"))
}

func (s *PostgresCacheSuite) TestRoundTripAndUpsert() {
	ctx := context.Background()

	s.Require().NoError(s.store.Put(ctx, "verify:img", []byte(`{"verified":true}`), time.Now().Add(time.Hour)))
	s.Require().NoError(s.store.Put(ctx, "verify:img", []byte(`{"verified":false}`), time.Now().Add(2*time.Hour)))

	entry, err := s.store.Get(ctx, "verify:img")
	s.Require().NoError(err)
	s.JSONEq(`{"verified":false}`, string(entry.Value))
}

func (s *PostgresCacheSuite) TestMissingKey() {
	_, err := s.store.Get(context.Background(), "absent")
	s.Require().ErrorIs(err, cache.ErrNotFound)
}
