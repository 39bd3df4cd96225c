//go:build integration

package claim_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"proofpass/internal/attendance/claim"
	"proofpass/pkg/testutil/containers"
)

type RedisLockerSuite struct {
	suite.Suite
	redis  *containers.RedisContainer
	locker *claim.RedisLocker
	ctx    context.Context
}

func TestRedisLockerSuite(t *testing.T) {
	suite.Run(t, new(RedisLockerSuite))
}

func (s *RedisLockerSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.locker = claim.NewRedisLocker(s.redis.Client, claim.WithLockRetry(5*time.Millisecond))
	s.ctx = context.Background()
}

func (s *RedisLockerSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *RedisLockerSuite) TestExclusive() {
	unlock, err := s.locker.Lock(s.ctx, "claim:reg-1")
	s.Require().NoError(err)

	ctx, cancel := context.WithTimeout(s.ctx, 50*time.Millisecond)
	defer cancel()
	_, err = s.locker.Lock(ctx, "claim:reg-1")
	s.ErrorIs(err, claim.ErrLockTimeout)

	unlock()
	unlock2, err := s.locker.Lock(s.ctx, "claim:reg-1")
	s.Require().NoError(err)
	unlock2()
}

func (s *RedisLockerSuite) TestReleaseKeepsForeignLock() {
	short := claim.NewRedisLocker(s.redis.Client, claim.WithLockTTL(20*time.Millisecond))
	unlock, err := short.Lock(s.ctx, "claim:reg-2")
	s.Require().NoError(err)

	time.Sleep(40 * time.Millisecond)
	unlockOther, err := s.locker.Lock(s.ctx, "claim:reg-2")
	s.Require().NoError(err)

	// the expired holder must not release the new holder's lock
	unlock()
	exists, err := s.redis.Client.Exists(s.ctx, "proofpass:lock:claim:reg-2").Result()
	s.Require().NoError(err)
	s.Equal(int64(1), exists)
	unlockOther()
}

func (s *RedisLockerSuite) TestLockTTLApplied() {
	long := claim.NewRedisLocker(s.redis.Client, claim.WithLockTTL(5*time.Minute))
	unlock, err := long.Lock(s.ctx, "claim:reg-3")
	s.Require().NoError(err)
	defer unlock()

	ttl, err := s.redis.Client.PTTL(s.ctx, "proofpass:lock:claim:reg-3").Result()
	s.Require().NoError(err)
	s.Greater(ttl, 4*time.Minute)
}
