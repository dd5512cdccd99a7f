package agentgate

import (
	"github.com/go-redis/redis"
	"github.com/pkg/errors"
)

// RedisChecker reports unhealthy while redis can't be pinged.
type RedisChecker struct {
	db redis.UniversalClient
}

func NewRedisChecker(db redis.UniversalClient) *RedisChecker {
	return &RedisChecker{db: db}
}

func (c *RedisChecker) Check() error {
	if err := c.db.Ping().Err(); err != nil {
		return errors.WithMessage(err, "redis is unreachable")
	}
	return nil
}
