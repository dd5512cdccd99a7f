package dispatch

import (
	"encoding/json"
	"time"

	"github.com/go-redis/redis"
	"github.com/pkg/errors"

	"github.com/agentgate/agentgate/internal/scheduler/schedulerobjects"
)

const DefaultKeyPrefix = "AgentGate:Dispatch"

// RedisPublisher pushes a DispatchMessage for each job onto two redis lists:
// a global list, <prefix>, and a per-tenant list, <prefix>:<tenantId>.
// Executors pop from whichever list suits them.
type RedisPublisher struct {
	db        redis.UniversalClient
	keyPrefix string
	// If non-zero, lists expire this long after the most recent push.
	retention time.Duration
}

func NewRedisPublisher(db redis.UniversalClient, keyPrefix string, retention time.Duration) *RedisPublisher {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &RedisPublisher{
		db:        db,
		keyPrefix: keyPrefix,
		retention: retention,
	}
}

func (p *RedisPublisher) GlobalKey() string {
	return p.keyPrefix
}

func (p *RedisPublisher) TenantKey(tenantId string) string {
	return p.keyPrefix + ":" + tenantId
}

func (p *RedisPublisher) Publish(jobs []*schedulerobjects.Job) error {
	if len(jobs) == 0 {
		return nil
	}

	pipe := p.db.TxPipeline()
	keys := make(map[string]bool)
	for _, job := range jobs {
		data, err := json.Marshal(NewDispatchMessage(job))
		if err != nil {
			return errors.WithStack(err)
		}
		tenantKey := p.TenantKey(job.TenantId)
		pipe.RPush(p.GlobalKey(), data)
		pipe.RPush(tenantKey, data)
		keys[tenantKey] = true
	}
	if p.retention > 0 {
		pipe.Expire(p.GlobalKey(), p.retention)
		for key := range keys {
			pipe.Expire(key, p.retention)
		}
	}
	if _, err := pipe.Exec(); err != nil {
		return errors.WithMessagef(err, "failed to publish %d dispatch messages", len(jobs))
	}
	return nil
}
