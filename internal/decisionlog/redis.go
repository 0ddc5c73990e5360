package decisionlog

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisRenderer appends records to a Redis stream so other processes can
// follow a research session. Write failures are logged and dropped.
type RedisRenderer struct {
	client  redis.UniversalClient
	stream  string
	maxLen  int64
	timeout time.Duration
	logger  *zap.Logger
}

// NewRedisRenderer writes to stream, trimming it to roughly maxLen entries
// when maxLen > 0.
func NewRedisRenderer(client redis.UniversalClient, stream string, maxLen int64, logger *zap.Logger) *RedisRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRenderer{
		client:  client,
		stream:  stream,
		maxLen:  maxLen,
		timeout: 2 * time.Second,
		logger:  logger,
	}
}

// Stream returns the stream key.
func (r *RedisRenderer) Stream() string { return r.stream }

func (r *RedisRenderer) RenderThought(rec ThoughtRecord) {
	r.add("thought", rec.Timestamp, map[string]interface{}{
		"agent_type": rec.AgentType,
		"thought":    rec.Thought,
		"context":    rec.Context,
	})
}

func (r *RedisRenderer) RenderDelegation(rec DelegationRecord) {
	r.add("delegation", rec.Timestamp, map[string]interface{}{
		"supervisor": rec.Supervisor,
		"task":       rec.Task,
		"researcher": rec.Researcher,
	})
}

func (r *RedisRenderer) RenderSearch(rec SearchRecord) {
	r.add("search", rec.Timestamp, map[string]interface{}{
		"researcher": rec.Researcher,
		"query":      rec.Query,
		"results":    strconv.Itoa(rec.Results),
	})
}

func (r *RedisRenderer) add(kind string, ts time.Time, values map[string]interface{}) {
	values["kind"] = kind
	values["timestamp"] = ts.UTC().Format(time.RFC3339Nano)

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	args := &redis.XAddArgs{
		Stream: r.stream,
		Values: values,
	}
	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}
	if err := r.client.XAdd(ctx, args).Err(); err != nil {
		r.logger.Warn("Failed to publish decision record",
			zap.String("stream", r.stream),
			zap.String("kind", kind),
			zap.Error(err),
		)
	}
}
