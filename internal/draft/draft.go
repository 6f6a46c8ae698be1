// Package draft caches answers that have not yet reached the Session API, so
// a crashed or restarted client can put them back on screen and resend them.
package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/SijoOrganization/sijo-qcm-front/internal/config"
	"github.com/SijoOrganization/sijo-qcm-front/internal/model"
)

// Store is the draft cache used by the session controller.
type Store interface {
	Save(ctx context.Context, sessionID string, req model.SubmitAnswerRequest) error
	Load(ctx context.Context, sessionID string) ([]model.SubmitAnswerRequest, error)
	Clear(ctx context.Context, sessionID string) error
}

// Noop discards drafts. Used when no Redis is configured.
type Noop struct{}

func (Noop) Save(context.Context, string, model.SubmitAnswerRequest) error { return nil }

func (Noop) Load(context.Context, string) ([]model.SubmitAnswerRequest, error) { return nil, nil }

func (Noop) Clear(context.Context, string) error { return nil }

// RedisStore keeps one hash per session, field = question id, value = the
// JSON submit payload. The hash expires ttl after the last write.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
	log zerolog.Logger
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *RedisStore {
	return &RedisStore{
		rdb: rdb,
		ttl: ttl,
		log: log.With().Str("component", "draft_cache").Logger(),
	}
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, req model.SubmitAnswerRequest) error {
	b, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}

	key := config.CacheKey.SessionDraftsKey(sessionID)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, req.QuestionID, b)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// Load returns every cached draft of the session. Entries that no longer
// decode are skipped.
func (s *RedisStore) Load(ctx context.Context, sessionID string) ([]model.SubmitAnswerRequest, error) {
	raw, err := s.rdb.HGetAll(ctx, config.CacheKey.SessionDraftsKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load drafts: %w", err)
	}

	out := make([]model.SubmitAnswerRequest, 0, len(raw))
	for qid, v := range raw {
		var req model.SubmitAnswerRequest
		if err := json.Unmarshal([]byte(v), &req); err != nil {
			s.log.Warn().Err(err).Str("question_id", qid).Msg("Dropping corrupt draft")
			continue
		}
		out = append(out, req)
	}
	return out, nil
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, config.CacheKey.SessionDraftsKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("clear drafts: %w", err)
	}
	return nil
}
