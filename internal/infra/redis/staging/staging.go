package infra_redis_staging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gatherhub/polls/core/internal/model"
	"github.com/go-redis/redis"
	"github.com/google/uuid"
)

const rankingField = "ranking"

// Driver keeps staged votes in session-scoped redis state: one hash per
// (session, poll) holding option id -> staged value, plus a per-session set
// of poll ids so the whole session can be enumerated at reconcile time.
// Entries expire with the session TTL; nothing here is durable by design.
type Driver struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func New(client *redis.Client, prefix string, ttl time.Duration) *Driver {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Driver{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (d *Driver) Stage(ctx context.Context, sessionID model.SessionID, pollID uuid.UUID, staged model.StagedVote) error {
	payload, err := json.Marshal(staged)
	if err != nil {
		return err
	}

	sessionKey := d.sessionKey(sessionID)
	pollKey := d.pollKey(sessionID, pollID)

	if err := d.client.HSet(pollKey, d.field(staged.OptionID), payload).Err(); err != nil {
		return err
	}
	if err := d.client.SAdd(sessionKey, pollID.String()).Err(); err != nil {
		return err
	}

	// Refresh the session TTL on every write so an active visitor never
	// loses staged state mid-session.
	d.client.Expire(pollKey, d.ttl)
	d.client.Expire(sessionKey, d.ttl)
	return nil
}

func (d *Driver) Unstage(ctx context.Context, sessionID model.SessionID, pollID, optionID uuid.UUID) error {
	pollKey := d.pollKey(sessionID, pollID)

	if err := d.client.HDel(pollKey, d.field(optionID)).Err(); err != nil {
		return err
	}

	remaining, err := d.client.HLen(pollKey).Result()
	if err != nil {
		return err
	}
	if remaining == 0 {
		if err := d.client.SRem(d.sessionKey(sessionID), pollID.String()).Err(); err != nil {
			return err
		}
		return d.client.Del(pollKey).Err()
	}
	return nil
}

func (d *Driver) BySession(ctx context.Context, sessionID model.SessionID) (map[uuid.UUID][]model.StagedVote, error) {
	pollIDs, err := d.client.SMembers(d.sessionKey(sessionID)).Result()
	if err != nil {
		if err == redis.Nil {
			return map[uuid.UUID][]model.StagedVote{}, nil
		}
		return nil, err
	}

	staged := make(map[uuid.UUID][]model.StagedVote, len(pollIDs))
	for _, raw := range pollIDs {
		pollID, err := uuid.Parse(raw)
		if err != nil {
			continue
		}

		fields, err := d.client.HGetAll(d.pollKey(sessionID, pollID)).Result()
		if err != nil {
			return nil, err
		}
		for _, payload := range fields {
			var entry model.StagedVote
			if err := json.Unmarshal([]byte(payload), &entry); err != nil {
				continue
			}
			staged[pollID] = append(staged[pollID], entry)
		}
	}
	return staged, nil
}

func (d *Driver) sessionKey(sessionID model.SessionID) string {
	return fmt.Sprintf("%s:%s", d.prefix, sessionID)
}

func (d *Driver) pollKey(sessionID model.SessionID, pollID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:%s", d.prefix, sessionID, pollID)
}

func (d *Driver) field(optionID uuid.UUID) string {
	if optionID == uuid.Nil {
		return rankingField
	}
	return optionID.String()
}
