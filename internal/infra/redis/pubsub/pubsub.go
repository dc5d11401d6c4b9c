package infra_redis_pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis"
	"github.com/google/uuid"
)

const (
	PollChannelPrefix  = "poll"
	EventChannelPrefix = "event"
)

// Signal is a payload-free invalidation: it identifies what changed, never
// how. Subscribers re-fetch canonical state, so at-least-once delivery and
// duplicates are harmless.
type Signal struct {
	PollID  uuid.UUID `json:"poll_id"`
	EventID uuid.UUID `json:"event_id"`
}

func PollChannel(pollID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", PollChannelPrefix, pollID)
}

func EventChannel(eventID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", EventChannelPrefix, eventID)
}

// Driver is the redis-backed notification bus. It fans a "poll changed"
// signal out to the poll's own channel and the owning event's aggregate
// channel, so both single-poll viewers and whole-event-page viewers learn
// about the change.
type Driver struct {
	client *redis.Client
}

func New(client *redis.Client) *Driver {
	return &Driver{client: client}
}

func (d *Driver) PollChanged(ctx context.Context, pollID, eventID uuid.UUID) error {
	payload, err := json.Marshal(Signal{PollID: pollID, EventID: eventID})
	if err != nil {
		return err
	}

	if err := d.client.Publish(PollChannel(pollID), payload).Err(); err != nil {
		return err
	}
	return d.client.Publish(EventChannel(eventID), payload).Err()
}

// Subscribe opens a pattern subscription over every poll and event channel.
// The returned channel closes when the underlying pubsub connection does.
func (d *Driver) Subscribe() (<-chan Message, func() error) {
	pubsub := d.client.PSubscribe(PollChannelPrefix+":*", EventChannelPrefix+":*")

	out := make(chan Message)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var signal Signal
			if err := json.Unmarshal([]byte(msg.Payload), &signal); err != nil {
				continue
			}
			out <- Message{Channel: msg.Channel, Signal: signal}
		}
	}()

	return out, pubsub.Close
}

type Message struct {
	Channel string
	Signal  Signal
}
