package relay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/storechat/internal/bus"
	"github.com/matheus3301/storechat/internal/chat"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type published struct {
	channel string
	data    []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.msgs = append(f.msgs, published{channel: channel, data: message.([]byte)})
	cmd.SetVal(1)
	return cmd
}

func (f *fakePublisher) snapshot() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.msgs...)
}

func TestRelayPublishesEnvelopes(t *testing.T) {
	b := bus.New()
	pub := &fakePublisher{}
	r := New(pub, b, "storechat:events", "main", zap.NewNop())
	r.Start(context.Background())

	b.Emit(bus.KindRoomRead, chat.RoomRead{RoomID: "4"})

	require.Eventually(t, func() bool { return len(pub.snapshot()) == 1 }, time.Second, 10*time.Millisecond)
	r.Stop()

	msg := pub.snapshot()[0]
	assert.Equal(t, "storechat:events", msg.channel)

	var env struct {
		EventID  string `json:"event_id"`
		Instance string `json:"instance"`
		Kind     string `json:"kind"`
		Payload  struct {
			RoomID string `json:"room_id"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msg.data, &env))
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, "main", env.Instance)
	assert.Equal(t, bus.KindRoomRead, env.Kind)
	assert.Equal(t, "4", env.Payload.RoomID)
}

func TestRelayKeepsRunningAfterPublishError(t *testing.T) {
	b := bus.New()
	pub := &fakePublisher{err: errors.New("connection refused")}
	r := New(pub, b, "c", "main", zap.NewNop())
	r.Start(context.Background())
	defer r.Stop()

	b.Emit(bus.KindRoomRead, chat.RoomRead{RoomID: "1"})

	pub.mu.Lock()
	pub.err = nil
	pub.mu.Unlock()

	require.Eventually(t, func() bool {
		b.Emit(bus.KindRoomRead, chat.RoomRead{RoomID: "2"})
		return len(pub.snapshot()) > 0
	}, time.Second, 10*time.Millisecond)
}

func TestStopWithoutStart(t *testing.T) {
	r := New(&fakePublisher{}, bus.New(), "c", "main", zap.NewNop())
	r.Stop()
}
