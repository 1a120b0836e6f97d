package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/storechat/internal/api"
	"github.com/matheus3301/storechat/internal/bus"
	"github.com/matheus3301/storechat/internal/chat"
	"github.com/matheus3301/storechat/internal/client"
	"github.com/matheus3301/storechat/internal/clock"
	"github.com/matheus3301/storechat/internal/config"
	"github.com/matheus3301/storechat/internal/directory"
	"github.com/matheus3301/storechat/internal/instance"
	"github.com/matheus3301/storechat/internal/lock"
	"github.com/matheus3301/storechat/internal/status"
	"github.com/matheus3301/storechat/internal/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

// shortHome points STORECHAT_HOME at a short /tmp path; Unix socket paths
// are limited to ~104 bytes on some platforms.
func shortHome(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("/tmp", "sc-*")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	t.Setenv("STORECHAT_HOME", dir)
	return dir
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Archive.Enabled = true
	cfg.Log.Level = "warn"
	cfg.Chat.ReplyMinDelay.Duration = 10 * time.Millisecond
	cfg.Chat.ReplyMaxDelay.Duration = 20 * time.Millisecond
	return cfg
}

func TestDaemonLifecycle(t *testing.T) {
	shortHome(t)
	name := "test"

	app := fxtest.New(t,
		fx.NopLogger,
		Module(Params{InstanceName: name, Config: testConfig()}),
	)
	app.RequireStart()

	c, err := client.New(instance.SocketPath(name))
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st, err := c.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, name, st.Instance)
	assert.Equal(t, string(status.Ready), st.State)
	assert.Equal(t, 5, st.RoomCount)
	assert.True(t, st.ArchiveEnabled)

	sent, err := c.SendMessage(ctx, "1", "do you ship abroad?")
	require.NoError(t, err)
	require.True(t, sent.Accepted)

	// The reply lands within the configured window and both messages reach the archive.
	require.Eventually(t, func() bool {
		room, err := c.GetRoom(ctx, "1")
		if err != nil {
			return false
		}
		last, ok := room.Room.LastMessage()
		return ok && last.Sender == chat.SenderCounterparty && len(room.Room.Messages) == 4
	}, 5*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		res, err := c.SearchArchive(ctx, "abroad", "1", 10)
		return err == nil && len(res.Messages) == 1
	}, 5*time.Second, 20*time.Millisecond)

	// Seeded greetings are archived alongside the live exchange.
	require.Eventually(t, func() bool {
		hist, err := c.ListArchivedMessages(ctx, "1", 0, 10)
		return err == nil && len(hist.Messages) == 4 && !hist.HasMore
	}, 5*time.Second, 20*time.Millisecond)
	page, err := c.ListArchivedMessages(ctx, "1", 0, 1)
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.True(t, page.HasMore)
	assert.Equal(t, string(chat.SenderCounterparty), page.Messages[0].Sender)

	for _, id := range []string{"1", "2", "3", "4"} {
		_, err := c.OpenWindow(ctx, id)
		require.NoError(t, err)
	}
	layout, err := c.GetLayout(ctx)
	require.NoError(t, err)
	require.Len(t, layout.Layout.Entries, 3)
	assert.Equal(t, "2", layout.Layout.Entries[0].RoomID)

	app.RequireStop()

	_, err = os.Stat(instance.SocketPath(name))
	assert.True(t, errors.Is(err, os.ErrNotExist), "socket removed on stop")
	_, err = os.Stat(filepath.Join(instance.Dir(name), "LOCK"))
	assert.True(t, errors.Is(err, os.ErrNotExist), "lock released on stop")
}

func TestWatchStreamDoesNotBlockShutdown(t *testing.T) {
	shortHome(t)
	name := "watch"

	app := fxtest.New(t, fx.NopLogger, Module(Params{InstanceName: name, Config: testConfig()}))
	app.RequireStart()

	c, err := client.New(instance.SocketPath(name))
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	events, err := c.WatchEvents(context.Background(), "")
	require.NoError(t, err)

	got := make(chan string, 16)
	go func() {
		for {
			evt, err := events.Recv()
			if err != nil {
				close(got)
				return
			}
			got <- evt.Kind
		}
	}()

	// The server subscribes asynchronously, so keep poking until an event arrives.
	require.Eventually(t, func() bool {
		if _, err := c.MarkAsRead(context.Background(), "1"); err != nil {
			return false
		}
		select {
		case kind := <-got:
			return kind == bus.KindRoomRead
		default:
			return false
		}
	}, 3*time.Second, 20*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	start := time.Now()
	require.NoError(t, app.Stop(stopCtx))
	assert.Less(t, time.Since(start), 3*time.Second)

	for range got {
	}
}

func TestSecondDaemonFailsOnHeldLock(t *testing.T) {
	shortHome(t)
	name := "locked"
	require.NoError(t, instance.EnsureDir(name))

	held, err := lock.Acquire(instance.Dir(name))
	require.NoError(t, err)
	defer func() { _ = held.Release() }()

	app := fx.New(fx.NopLogger, Module(Params{InstanceName: name, Config: testConfig()}))
	require.Error(t, app.Err())

	var heldErr *lock.HeldError
	require.ErrorAs(t, app.Err(), &heldErr)
	assert.Equal(t, os.Getpid(), heldErr.PID)
}

// NewServer must take Params rather than a bare string so fx can resolve it.
func TestNewServerHonorsSocketOverride(t *testing.T) {
	tmpDir, err := os.MkdirTemp("/tmp", "sc-srv-*")
	require.NoError(t, err)
	defer func() { _ = os.RemoveAll(tmpDir) }()

	socketPath := filepath.Join(tmpDir, "d.sock")
	now := time.Now()
	clk := clock.NewFake(now)
	store := chat.NewStore(directory.Default(now), nil, clk, nil, zap.NewNop())
	windows := window.NewManager(window.DefaultMaxConcurrent, store, nil, zap.NewNop())
	svc := api.NewChatService("override", store, windows, status.NewMachine(nil), bus.New(), nil)

	srv, err := NewServer(Params{InstanceName: "override", SocketPath: socketPath}, zap.NewNop(), svc)
	require.NoError(t, err)

	info, err := os.Stat(socketPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	srv.Stop(context.Background())
	_, err = os.Stat(socketPath)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestContactsFromConfig(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, directory.Default(now), contactsFromConfig(nil, now))

	seen := now.Add(-45 * time.Minute)
	got := contactsFromConfig([]config.ContactConfig{
		{ID: "vip", Name: "VIP Desk", Online: true, UnreadCount: 4},
		{ID: "away", Name: "Away Desk", LastSeen: &seen},
	}, now)
	require.Len(t, got, 2)
	assert.Equal(t, directory.Contact{ID: "vip", Name: "VIP Desk", Online: true, UnreadCount: 4}, got[0])
	assert.Equal(t, directory.Contact{ID: "away", Name: "Away Desk", LastSeen: &seen}, got[1])
}
