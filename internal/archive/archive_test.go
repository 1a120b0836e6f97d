package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/storechat/internal/bus"
	"github.com/matheus3301/storechat/internal/chat"
	"github.com/matheus3301/storechat/internal/clock"
	"github.com/matheus3301/storechat/internal/directory"
	"go.uber.org/zap"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)

	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 1 {
		t.Errorf("version = %d, want 1", result.Version)
	}
	if result.Dirty {
		t.Error("migration left the schema dirty")
	}
}

func TestRecordIdempotent(t *testing.T) {
	db := testDB(t)

	msg := &Message{RoomID: "1", MsgID: "m1", Sender: "self", Body: "hello", Status: "sent", CreatedAt: 1000}
	if err := db.Record(msg); err != nil {
		t.Fatal(err)
	}
	if err := db.Record(msg); err != nil {
		t.Fatal(err)
	}

	count, err := db.MessageCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1 (idempotent record failed)", count)
	}
}

func TestListMessagesNewestFirst(t *testing.T) {
	db := testDB(t)
	for i, body := range []string{"one", "two", "three"} {
		if err := db.Record(&Message{RoomID: "1", MsgID: body, Sender: "self", Body: body, Status: "sent", CreatedAt: int64(1000 * (i + 1))}); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.Record(&Message{RoomID: "2", MsgID: "other", Sender: "self", Body: "other", Status: "sent", CreatedAt: 5000}); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.ListMessages("1", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	if msgs[0].Body != "three" || msgs[2].Body != "one" {
		t.Errorf("order = %s,%s,%s; want three,two,one", msgs[0].Body, msgs[1].Body, msgs[2].Body)
	}

	older, err := db.ListMessages("1", 3000, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(older) != 2 {
		t.Errorf("got %d messages before 3000, want 2", len(older))
	}
}

func TestSearch(t *testing.T) {
	db := testDB(t)
	records := []*Message{
		{RoomID: "1", MsgID: "a", Sender: "self", Body: "Is the Blue Jacket in stock?", Status: "sent", CreatedAt: 1000},
		{RoomID: "2", MsgID: "b", Sender: "counterparty", Body: "The blue jacket ships Monday", Status: "delivered", CreatedAt: 2000},
		{RoomID: "2", MsgID: "c", Sender: "self", Body: "100% cotton?", Status: "sent", CreatedAt: 3000},
	}
	for _, m := range records {
		if err := db.Record(m); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name   string
		query  string
		roomID string
		want   []string
	}{
		{"case insensitive", "blue jacket", "", []string{"b", "a"}},
		{"room filter", "blue", "1", []string{"a"}},
		{"literal percent", "100%", "", []string{"c"}},
		{"no match", "sneakers", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.Search(tt.query, tt.roomID, 10)
			if err != nil {
				t.Fatal(err)
			}
			var ids []string
			for _, m := range got {
				ids = append(ids, m.MsgID)
			}
			if len(ids) != len(tt.want) {
				t.Fatalf("got %v, want %v", ids, tt.want)
			}
			for i := range ids {
				if ids[i] != tt.want[i] {
					t.Errorf("got %v, want %v", ids, tt.want)
				}
			}
		})
	}
}

func TestListRoomsSummaries(t *testing.T) {
	db := testDB(t)
	_ = db.Record(&Message{RoomID: "1", MsgID: "a", Sender: "self", Body: "first", Status: "sent", CreatedAt: 1000})
	_ = db.Record(&Message{RoomID: "1", MsgID: "b", Sender: "counterparty", Body: "latest", Status: "delivered", CreatedAt: 3000})
	_ = db.Record(&Message{RoomID: "2", MsgID: "c", Sender: "self", Body: "middle", Status: "sent", CreatedAt: 2000})

	rooms, err := db.ListRooms()
	if err != nil {
		t.Fatal(err)
	}
	if len(rooms) != 2 {
		t.Fatalf("got %d rooms, want 2", len(rooms))
	}
	if rooms[0].ID != "1" || rooms[0].LastMessagePreview != "latest" || rooms[0].MessageCount != 2 {
		t.Errorf("rooms[0] = %+v, want room 1 with preview latest and 2 messages", rooms[0])
	}
}

func TestRecorderArchivesBusMessages(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	r := NewRecorder(db, b, zap.NewNop())
	r.Start(context.Background())

	sent := time.UnixMilli(1700000000000)
	b.Emit(bus.KindMessageAppended, chat.MessageAppended{
		RoomID:  "3",
		Message: chat.Message{ID: "m1", Text: "where is my order", Sender: chat.SenderSelf, Status: chat.StatusSent, CreatedAt: sent},
	})
	b.Emit(bus.KindRoomRead, chat.RoomRead{RoomID: "3"})
	r.Stop()

	msgs, err := db.ListMessages("3", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d archived messages, want 1", len(msgs))
	}
	if msgs[0].Body != "where is my order" || msgs[0].Sender != "self" || msgs[0].CreatedAt != sent.UnixMilli() {
		t.Errorf("archived = %+v", msgs[0])
	}
}

func TestSeededMessagesArchivedOnceAcrossRestarts(t *testing.T) {
	db := testDB(t)
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	for boot := range 2 {
		b := bus.New()
		r := NewRecorder(db, b, zap.NewNop())
		r.Start(context.Background())
		clk := clock.NewFake(now.Add(time.Duration(boot) * time.Hour))
		chat.NewStore(directory.Default(now), nil, clk, b, zap.NewNop()).Initialize()
		r.Stop()
	}

	n, err := db.MessageCount()
	if err != nil {
		t.Fatal(err)
	}
	want := int64(2 * len(directory.Default(now).Contacts()))
	if n != want {
		t.Errorf("archived %d messages, want %d", n, want)
	}
}

func TestPreviewTruncatesRunes(t *testing.T) {
	if got := preview("héllo", 10); got != "héllo" {
		t.Errorf("preview short = %q", got)
	}
	if got := preview("ééééé", 2); got != "éé..." {
		t.Errorf("preview long = %q", got)
	}
}
