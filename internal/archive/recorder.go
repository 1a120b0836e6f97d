package archive

import (
	"context"

	"github.com/matheus3301/storechat/internal/bus"
	"github.com/matheus3301/storechat/internal/chat"
	"go.uber.org/zap"
)

// Recorder copies every appended chat message from the bus into the archive.
type Recorder struct {
	db     *DB
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRecorder creates a recorder. Call Start to begin consuming events.
func NewRecorder(db *DB, b *bus.Bus, logger *zap.Logger) *Recorder {
	return &Recorder{
		db:     db,
		bus:    b,
		logger: logger,
	}
}

// Start subscribes to message events on the bus.
func (r *Recorder) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	ch, unsub := r.bus.Subscribe("chat.message.", 256)

	go func() {
		defer close(r.done)
		defer unsub()
		for {
			select {
			case evt := <-ch:
				r.handleEvent(evt)
			case <-ctx.Done():
				// Flush what is already buffered so a clean shutdown loses nothing.
				for {
					select {
					case evt := <-ch:
						r.handleEvent(evt)
					default:
						return
					}
				}
			}
		}
	}()
}

// Stop stops the recorder and waits for buffered events to be written.
func (r *Recorder) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
}

func (r *Recorder) handleEvent(evt bus.Event) {
	appended, ok := evt.Payload.(chat.MessageAppended)
	if !ok {
		return
	}
	if err := r.Ingest(appended.RoomID, appended.Message); err != nil {
		r.logger.Error("failed to archive message", zap.Error(err),
			zap.String("room_id", appended.RoomID), zap.String("msg_id", appended.Message.ID))
	}
}

// Ingest records one chat message.
func (r *Recorder) Ingest(roomID string, m chat.Message) error {
	return r.db.Record(&Message{
		RoomID:    roomID,
		MsgID:     m.ID,
		Sender:    string(m.Sender),
		Body:      m.Text,
		Status:    string(m.Status),
		CreatedAt: m.CreatedAt.UnixMilli(),
	})
}
