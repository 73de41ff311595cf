package webapi

import (
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/cwaproj/cwa/internal/domain"
)

// wsMessage is the envelope pushed to every dashboard subscriber: a
// monotonically increasing sequence number per project plus a typed
// payload, so a client can detect a dropped message and re-sync via the
// REST API instead of silently drifting.
type wsMessage struct {
	Type    string `json:"type"`
	Seq     uint64 `json:"seq"`
	Payload any    `json:"payload"`
}

const (
	wsTypeBoardRefresh = "BoardRefresh"
	wsTypeTaskUpdated  = "TaskUpdated"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Broadcaster owns the set of connected dashboard websocket clients and
// fans out board-change notifications fed from the primary store's
// pub/sub subscription.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[*subscriber]struct{}
	seq  atomic.Uint64
	log  *slog.Logger
}

type subscriber struct {
	conn *websocket.Conn
	send chan wsMessage
}

// NewBroadcaster builds an empty broadcaster.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{subs: make(map[*subscriber]struct{}), log: logger}
}

// HandleUpgrade upgrades an incoming request to a websocket and registers
// it as a subscriber until the connection closes.
func (b *Broadcaster) HandleUpgrade(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	sub := &subscriber{conn: conn, send: make(chan wsMessage, 32)}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	go b.writeLoop(sub)
	go b.readLoop(sub)
	return nil
}

// writeLoop drains the subscriber's outgoing queue until it is dropped.
func (b *Broadcaster) writeLoop(sub *subscriber) {
	defer sub.conn.Close()
	for msg := range sub.send {
		if err := sub.conn.WriteJSON(msg); err != nil {
			b.drop(sub)
			return
		}
	}
}

// readLoop discards client frames but notices disconnects (gorilla's
// Upgrade requires someone to keep reading the connection).
func (b *Broadcaster) readLoop(sub *subscriber) {
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			b.drop(sub)
			return
		}
	}
}

func (b *Broadcaster) drop(sub *subscriber) {
	b.mu.Lock()
	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub.send)
	}
	b.mu.Unlock()
}

// Broadcast fans a typed payload out to every connected subscriber,
// stamping it with the next sequence number. Slow subscribers whose send
// queue is full are dropped rather than allowed to back-pressure the rest.
func (b *Broadcaster) Broadcast(msgType string, payload any) {
	msg := wsMessage{Type: msgType, Seq: b.seq.Add(1), Payload: payload}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs {
		select {
		case sub.send <- msg:
		default:
			b.log.Warn("dashboard subscriber queue full, dropping connection")
			go b.drop(sub)
		}
	}
}

// eventMessageType maps a domain event type to the websocket message type
// a dashboard cares about. Events with no dashboard relevance return "".
func eventMessageType(eventType string) string {
	switch eventType {
	case domain.EventTaskCreated, domain.EventTaskMoved, domain.EventTaskUpdated:
		return wsTypeTaskUpdated
	case domain.EventBoardRefresh:
		return wsTypeBoardRefresh
	default:
		return ""
	}
}

// BroadcastEvent maps one primary-store event to its dashboard message type
// and broadcasts it; events the dashboard doesn't care about are dropped.
func (b *Broadcaster) BroadcastEvent(evt domain.Event) {
	msgType := eventMessageType(evt.Type)
	if msgType == "" {
		return
	}
	b.Broadcast(msgType, evt.Payload)
}

// Pump consumes domain events from ch (as produced by store.Subscribe)
// until it closes, broadcasting each one a dashboard cares about. Run it
// in its own goroutine for the lifetime of the process.
func (b *Broadcaster) Pump(ch <-chan domain.Event) {
	for evt := range ch {
		b.BroadcastEvent(evt)
	}
}
