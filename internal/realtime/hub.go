package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/fasthttp/websocket"

	"railway/internal/domain"
	"railway/internal/domain/models"
	"railway/internal/utils"
)

const (
	TypePassengerUpdate  = "PASSENGER_UPDATE"
	TypePassengerUpdated = "PASSENGER_UPDATED"
	TypeUpdateFailed     = "UPDATE_FAILED"
	TypePing             = "ping"
	TypePong             = "pong"

	writeWait = 10 * time.Second
)

// Inbound is a message sent by a browser.
type Inbound struct {
	Type        string                `json:"type"`
	PassengerID int64                 `json:"passengerId"`
	Updates     models.PassengerPatch `json:"updates"`
	Version     int                   `json:"version"`
}

// Outbound is a message pushed to a browser.
type Outbound struct {
	Type        string `json:"type"`
	PassengerID int64  `json:"passengerId,omitempty"`
	Payload     any    `json:"payload,omitempty"`
	Version     int    `json:"version,omitempty"`
	Code        string `json:"code,omitempty"`
	Message     string `json:"message,omitempty"`
}

// PassengerUpdater is the versioned update the hub forwards edits to.
type PassengerUpdater interface {
	Update(ctx context.Context, ownerID, passengerID int64, patch models.PassengerPatch, expectedVersion int) (models.UpdateResult, error)
}

type client struct {
	conn   *websocket.Conn
	userID int64
	mu     sync.Mutex
}

func (c *client) send(msg Outbound) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub keeps the open sockets per user. PASSENGER_UPDATED goes to every
// socket of the passenger's owner; with a Fanout set it first travels
// through redis so sockets on other instances get it too.
type Hub struct {
	Updater  PassengerUpdater
	Fanout   *RedisFanout
	Upgrader websocket.Upgrader

	mu     sync.RWMutex
	byUser map[int64]map[*client]struct{}
}

func NewHub(updater PassengerUpdater, fanout *RedisFanout, allowedOrigins []string) *Hub {
	h := &Hub{
		Updater: updater,
		Fanout:  fanout,
		byUser:  map[int64]map[*client]struct{}{},
	}
	h.Upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := map[string]bool{}
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set["*"] || set[origin]
	}
}

// Serve upgrades the request and blocks until the socket closes. The
// caller must have authenticated userID.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID int64) error {
	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	h.handle(r.Context(), conn, userID)
	return nil
}

func (h *Hub) handle(ctx context.Context, conn *websocket.Conn, userID int64) {
	c := &client{conn: conn, userID: userID}
	h.add(c)
	rid := domain.RequestID(ctx)
	utils.LogEvent(rid, "realtime", "connect", fmt.Sprintf("user_id=%d", userID))

	defer func() {
		h.remove(c)
		conn.Close()
		utils.LogEvent(rid, "realtime", "disconnect", fmt.Sprintf("user_id=%d", userID))
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var in Inbound
		if err := json.Unmarshal(raw, &in); err != nil {
			_ = c.send(Outbound{Type: TypeUpdateFailed, Code: "invalid_json", Message: "message is not valid JSON"})
			continue
		}
		switch in.Type {
		case TypePing:
			_ = c.send(Outbound{Type: TypePong})
		case TypePassengerUpdate:
			h.updatePassenger(ctx, c, in)
		default:
			_ = c.send(Outbound{Type: TypeUpdateFailed, Code: "unknown_type", Message: fmt.Sprintf("unknown message type %q", in.Type)})
		}
	}
}

func (h *Hub) updatePassenger(ctx context.Context, c *client, in Inbound) {
	if h.Updater == nil {
		_ = c.send(Outbound{Type: TypeUpdateFailed, PassengerID: in.PassengerID, Code: "unavailable", Message: "updates are disabled"})
		return
	}
	// On success the updater's notifier delivers PASSENGER_UPDATED.
	if _, err := h.Updater.Update(ctx, c.userID, in.PassengerID, in.Updates, in.Version); err != nil {
		_ = c.send(Outbound{
			Type:        TypeUpdateFailed,
			PassengerID: in.PassengerID,
			Code:        domain.Code(err),
			Message:     err.Error(),
		})
	}
}

// PassengerUpdated pushes the refreshed record to the owner's sockets.
func (h *Hub) PassengerUpdated(ctx context.Context, p models.Passenger) error {
	if h.Fanout != nil {
		return h.Fanout.Publish(ctx, p)
	}
	h.deliver(p)
	return nil
}

// Run relays fan-out messages to local sockets until ctx is done. Without a
// Fanout it returns at once.
func (h *Hub) Run(ctx context.Context) {
	if h.Fanout == nil {
		return
	}
	h.Fanout.Subscribe(ctx, h.deliver)
}

func (h *Hub) deliver(p models.Passenger) {
	msg := Outbound{Type: TypePassengerUpdated, PassengerID: p.ID, Payload: p, Version: p.Version}
	h.mu.RLock()
	conns := make([]*client, 0, len(h.byUser[p.OwnerID]))
	for c := range h.byUser[p.OwnerID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.send(msg); err != nil {
			utils.LogError("", "realtime", "deliver", err)
		}
	}
}

// Connections returns how many sockets userID has open.
func (h *Hub) Connections(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byUser[userID])
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.byUser[c.userID] == nil {
		h.byUser[c.userID] = map[*client]struct{}{}
	}
	h.byUser[c.userID][c] = struct{}{}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.byUser[c.userID], c)
	if len(h.byUser[c.userID]) == 0 {
		delete(h.byUser, c.userID)
	}
}
