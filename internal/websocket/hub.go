package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// replayDepth is how many recent events the hub keeps per household for
// reconnect catch-up.
const replayDepth = 128

// replayRetention is how long a household's replay ring survives after its
// last client disconnects. Reconnects within the window still catch up;
// after it the household's state is released.
const replayRetention = 15 * time.Minute

// Message is a real-time sync event delivered to household clients. Seq is
// assigned by the hub, strictly increasing per household.
type Message struct {
	Seq    uint64         `json:"seq"`
	Type   string         `json:"type"`
	Entity string         `json:"entity"`
	Action string         `json:"action"`
	ID     int64          `json:"id,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
func NewMessage(entity, action string, id int64, extra map[string]any) Message {
	return Message{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		ID:     id,
		Extra:  extra,
	}
}

// Audience selects which household clients receive an event. MemberID
// narrows delivery to one member; ParentsOnly narrows it to parent clients.
type Audience struct {
	HouseholdID int64
	MemberID    int64
	ParentsOnly bool
}

// Everyone addresses all clients of a household.
func Everyone(householdID int64) Audience {
	return Audience{HouseholdID: householdID}
}

// Parents addresses only parent clients of a household.
func Parents(householdID int64) Audience {
	return Audience{HouseholdID: householdID, ParentsOnly: true}
}

// Member addresses a single member's clients.
func Member(householdID, memberID int64) Audience {
	return Audience{HouseholdID: householdID, MemberID: memberID}
}

func (a Audience) covers(c *Client) bool {
	if a.HouseholdID != c.householdID {
		return false
	}
	if a.MemberID != 0 && a.MemberID != c.memberID {
		return false
	}
	if a.ParentsOnly && !c.isParent {
		return false
	}
	return true
}

type event struct {
	audience Audience
	seq      uint64
	data     []byte
}

// household tracks one household's clients and its replay ring.
type household struct {
	clients    map[*Client]struct{}
	seq        uint64
	ring       []event
	emptySince time.Time
}

// Hub maintains the set of active clients grouped by household and fans
// events out to the audiences that should see them.
type Hub struct {
	mu         sync.RWMutex
	households map[int64]*household
	logger     *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		households: make(map[int64]*household),
		logger:     logger,
	}
}

// Register adds a client and replays any buffered events newer than the
// client's last seen sequence number. A sinceSeq of zero means no replay.
func (h *Hub) Register(c *Client, sinceSeq uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.pruneLocked(time.Now())

	hh := h.households[c.householdID]
	if hh == nil {
		hh = &household{clients: make(map[*Client]struct{})}
		h.households[c.householdID] = hh
	}
	hh.clients[c] = struct{}{}
	hh.emptySince = time.Time{}

	if sinceSeq == 0 {
		return
	}
	for _, ev := range hh.ring {
		if ev.seq > sinceSeq && ev.audience.covers(c) {
			select {
			case c.send <- ev.data:
			default:
				h.logger.Warn("replay buffer overflow", "household_id", c.householdID, "member_id", c.memberID)
				return
			}
		}
	}
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	hh := h.households[c.householdID]
	if hh == nil {
		return
	}
	if _, ok := hh.clients[c]; ok {
		delete(hh.clients, c)
		close(c.send)
	}
	if len(hh.clients) == 0 {
		if len(hh.ring) == 0 {
			delete(h.households, c.householdID)
		} else {
			// Keep the ring for a while so a quick reconnect can replay.
			hh.emptySince = time.Now()
		}
	}
}

// pruneLocked releases households whose last client left longer than the
// replay retention ago. Callers must hold the write lock.
func (h *Hub) pruneLocked(now time.Time) {
	for id, hh := range h.households {
		if len(hh.clients) == 0 && !hh.emptySince.IsZero() && now.Sub(hh.emptySince) > replayRetention {
			delete(h.households, id)
		}
	}
}

// Broadcast stamps the message with the household's next sequence number,
// records it for replay, and delivers it to every client the audience
// covers. Slow clients have the message dropped rather than blocking the
// caller; they recover through replay on reconnect.
func (h *Hub) Broadcast(aud Audience, msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.pruneLocked(time.Now())

	hh := h.households[aud.HouseholdID]
	if hh == nil {
		hh = &household{clients: make(map[*Client]struct{})}
		h.households[aud.HouseholdID] = hh
	}
	if len(hh.clients) == 0 && hh.emptySince.IsZero() {
		hh.emptySince = time.Now()
	}

	hh.seq++
	msg.Seq = hh.seq

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	hh.ring = append(hh.ring, event{audience: aud, seq: msg.Seq, data: data})
	if len(hh.ring) > replayDepth {
		hh.ring = hh.ring[len(hh.ring)-replayDepth:]
	}

	for c := range hh.clients {
		if !aud.covers(c) {
			continue
		}
		select {
		case c.send <- data:
		default:
		}
	}
}

// ClientCount returns the number of connected clients across households.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, hh := range h.households {
		n += len(hh.clients)
	}
	return n
}
