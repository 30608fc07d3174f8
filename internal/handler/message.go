package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/parentpal/parentpal/internal/auth"
	"github.com/parentpal/parentpal/internal/model"
	"github.com/parentpal/parentpal/internal/push"
	"github.com/parentpal/parentpal/internal/store"
	"github.com/parentpal/parentpal/internal/websocket"
)

const defaultChatLimit = 100

type MessageHandler struct {
	messages *store.MessageStore
	members  *store.FamilyMemberStore
	hub      *websocket.Hub
	notifier *push.Notifier
	logger   *slog.Logger
}

func NewMessageHandler(
	msgs *store.MessageStore,
	ms *store.FamilyMemberStore,
	hub *websocket.Hub,
	notifier *push.Notifier,
	logger *slog.Logger,
) *MessageHandler {
	return &MessageHandler{
		messages: msgs,
		members:  ms,
		hub:      hub,
		notifier: notifier,
		logger:   logger.With("component", "messages"),
	}
}

// List returns the caller's view of the family chat: broadcasts plus direct
// messages they sent or received, in chronological order.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultChatLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	msgs, err := h.messages.ListChat(auth.HouseholdID(r.Context()), auth.MemberID(r.Context()), limit)
	if err != nil {
		h.logger.Error("list chat", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}
	if msgs == nil {
		msgs = []model.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReceiverID *int64 `json:"receiver_id"`
		Content    string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	householdID := auth.HouseholdID(r.Context())
	senderID := auth.MemberID(r.Context())

	if req.ReceiverID != nil {
		receiver, err := h.members.GetByID(householdID, *req.ReceiverID)
		if err != nil {
			h.logger.Error("get receiver", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to send message")
			return
		}
		if receiver == nil {
			writeError(w, http.StatusBadRequest, "receiver is not a member of this household")
			return
		}
	}

	msg, err := h.messages.CreateChat(householdID, senderID, req.ReceiverID, req.Content)
	if err != nil {
		writeStoreError(w, err, "failed to send message")
		return
	}

	extra := map[string]any{"sender_id": senderID}
	if h.hub != nil {
		aud := websocket.Everyone(householdID)
		if req.ReceiverID != nil {
			// Direct messages reach only the two parties. Two targeted
			// events rather than one so replay stays per-member correct.
			h.hub.Broadcast(websocket.Member(householdID, *req.ReceiverID),
				websocket.NewMessage("message", "created", msg.ID, extra))
			aud = websocket.Member(householdID, senderID)
		}
		h.hub.Broadcast(aud, websocket.NewMessage("message", "created", msg.ID, extra))
	}

	sender, err := h.members.GetByID(householdID, senderID)
	if err == nil && sender != nil {
		if req.ReceiverID != nil {
			h.notifier.MessageReceived(householdID, *req.ReceiverID, sender.Name)
		} else {
			var senderUserID int64
			if sender.UserID != nil {
				senderUserID = *sender.UserID
			}
			h.notifier.FamilyAnnouncement(householdID, senderUserID, sender.Name)
		}
	}
	writeJSON(w, http.StatusCreated, msg)
}
