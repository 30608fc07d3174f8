package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/parentpal/parentpal/internal/achievement"
	"github.com/parentpal/parentpal/internal/auth"
	"github.com/parentpal/parentpal/internal/chore"
	"github.com/parentpal/parentpal/internal/model"
	"github.com/parentpal/parentpal/internal/push"
	"github.com/parentpal/parentpal/internal/recurrence"
	"github.com/parentpal/parentpal/internal/storage"
	"github.com/parentpal/parentpal/internal/store"
	"github.com/parentpal/parentpal/internal/websocket"
)

const maxChoreImageBytes = 10 << 20

type ChoreHandler struct {
	chores       *store.ChoreStore
	members      *store.FamilyMemberStore
	achievements *store.AchievementStore
	messages     *store.MessageStore
	objects      *storage.Store
	hub          *websocket.Hub
	notifier     *push.Notifier
	logger       *slog.Logger
}

func NewChoreHandler(
	cs *store.ChoreStore,
	ms *store.FamilyMemberStore,
	as *store.AchievementStore,
	msgs *store.MessageStore,
	objects *storage.Store,
	hub *websocket.Hub,
	notifier *push.Notifier,
	logger *slog.Logger,
) *ChoreHandler {
	return &ChoreHandler{
		chores:       cs,
		members:      ms,
		achievements: as,
		messages:     msgs,
		objects:      objects,
		hub:          hub,
		notifier:     notifier,
		logger:       logger.With("component", "chores"),
	}
}

type choreRequest struct {
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	Points               int        `json:"points"`
	AssignedTo           *int64     `json:"assigned_to"`
	DueDate              *time.Time `json:"due_date"`
	Recurrence           string     `json:"recurrence"`
	Priority             string     `json:"priority"`
	VerificationRequired bool       `json:"verification_required"`
}

func (r *choreRequest) validate() (store.ChoreParams, string) {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		return store.ChoreParams{}, "title is required"
	}
	if r.Points < 0 {
		return store.ChoreParams{}, "points cannot be negative"
	}
	rule, err := recurrence.Parse(r.Recurrence)
	if err != nil {
		return store.ChoreParams{}, "recurrence must be none, daily, weekly or monthly"
	}

	priority := r.Priority
	switch priority {
	case "":
		priority = model.PriorityMedium
	case model.PriorityLow, model.PriorityMedium, model.PriorityHigh:
	default:
		return store.ChoreParams{}, "priority must be low, medium or high"
	}

	return store.ChoreParams{
		Title:                title,
		Description:          r.Description,
		Points:               r.Points,
		AssignedTo:           r.AssignedTo,
		DueDate:              r.DueDate,
		Recurrence:           string(rule),
		Priority:             priority,
		VerificationRequired: r.VerificationRequired,
	}, ""
}

// actor loads the acting member's profile for capability checks.
func (h *ChoreHandler) actor(r *http.Request) (*model.FamilyMember, error) {
	return h.members.GetByID(auth.HouseholdID(r.Context()), auth.MemberID(r.Context()))
}

func (h *ChoreHandler) broadcast(householdID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(websocket.Everyone(householdID), msg)
	}
}

// startOfWeek returns midnight UTC on the Monday of t's week.
func startOfWeek(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -offset)
}

// verifyAssignment validates an assigned_to value: the member must exist in
// the household, and assigning to a child must not exceed their weekly cap.
func (h *ChoreHandler) verifyAssignment(w http.ResponseWriter, householdID int64, assignedTo *int64) bool {
	if assignedTo == nil {
		return true
	}
	member, err := h.members.GetByID(householdID, *assignedTo)
	if err != nil {
		h.logger.Error("get assignee", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to check assignee")
		return false
	}
	if member == nil {
		writeError(w, http.StatusBadRequest, "assignee is not a member of this household")
		return false
	}
	if member.WeeklyCap != nil {
		open, err := h.members.CountOpenAssigned(member.ID, startOfWeek(time.Now()))
		if err != nil {
			h.logger.Error("count open chores", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to check weekly cap")
			return false
		}
		if open >= *member.WeeklyCap {
			writeError(w, http.StatusConflict, "assignee has reached their weekly chore cap")
			return false
		}
	}
	return true
}

func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	status := r.URL.Query().Get("status")
	if status != "" && !chore.Valid(chore.Status(status)) {
		writeError(w, http.StatusBadRequest, "unknown status filter")
		return
	}

	var assignedTo int64
	if raw := r.URL.Query().Get("assigned_to"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid assigned_to filter")
			return
		}
		assignedTo = id
	}

	chores, err := h.chores.List(householdID, status, assignedTo)
	if err != nil {
		h.logger.Error("list chores", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list chores")
		return
	}
	if chores == nil {
		chores = []model.Chore{}
	}
	writeJSON(w, http.StatusOK, chores)
}

func (h *ChoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	c, err := h.chores.GetByID(auth.HouseholdID(r.Context()), id)
	if err != nil {
		h.logger.Error("get chore", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load chore")
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "chore not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req choreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	params, msg := req.validate()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	actor, err := h.actor(r)
	if err != nil || actor == nil {
		writeError(w, http.StatusInternalServerError, "failed to resolve member")
		return
	}
	if params.AssignedTo != nil && !actor.Can(func(c model.Capabilities) bool { return c.AssignChores }) {
		writeError(w, http.StatusForbidden, "assigning chores requires the assign_chores capability")
		return
	}

	householdID := auth.HouseholdID(r.Context())
	if !h.verifyAssignment(w, householdID, params.AssignedTo) {
		return
	}

	createdBy := actor.ID
	c, err := h.chores.Create(householdID, &createdBy, params)
	if err != nil {
		writeStoreError(w, err, "failed to create chore")
		return
	}

	h.broadcast(householdID, websocket.NewMessage("chore", "created", c.ID, nil))
	if c.AssignedTo != nil {
		h.notifier.ChoreAssigned(householdID, *c.AssignedTo, c.Title)
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *ChoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req choreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	params, msg := req.validate()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	householdID := auth.HouseholdID(r.Context())
	existing, err := h.chores.GetByID(householdID, id)
	if err != nil {
		h.logger.Error("get chore", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load chore")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "chore not found")
		return
	}

	// Only re-check the cap when the assignment actually changes.
	if params.AssignedTo != nil && (existing.AssignedTo == nil || *existing.AssignedTo != *params.AssignedTo) {
		actor, err := h.actor(r)
		if err != nil || actor == nil {
			writeError(w, http.StatusInternalServerError, "failed to resolve member")
			return
		}
		if !actor.Can(func(c model.Capabilities) bool { return c.AssignChores }) {
			writeError(w, http.StatusForbidden, "assigning chores requires the assign_chores capability")
			return
		}
		if !h.verifyAssignment(w, householdID, params.AssignedTo) {
			return
		}
	}

	c, err := h.chores.Update(householdID, id, params)
	if err != nil {
		writeStoreError(w, err, "failed to update chore")
		return
	}

	h.broadcast(householdID, websocket.NewMessage("chore", "updated", id, nil))
	if c.AssignedTo != nil && (existing.AssignedTo == nil || *existing.AssignedTo != *c.AssignedTo) {
		h.notifier.ChoreAssigned(householdID, *c.AssignedTo, c.Title)
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ChoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	householdID := auth.HouseholdID(r.Context())
	c, err := h.chores.GetByID(householdID, id)
	if err != nil {
		h.logger.Error("get chore", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete chore")
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "chore not found")
		return
	}

	keys, err := h.chores.ImageKeys(id)
	if err != nil {
		h.logger.Warn("list image keys", "error", err)
	}

	if err := h.chores.Delete(householdID, id); err != nil {
		h.logger.Error("delete chore", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete chore")
		return
	}

	for _, key := range keys {
		if err := h.objects.Delete(r.Context(), key); err != nil {
			h.logger.Warn("delete chore image object", "key", key, "error", err)
		}
	}

	h.broadcast(householdID, websocket.NewMessage("chore", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

// UpdateStatus moves a chore through its lifecycle. Completion is where the
// interesting work happens: the points grant, streak bump, recurring respawn
// and milestone awards all hang off the transition landing in completed.
func (h *ChoreHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	householdID := auth.HouseholdID(r.Context())
	c, err := h.chores.GetByID(householdID, id)
	if err != nil {
		h.logger.Error("get chore", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load chore")
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "chore not found")
		return
	}

	actor, err := h.actor(r)
	if err != nil || actor == nil {
		writeError(w, http.StatusInternalServerError, "failed to resolve member")
		return
	}

	// Children can only act on their own chores or unassigned ones.
	if actor.Role == model.RoleChild && c.AssignedTo != nil && *c.AssignedTo != actor.ID {
		writeError(w, http.StatusForbidden, "this chore is assigned to someone else")
		return
	}

	canApprove := actor.Can(func(caps model.Capabilities) bool { return caps.ApproveChores })
	landed, err := chore.Transition(chore.Status(c.Status), chore.Status(req.Status), c.VerificationRequired, canApprove)
	if err != nil {
		writeStoreError(w, err, "invalid status change")
		return
	}

	if landed == chore.StatusCompleted {
		h.finishChore(w, r, c, actor, canApprove)
		return
	}

	updated, err := h.chores.UpdateStatus(householdID, id, string(landed))
	if err != nil {
		writeStoreError(w, err, "failed to update chore status")
		return
	}

	h.broadcast(householdID, websocket.NewMessage("chore", "updated", id, map[string]any{"status": string(landed)}))
	if landed == chore.StatusAwaitingVerification {
		h.notifier.VerificationNeeded(householdID, actor.Name, c.Title)
	}
	writeJSON(w, http.StatusOK, updated)
}

// finishChore finalizes a completion: ledger grant, streak, recurring
// respawn, then milestone awards.
func (h *ChoreHandler) finishChore(w http.ResponseWriter, r *http.Request, c *model.Chore, actor *model.FamilyMember, verified bool) {
	householdID := c.HouseholdID

	// Points go to the assignee when there is one, otherwise to whoever
	// finished the chore.
	earnerID := actor.ID
	if c.AssignedTo != nil {
		earnerID = *c.AssignedTo
	}

	completion := store.Completion{
		ChoreID:     c.ID,
		HouseholdID: householdID,
		MemberID:    earnerID,
		Points:      c.Points,
		Reason:      "chore: " + c.Title,
	}
	if verified && c.VerificationRequired {
		verifier := actor.ID
		completion.VerifiedBy = &verifier
	}

	rule, _ := recurrence.Parse(c.Recurrence)
	completion.NextDue = rule.NextDue(c.DueDate, time.Now())

	updated, err := h.chores.RecordCompletion(completion)
	if err != nil {
		h.logger.Error("record completion", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to complete chore")
		return
	}

	h.broadcast(householdID, websocket.NewMessage("chore", "completed", c.ID, map[string]any{
		"member_id": earnerID,
		"points":    c.Points,
	}))
	if c.Points > 0 && h.hub != nil {
		h.hub.Broadcast(websocket.Member(householdID, earnerID),
			websocket.NewMessage("points", "granted", earnerID, map[string]any{"delta": c.Points}))
	}

	h.awardMilestones(householdID, earnerID)
	writeJSON(w, http.StatusOK, updated)
}

// awardMilestones grants any chore-count or streak milestones the member has
// just reached. Titles are the natural key, so an already-earned milestone is
// never granted twice.
func (h *ChoreHandler) awardMilestones(householdID, memberID int64) {
	count, err := h.achievements.CompletedChoreCount(memberID)
	if err != nil {
		h.logger.Warn("count completed chores", "error", err)
		return
	}
	member, err := h.members.GetByID(householdID, memberID)
	if err != nil || member == nil {
		h.logger.Warn("load member for milestones", "error", err)
		return
	}

	reached := achievement.ForChoreCount(count)
	reached = append(reached, achievement.ForStreak(member.StreakCount)...)

	for _, m := range reached {
		existing, err := h.achievements.GetByTitle(memberID, m.Title)
		if err != nil {
			h.logger.Warn("check milestone", "title", m.Title, "error", err)
			continue
		}
		if existing != nil {
			continue
		}
		a, err := h.achievements.Create(memberID, m.Title, m.Description, m.Category, m.Target, m.Target, m.Secret)
		if err != nil {
			h.logger.Warn("grant milestone", "title", m.Title, "error", err)
			continue
		}
		h.logger.Info("milestone earned", "member_id", memberID, "title", m.Title)
		h.broadcast(householdID, websocket.NewMessage("achievement", "earned", a.ID, map[string]any{
			"member_id": memberID,
			"title":     m.Title,
		}))
	}
}

// UploadImage attaches a before/after/reference photo to a chore. The object
// goes to storage first; a failed DB insert deletes it again.
func (h *ChoreHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if !h.objects.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "image uploads are not configured")
		return
	}

	householdID := auth.HouseholdID(r.Context())
	c, err := h.chores.GetByID(householdID, id)
	if err != nil {
		h.logger.Error("get chore", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load chore")
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "chore not found")
		return
	}

	file, header, err := readImageUpload(w, r, maxChoreImageBytes)
	if err != nil {
		return
	}
	defer file.Close()

	imgType := r.FormValue("type")
	switch imgType {
	case "":
		imgType = model.ImageAfter
	case model.ImageBefore, model.ImageAfter, model.ImageReference:
	default:
		writeError(w, http.StatusBadRequest, "image type must be before, after or reference")
		return
	}

	key, url, err := h.objects.Upload(r.Context(), "chores", file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		h.logger.Error("upload chore image", "error", err)
		writeError(w, http.StatusBadGateway, "failed to store image")
		return
	}

	uploadedBy := auth.MemberID(r.Context())
	img, err := h.chores.AddImage(id, url, key, imgType, &uploadedBy)
	if err != nil {
		h.logger.Error("save chore image", "error", err)
		if derr := h.objects.Delete(r.Context(), key); derr != nil {
			h.logger.Warn("compensating delete failed", "key", key, "error", derr)
		}
		writeError(w, http.StatusInternalServerError, "failed to save image")
		return
	}

	h.broadcast(householdID, websocket.NewMessage("chore", "updated", id, nil))
	writeJSON(w, http.StatusCreated, img)
}

func (h *ChoreHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	c, err := h.chores.GetByID(auth.HouseholdID(r.Context()), id)
	if err != nil {
		h.logger.Error("get chore", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load chore")
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "chore not found")
		return
	}

	images, err := h.chores.ListImages(id)
	if err != nil {
		h.logger.Error("list chore images", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list images")
		return
	}
	if images == nil {
		images = []model.ChoreImage{}
	}
	writeJSON(w, http.StatusOK, images)
}

// --- Chore discussion threads ---

func (h *ChoreHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	c, err := h.chores.GetByID(auth.HouseholdID(r.Context()), id)
	if err != nil {
		h.logger.Error("get chore", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load chore")
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "chore not found")
		return
	}

	msgs, err := h.messages.ListChoreMessages(id)
	if err != nil {
		h.logger.Error("list chore messages", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}
	if msgs == nil {
		msgs = []model.ChoreMessage{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (h *ChoreHandler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	householdID := auth.HouseholdID(r.Context())
	c, err := h.chores.GetByID(householdID, id)
	if err != nil {
		h.logger.Error("get chore", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load chore")
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "chore not found")
		return
	}

	msg, err := h.messages.CreateChoreMessage(id, auth.MemberID(r.Context()), req.Content)
	if err != nil {
		writeStoreError(w, err, "failed to post message")
		return
	}

	h.broadcast(householdID, websocket.NewMessage("chore_message", "created", msg.ID, map[string]any{"chore_id": id}))
	writeJSON(w, http.StatusCreated, msg)
}
