// internal/app/features/assignments/handler.go
package assignments

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/dutyhub/internal/app/features/shared"
	assignmentstore "github.com/dalemusser/dutyhub/internal/app/store/assignments"
	"github.com/dalemusser/dutyhub/internal/app/system/auth"
	"github.com/dalemusser/dutyhub/internal/app/system/inputval"
	"github.com/dalemusser/dutyhub/internal/app/system/timeouts"
	"github.com/dalemusser/dutyhub/internal/app/workflow"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the shared dependency container for the assignments feature.
type Handler struct {
	Engine *workflow.Engine
	Log    *zap.Logger
}

// NewHandler constructs an assignments Handler. Called from bootstrap's
// BuildHandler, where the DB and logger are already initialized.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Engine: workflow.New(db),
		Log:    logger,
	}
}

// createRequest is the JSON shape of a new assignment.
type createRequest struct {
	Title       string    `json:"title"`
	Location    string    `json:"location"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AssigneeIDs []string  `json:"assigneeIds"`
}

// updateRequest is a partial assignment update; absent fields stay as
// they are.
type updateRequest struct {
	Title       *string    `json:"title,omitempty"`
	Location    *string    `json:"location,omitempty"`
	Start       *time.Time `json:"start,omitempty"`
	End         *time.Time `json:"end,omitempty"`
	AssigneeIDs []string   `json:"assigneeIds,omitempty"`
}

// HandleCreate handles POST /assignments.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.CurrentIdentity(r)
	if !ok {
		shared.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createRequest
	if err := shared.Decode(w, r, &req); err != nil {
		shared.Error(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if err := inputval.AssignmentFields(req.Title, req.Location, req.Start, req.End, req.AssigneeIDs); err != nil {
		shared.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	assigneeIDs, err := parseObjectIDs(req.AssigneeIDs)
	if err != nil {
		shared.Error(w, http.StatusBadRequest, "invalid assignee id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	created, err := h.Engine.CreateAssignment(ctx, id, assignmentstore.InsertFields{
		Title:       req.Title,
		Location:    req.Location,
		Start:       req.Start,
		End:         req.End,
		AssigneeIDs: assigneeIDs,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	shared.JSON(w, http.StatusCreated, created)
}

// HandleUpdate handles PATCH /assignments/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.CurrentIdentity(r)
	if !ok {
		shared.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	assignmentID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		shared.Error(w, http.StatusNotFound, "assignment not found")
		return
	}

	var req updateRequest
	if err := shared.Decode(w, r, &req); err != nil {
		shared.Error(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	fields := assignmentstore.UpdateFields{
		Title:    req.Title,
		Location: req.Location,
		Start:    req.Start,
		End:      req.End,
	}
	if req.AssigneeIDs != nil {
		if err := inputval.AssigneeIDs(req.AssigneeIDs); err != nil {
			shared.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		ids, err := parseObjectIDs(req.AssigneeIDs)
		if err != nil {
			shared.Error(w, http.StatusBadRequest, "invalid assignee id")
			return
		}
		fields.AssigneeIDs = ids
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	updated, err := h.Engine.UpdateAssignment(ctx, id, assignmentID, fields)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	shared.JSON(w, http.StatusOK, updated)
}

// HandleDelete handles DELETE /assignments/{id}. The removed assignment is
// echoed back for audit trails.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.CurrentIdentity(r)
	if !ok {
		shared.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	assignmentID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		shared.Error(w, http.StatusNotFound, "assignment not found")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	removed, err := h.Engine.DeleteAssignment(ctx, id, assignmentID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	shared.JSON(w, http.StatusOK, removed)
}

// ServeGet handles GET /assignments/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.CurrentIdentity(r)
	if !ok {
		shared.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	assignmentID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		shared.Error(w, http.StatusNotFound, "assignment not found")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	a, err := h.Engine.GetAssignment(ctx, id, assignmentID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	shared.JSON(w, http.StatusOK, a)
}

// ServeList handles GET /assignments?from=…&to=… where the bounds select
// assignments whose window overlaps the range. Both bounds are optional
// RFC 3339 timestamps.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.CurrentIdentity(r)
	if !ok {
		shared.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var lr assignmentstore.ListRange
	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			shared.Error(w, http.StatusBadRequest, "invalid from timestamp")
			return
		}
		lr.From = t
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			shared.Error(w, http.StatusBadRequest, "invalid to timestamp")
			return
		}
		lr.To = t
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Engine.ListAssignments(ctx, id, lr)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	shared.JSON(w, http.StatusOK, list)
}

// respondError translates the engine's closed error set into HTTP
// statuses. Anything outside the set is an infrastructure fault: logged,
// surfaced as a bare 500, never retried here.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, workflow.ErrNotPresident):
		shared.Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, assignmentstore.ErrNotFound):
		shared.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, assignmentstore.ErrAssigneeNotFound):
		shared.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, assignmentstore.ErrInsertionInThePast),
		errors.Is(err, assignmentstore.ErrInvalidTimeBoundaries):
		shared.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, assignmentstore.ErrCannotBeAltered):
		shared.Error(w, http.StatusLocked, err.Error())
	default:
		h.Log.Error("assignment operation failed",
			zap.String("path", r.URL.Path),
			zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
	}
}

func parseObjectIDs(raw []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(raw))
	for _, s := range raw {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
