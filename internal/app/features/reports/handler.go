// internal/app/features/reports/handler.go
package reports

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/dutyhub/internal/app/features/shared"
	assignmentstore "github.com/dalemusser/dutyhub/internal/app/store/assignments"
	reportstore "github.com/dalemusser/dutyhub/internal/app/store/reports"
	"github.com/dalemusser/dutyhub/internal/app/system/auth"
	"github.com/dalemusser/dutyhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/dutyhub/internal/app/system/inputval"
	"github.com/dalemusser/dutyhub/internal/app/system/timeouts"
	"github.com/dalemusser/dutyhub/internal/app/workflow"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the shared dependency container for the reports feature.
type Handler struct {
	Engine *workflow.Engine
	Log    *zap.Logger
}

// NewHandler constructs a reports Handler.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Engine: workflow.New(db),
		Log:    logger,
	}
}

// createRequest is the JSON shape of a report submission.
type createRequest struct {
	Method                 string `json:"method"`
	Purpose                string `json:"purpose"`
	LicensePlateNumber     string `json:"licensePlateNumber,omitempty"`
	StartKm                *int   `json:"startKm,omitempty"`
	EndKm                  *int   `json:"endKm,omitempty"`
	ExternalOrganization   string `json:"externalOrganization,omitempty"`
	ExternalRepresentative string `json:"externalRepresentative,omitempty"`
	Description            string `json:"description,omitempty"`
}

// updateRequest is a partial report update; absent fields stay as they
// are. submittedAt is not part of the shape on purpose.
type updateRequest struct {
	Method                 *string `json:"method,omitempty"`
	Purpose                *string `json:"purpose,omitempty"`
	LicensePlateNumber     *string `json:"licensePlateNumber,omitempty"`
	StartKm                *int    `json:"startKm,omitempty"`
	EndKm                  *int    `json:"endKm,omitempty"`
	ExternalOrganization   *string `json:"externalOrganization,omitempty"`
	ExternalRepresentative *string `json:"externalRepresentative,omitempty"`
	Description            *string `json:"description,omitempty"`
}

// HandleCreate handles POST /assignments/{id}/report.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
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

	var req createRequest
	if err := shared.Decode(w, r, &req); err != nil {
		shared.Error(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if err := inputval.ReportFields(req.Method, req.Purpose, req.LicensePlateNumber,
		req.ExternalOrganization, req.ExternalRepresentative, req.Description,
		req.StartKm, req.EndKm); err != nil {
		shared.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	created, err := h.Engine.CreateReport(ctx, id, assignmentID, reportstore.Payload{
		Method:                 req.Method,
		Purpose:                htmlsanitize.Strip(req.Purpose),
		LicensePlateNumber:     req.LicensePlateNumber,
		StartKm:                req.StartKm,
		EndKm:                  req.EndKm,
		ExternalOrganization:   htmlsanitize.Strip(req.ExternalOrganization),
		ExternalRepresentative: htmlsanitize.Strip(req.ExternalRepresentative),
		Description:            htmlsanitize.Strip(req.Description),
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	shared.JSON(w, http.StatusCreated, created)
}

// ServeGet handles GET /assignments/{id}/report.
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

	rep, err := h.Engine.GetReport(ctx, id, assignmentID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	shared.JSON(w, http.StatusOK, rep)
}

// HandleUpdate handles PATCH /assignments/{id}/report.
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
	if err := inputval.ReportFieldsPartial(req.Method, req.Purpose, req.LicensePlateNumber,
		req.ExternalOrganization, req.ExternalRepresentative, req.Description,
		req.StartKm, req.EndKm); err != nil {
		shared.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	updated, err := h.Engine.UpdateReport(ctx, id, assignmentID, reportstore.UpdatePayload{
		Method:                 req.Method,
		Purpose:                stripPtr(req.Purpose),
		LicensePlateNumber:     req.LicensePlateNumber,
		StartKm:                req.StartKm,
		EndKm:                  req.EndKm,
		ExternalOrganization:   stripPtr(req.ExternalOrganization),
		ExternalRepresentative: stripPtr(req.ExternalRepresentative),
		Description:            stripPtr(req.Description),
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	shared.JSON(w, http.StatusOK, updated)
}

// HandleDelete handles DELETE /assignments/{id}/report.
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

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	removed, err := h.Engine.DeleteReport(ctx, id, assignmentID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	shared.JSON(w, http.StatusOK, removed)
}

func stripPtr(s *string) *string {
	if s == nil {
		return nil
	}
	clean := htmlsanitize.Strip(*s)
	return &clean
}

// respondError translates the report store's closed error set into HTTP
// statuses; the assignment-level errors surface here too because every
// report operation resolves its assignment first.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, assignmentstore.ErrNotFound):
		shared.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, reportstore.ErrReportNotFound):
		shared.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, reportstore.ErrAssignmentIsNotOver):
		shared.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, reportstore.ErrReporterIsNotAssignee),
		errors.Is(err, reportstore.ErrUpdaterIsNotAuthor):
		shared.Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, reportstore.ErrReportAlreadyExists):
		shared.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, reportstore.ErrCannotBeAltered):
		shared.Error(w, http.StatusLocked, err.Error())
	default:
		h.Log.Error("report operation failed",
			zap.String("path", r.URL.Path),
			zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
	}
}
