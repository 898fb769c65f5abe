// internal/app/features/members/handler.go
package members

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/mail"
	"strings"

	"github.com/dalemusser/dutyhub/internal/app/features/shared"
	associationstore "github.com/dalemusser/dutyhub/internal/app/store/associations"
	invitestore "github.com/dalemusser/dutyhub/internal/app/store/invites"
	memberstore "github.com/dalemusser/dutyhub/internal/app/store/members"
	"github.com/dalemusser/dutyhub/internal/app/system/auth"
	"github.com/dalemusser/dutyhub/internal/app/system/csvutil"
	"github.com/dalemusser/dutyhub/internal/app/system/inputval"
	"github.com/dalemusser/dutyhub/internal/app/system/limits"
	"github.com/dalemusser/dutyhub/internal/app/system/mailer"
	"github.com/dalemusser/dutyhub/internal/app/system/normalize"
	"github.com/dalemusser/dutyhub/internal/app/system/paging"
	"github.com/dalemusser/dutyhub/internal/app/system/timeouts"
	"github.com/dalemusser/dutyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Handler carries the stores for member administration.
type Handler struct {
	Members      *memberstore.Store
	Invites      *invitestore.Store
	Associations *associationstore.Store
	Mail         mailer.Sender
	BaseURL      string
	Log          *zap.Logger
}

// NewHandler constructs a members Handler. The default sender logs invite
// emails instead of delivering them; deployments swap in a real transport.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Members:      memberstore.New(db),
		Invites:      invitestore.New(db),
		Associations: associationstore.New(db),
		Mail:         mailer.NewLogSender(logger),
		BaseURL:      "http://localhost:8080",
		Log:          logger,
	}
}

type inviteRequest struct {
	Email    string   `json:"email"`
	FullName string   `json:"fullName"`
	Roles    []string `json:"roles,omitempty"`
}

// rosterPage is one page of the association roster, with keyset cursors
// for walking forward and back.
type rosterPage struct {
	Members    []models.Member `json:"members"`
	Total      int64           `json:"total"`
	HasPrev    bool            `json:"has_prev"`
	HasNext    bool            `json:"has_next"`
	PrevCursor string          `json:"prev_cursor,omitempty"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// ServeList returns a page of the caller's association roster, sorted by
// folded name. Cursors come back in prev_cursor/next_cursor and go in as
// ?before= / ?after=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.CurrentIdentity(r)
	if !ok {
		shared.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	before := r.URL.Query().Get("before")
	after := r.URL.Query().Get("after")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	base := bson.M{"association_id": id.AssociationID}
	total, err := h.Members.Count(ctx, base)
	if err != nil {
		h.Log.Error("member count failed", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	filter := maps.Clone(base)
	find := options.Find()
	cfg := paging.ConfigureKeyset(before, after)
	cfg.ApplyToFind(find, "full_name_ci")
	if ks := cfg.KeysetWindow("full_name_ci"); ks != nil {
		maps.Copy(filter, ks)
	}

	rows, err := h.Members.Find(ctx, filter, find)
	if err != nil {
		h.Log.Error("member list failed", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if cfg.Direction == paging.Backward {
		paging.Reverse(rows)
	}
	page := paging.TrimPage(&rows, before, after)
	prev, next := paging.BuildCursors(rows,
		func(m models.Member) string { return m.FullNameCI },
		func(m models.Member) primitive.ObjectID { return m.ID })

	resp := rosterPage{
		Members: rows,
		Total:   total,
		HasPrev: page.HasPrev,
		HasNext: page.HasNext,
	}
	if resp.Members == nil {
		resp.Members = []models.Member{}
	}
	if page.HasPrev {
		resp.PrevCursor = prev
	}
	if page.HasNext {
		resp.NextCursor = next
	}
	shared.JSON(w, http.StatusOK, resp)
}

// HandleInvite issues an invite into the caller's association. Route
// middleware restricts this to presidents.
func (h *Handler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.CurrentIdentity(r)
	if !ok {
		shared.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req inviteRequest
	if err := shared.Decode(w, r, &req); err != nil {
		shared.Error(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		shared.Error(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	if strings.TrimSpace(req.FullName) == "" {
		shared.Error(w, http.StatusBadRequest, "fullName is required")
		return
	}
	if len(req.FullName) > inputval.MaxNameLen {
		shared.Error(w, http.StatusBadRequest, "fullName is too long")
		return
	}
	roles := req.Roles
	if len(roles) == 0 {
		roles = []string{models.RoleMember}
	}
	for _, role := range roles {
		if r := normalize.Role(role); r != models.RoleMember && r != models.RolePresident {
			shared.Error(w, http.StatusBadRequest, `roles may contain only "member" and "president"`)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	inv, err := h.Invites.Create(ctx, id.AssociationID, req.Email, req.FullName, roles)
	switch {
	case errors.Is(err, memberstore.ErrDuplicateEmail):
		shared.Error(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		h.Log.Error("invite creation failed", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.sendInviteEmail(ctx, inv, req.FullName)
	shared.JSON(w, http.StatusCreated, inv)
}

// sendInviteEmail delivers the invite email on a best-effort basis. The
// invite already exists and its token is in the API response, so a
// delivery failure is logged rather than surfaced.
func (h *Handler) sendInviteEmail(ctx context.Context, inv models.Invite, fullName string) {
	assocName := "your association"
	if assoc, err := h.Associations.GetByID(ctx, inv.AssociationID); err == nil {
		assocName = assoc.Name
	}

	e := mailer.BuildInviteEmail(mailer.InviteEmailData{
		AssociationName: assocName,
		FullName:        fullName,
		InviteURL:       fmt.Sprintf("%s/auth/invite?token=%s", strings.TrimRight(h.BaseURL, "/"), inv.Token),
		ExpiresIn:       "7 days",
	})
	e.To = inv.Email
	if err := h.Mail.Send(ctx, e); err != nil {
		h.Log.Warn("invite email delivery failed",
			zap.String("email", inv.Email),
			zap.Error(err))
	}
}

// importResult summarizes a CSV invite upload.
type importResult struct {
	Created       int      `json:"created"`
	Skipped       int      `json:"skipped"`
	SkippedEmails []string `json:"skipped_emails,omitempty"`
}

// HandleImportInvites accepts a CSV upload ("csv" form field, columns
// Full Name, Email and an optional Role) and issues an invite per row.
// The file is validated in full before any invite is written; rows that
// collide with existing members are skipped, not failed.
func (h *Handler) HandleImportInvites(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.CurrentIdentity(r)
	if !ok {
		shared.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxCSVUpload)
	file, _, err := r.FormFile("csv")
	if err != nil {
		shared.Error(w, http.StatusBadRequest, "a csv file upload is required")
		return
	}
	defer file.Close()

	rows, problems, err := csvutil.PreScanInviteCSV(file)
	if err != nil {
		h.Log.Error("csv scan failed", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if len(problems) > 0 {
		shared.JSON(w, http.StatusBadRequest, map[string]any{
			"error":    "invalid csv upload",
			"problems": problems,
		})
		return
	}
	if len(rows) == 0 {
		shared.Error(w, http.StatusBadRequest, "the csv contains no rows")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "invite CSV import")
	defer cancel()

	var result importResult
	for _, row := range rows {
		roles := []string{models.RoleMember}
		if row.Role == models.RolePresident {
			roles = append(roles, models.RolePresident)
		}

		inv, err := h.Invites.Create(ctx, id.AssociationID, row.Email, row.FullName, roles)
		switch {
		case errors.Is(err, memberstore.ErrDuplicateEmail):
			result.Skipped++
			result.SkippedEmails = append(result.SkippedEmails, normalize.Email(row.Email))
			continue
		case err != nil:
			h.Log.Warn("invite row failed", zap.String("email", row.Email), zap.Error(err))
			result.Skipped++
			result.SkippedEmails = append(result.SkippedEmails, normalize.Email(row.Email))
			continue
		}
		result.Created++
		h.sendInviteEmail(ctx, inv, row.FullName)
	}

	shared.JSON(w, http.StatusOK, result)
}

// ServeExport streams the association roster as a CSV download.
func (h *Handler) ServeExport(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.CurrentIdentity(r)
	if !ok {
		shared.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Members.ListByAssociation(ctx, id.AssociationID)
	if err != nil {
		h.Log.Error("member export failed", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	rows := make([]csvutil.RosterRow, 0, len(list))
	for _, m := range list {
		rows = append(rows, csvutil.RosterRow{
			FullName:   m.FullName,
			Email:      m.Email,
			Roles:      m.Roles,
			Registered: m.IsRegistered,
		})
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="members.csv"`)
	if err := csvutil.WriteRoster(w, rows); err != nil {
		// Headers are gone by now; nothing to do but record it.
		h.Log.Error("roster write failed", zap.Error(err))
	}
}

// ServeMe returns the caller's own member record.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.CurrentIdentity(r)
	if !ok {
		shared.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, err := h.Members.GetByID(ctx, id.AssociationID, id.MemberID)
	if err == mongo.ErrNoDocuments {
		shared.Error(w, http.StatusNotFound, "member not found")
		return
	}
	if err != nil {
		h.Log.Error("member lookup failed", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	shared.JSON(w, http.StatusOK, m)
}
