package members_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/dutyhub/internal/app/features/members"
	"github.com/dalemusser/dutyhub/internal/domain/models"
	"github.com/dalemusser/dutyhub/internal/testutil"
	"go.uber.org/zap"
)

// rosterPage mirrors the list response shape.
type rosterPage struct {
	Members    []models.Member `json:"members"`
	Total      int64           `json:"total"`
	HasPrev    bool            `json:"has_prev"`
	HasNext    bool            `json:"has_next"`
	PrevCursor string          `json:"prev_cursor"`
	NextCursor string          `json:"next_cursor"`
}

func getRoster(t *testing.T, h *members.Handler, as models.Member, query string) rosterPage {
	t.Helper()
	req := httptest.NewRequest("GET", "/members"+query, nil)
	req = testutil.WithMemberIdentity(req, as)
	rec := httptest.NewRecorder()
	h.ServeList(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d (body: %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	var page rosterPage
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("response is not a roster page: %v", err)
	}
	return page
}

func TestServeList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := members.NewHandler(db, zap.NewNop())
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	assoc := fx.CreateAssociation(ctx, "Harbor Watch")
	other := fx.CreateAssociation(ctx, "River Watch")
	caller := fx.CreateMember(ctx, assoc.ID, "Ada Lindgren")
	fx.CreateMember(ctx, assoc.ID, "Bo Berg")
	fx.CreateMember(ctx, other.ID, "Cy Dahl")

	page := getRoster(t, h, caller, "")
	if len(page.Members) != 2 {
		t.Fatalf("got %d members, want 2 (own association only)", len(page.Members))
	}
	if page.Total != 2 {
		t.Errorf("Total: got %d, want 2", page.Total)
	}
	if page.HasPrev || page.HasNext {
		t.Errorf("single page should have no prev/next, got prev=%v next=%v", page.HasPrev, page.HasNext)
	}
	if page.Members[0].FullName != "Ada Lindgren" {
		t.Errorf("first member = %q, want sorted by name", page.Members[0].FullName)
	}
}

func TestServeList_Cursors(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := members.NewHandler(db, zap.NewNop())
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	assoc := fx.CreateAssociation(ctx, "Harbor Watch")
	caller := fx.CreateMember(ctx, assoc.ID, "Member 000")
	// 55 members total, so the roster spans two pages of 50.
	for i := 1; i < 55; i++ {
		fx.CreateMember(ctx, assoc.ID, fmt.Sprintf("Member %03d", i))
	}

	first := getRoster(t, h, caller, "")
	if len(first.Members) != 50 {
		t.Fatalf("first page: got %d members, want 50", len(first.Members))
	}
	if first.HasPrev || !first.HasNext {
		t.Fatalf("first page: got prev=%v next=%v, want prev=false next=true", first.HasPrev, first.HasNext)
	}

	second := getRoster(t, h, caller, "?after="+first.NextCursor)
	if len(second.Members) != 5 {
		t.Fatalf("second page: got %d members, want 5", len(second.Members))
	}
	if !second.HasPrev || second.HasNext {
		t.Fatalf("second page: got prev=%v next=%v, want prev=true next=false", second.HasPrev, second.HasNext)
	}
	if second.Members[0].FullName != "Member 050" {
		t.Errorf("second page starts at %q, want %q", second.Members[0].FullName, "Member 050")
	}

	back := getRoster(t, h, caller, "?before="+second.PrevCursor)
	if len(back.Members) != 50 {
		t.Fatalf("back page: got %d members, want 50", len(back.Members))
	}
	if back.Members[0].FullName != "Member 000" {
		t.Errorf("back page starts at %q, want %q", back.Members[0].FullName, "Member 000")
	}
}

func TestHandleInvite(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := members.NewHandler(db, zap.NewNop())
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	assoc := fx.CreateAssociation(ctx, "Harbor Watch")
	president := fx.CreatePresident(ctx, assoc.ID, "Pia Nord")

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/members/invites", strings.NewReader(body))
		req = testutil.WithMemberIdentity(req, president)
		rec := httptest.NewRecorder()
		h.HandleInvite(rec, req)
		return rec
	}

	rec := post(`{"email": "new@example.com", "fullName": "New Member"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d (body: %s)", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var inv models.Invite
	if err := json.Unmarshal(rec.Body.Bytes(), &inv); err != nil {
		t.Fatalf("response is not an invite: %v", err)
	}
	if inv.Token == "" {
		t.Error("expected a token")
	}
	if inv.AssociationID != assoc.ID {
		t.Errorf("AssociationID: got %v, want %v", inv.AssociationID, assoc.ID)
	}

	// Repeat invite for the same email collides with the member created
	// the first time.
	if rec := post(`{"email": "new@example.com", "fullName": "New Member"}`); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate: got %d, want %d", rec.Code, http.StatusConflict)
	}

	cases := []struct {
		name string
		body string
	}{
		{"bad email", `{"email": "not-an-email", "fullName": "X"}`},
		{"missing name", `{"email": "a@example.com", "fullName": "  "}`},
		{"unknown role", `{"email": "b@example.com", "fullName": "B", "roles": ["admin"]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if rec := post(tc.body); rec.Code != http.StatusBadRequest {
				t.Fatalf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func postCSV(t *testing.T, h *members.Handler, as models.Member, csv string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("csv", "invites.csv")
	if err != nil {
		t.Fatalf("multipart: %v", err)
	}
	if _, err := fw.Write([]byte(csv)); err != nil {
		t.Fatalf("multipart write: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest("POST", "/members/invites/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = testutil.WithMemberIdentity(req, as)
	rec := httptest.NewRecorder()
	h.HandleImportInvites(rec, req)
	return rec
}

func TestHandleImportInvites(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := members.NewHandler(db, zap.NewNop())
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	assoc := fx.CreateAssociation(ctx, "Harbor Watch")
	president := fx.CreatePresident(ctx, assoc.ID, "Pia Nord")

	rec := postCSV(t, h, president, "Full Name,Email,Role\nAda Lindgren,ada@example.com,member\nBo Berg,bo@example.com,president\n")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d (body: %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	var result struct {
		Created int `json:"created"`
		Skipped int `json:"skipped"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("response is not an import result: %v", err)
	}
	if result.Created != 2 || result.Skipped != 0 {
		t.Fatalf("got created=%d skipped=%d, want 2/0", result.Created, result.Skipped)
	}

	n, err := db.Collection("invites").CountDocuments(ctx, map[string]any{"association_id": assoc.ID})
	if err != nil {
		t.Fatalf("count invites: %v", err)
	}
	if n != 2 {
		t.Errorf("got %d invites, want 2", n)
	}

	// Re-uploading the same file skips both rows instead of failing.
	rec = postCSV(t, h, president, "Ada Lindgren,ada@example.com\nBo Berg,bo@example.com\n")
	if rec.Code != http.StatusOK {
		t.Fatalf("re-upload status: got %d, want %d", rec.Code, http.StatusOK)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("response is not an import result: %v", err)
	}
	if result.Created != 0 || result.Skipped != 2 {
		t.Fatalf("re-upload: got created=%d skipped=%d, want 0/2", result.Created, result.Skipped)
	}
}

func TestHandleImportInvites_Rejections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := members.NewHandler(db, zap.NewNop())
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	assoc := fx.CreateAssociation(ctx, "Harbor Watch")
	president := fx.CreatePresident(ctx, assoc.ID, "Pia Nord")

	// A single bad row rejects the whole upload before any write.
	rec := postCSV(t, h, president, "Ada Lindgren,ada@example.com\n,missing-name@example.com\n")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
	n, err := db.Collection("invites").CountDocuments(ctx, map[string]any{"association_id": assoc.ID})
	if err != nil {
		t.Fatalf("count invites: %v", err)
	}
	if n != 0 {
		t.Errorf("rejected upload wrote %d invites, want 0", n)
	}

	// Empty file.
	if rec := postCSV(t, h, president, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty file: got %d, want %d", rec.Code, http.StatusBadRequest)
	}

	// No file field at all.
	req := httptest.NewRequest("POST", "/members/invites/import", strings.NewReader("not a form"))
	req = testutil.WithMemberIdentity(req, president)
	rec = httptest.NewRecorder()
	h.HandleImportInvites(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing file: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestServeExport(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := members.NewHandler(db, zap.NewNop())
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	assoc := fx.CreateAssociation(ctx, "Harbor Watch")
	caller := fx.CreateMember(ctx, assoc.ID, "Ada Lindgren")
	fx.CreateUnregisteredMember(ctx, assoc.ID, "Bo Berg")

	req := httptest.NewRequest("GET", "/members/export.csv", nil)
	req = testutil.WithMemberIdentity(req, caller)
	rec := httptest.NewRecorder()
	h.ServeExport(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
	lines := strings.Split(strings.TrimRight(rec.Body.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3 (header plus 2 rows):\n%s", len(lines), rec.Body.String())
	}
	if !strings.HasPrefix(lines[1], "Ada Lindgren,") || !strings.HasSuffix(lines[1], ",yes") {
		t.Errorf("row 1 = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "Bo Berg,") || !strings.HasSuffix(lines[2], ",no") {
		t.Errorf("row 2 = %q", lines[2])
	}
}

func TestServeMe(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := members.NewHandler(db, zap.NewNop())
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	assoc := fx.CreateAssociation(ctx, "Harbor Watch")
	caller := fx.CreateMember(ctx, assoc.ID, "Ada Lindgren")

	req := httptest.NewRequest("GET", "/members/me", nil)
	req = testutil.WithMemberIdentity(req, caller)
	rec := httptest.NewRecorder()
	h.ServeMe(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
	var m models.Member
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("response is not a member: %v", err)
	}
	if m.ID != caller.ID {
		t.Errorf("ID: got %v, want %v", m.ID, caller.ID)
	}
}
