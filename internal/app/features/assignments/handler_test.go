package assignments_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/dutyhub/internal/app/features/assignments"
	"github.com/dalemusser/dutyhub/internal/domain/models"
	"github.com/dalemusser/dutyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func createBody(start, end time.Time, assigneeIDs ...primitive.ObjectID) string {
	ids := make([]string, len(assigneeIDs))
	for i, id := range assigneeIDs {
		ids[i] = fmt.Sprintf("%q", id.Hex())
	}
	return fmt.Sprintf(`{
		"title": "Night patrol",
		"location": "Pier 4",
		"start": %q,
		"end": %q,
		"assigneeIds": [%s]
	}`, start.Format(time.RFC3339), end.Format(time.RFC3339), strings.Join(ids, ","))
}

func TestHandleCreate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := assignments.NewHandler(db, zap.NewNop())
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	assoc := fx.CreateAssociation(ctx, "Harbor Watch")
	president := fx.CreatePresident(ctx, assoc.ID, "Pia Nord")
	member := fx.CreateMember(ctx, assoc.ID, "Ada Lindgren")

	start := time.Now().UTC().Add(24 * time.Hour)
	body := createBody(start, start.Add(4*time.Hour), member.ID)

	req := httptest.NewRequest("POST", "/assignments", strings.NewReader(body))
	req = testutil.WithMemberIdentity(req, president)
	rec := httptest.NewRecorder()
	h.HandleCreate(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d (body: %s)", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var created models.Assignment
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("response is not an assignment: %v", err)
	}
	if created.Title != "Night patrol" {
		t.Errorf("Title: got %q, want %q", created.Title, "Night patrol")
	}
	if created.AssociationID != assoc.ID {
		t.Errorf("AssociationID: got %v, want %v", created.AssociationID, assoc.ID)
	}
}

func TestHandleCreate_Forbidden(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := assignments.NewHandler(db, zap.NewNop())
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	assoc := fx.CreateAssociation(ctx, "Harbor Watch")
	member := fx.CreateMember(ctx, assoc.ID, "Ada Lindgren")

	start := time.Now().UTC().Add(24 * time.Hour)
	req := httptest.NewRequest("POST", "/assignments", strings.NewReader(createBody(start, start.Add(time.Hour), member.ID)))
	req = testutil.WithMemberIdentity(req, member)
	rec := httptest.NewRecorder()
	h.HandleCreate(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestHandleCreate_BadInput(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := assignments.NewHandler(db, zap.NewNop())
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	assoc := fx.CreateAssociation(ctx, "Harbor Watch")
	president := fx.CreatePresident(ctx, assoc.ID, "Pia Nord")
	member := fx.CreateMember(ctx, assoc.ID, "Ada Lindgren")
	now := time.Now().UTC()

	cases := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{`, http.StatusBadRequest},
		{"unknown field", `{"bogus": true}`, http.StatusBadRequest},
		{"missing title", fmt.Sprintf(`{"location":"Pier 4","start":%q,"end":%q,"assigneeIds":[%q]}`,
			now.Add(time.Hour).Format(time.RFC3339), now.Add(2*time.Hour).Format(time.RFC3339), member.ID.Hex()), http.StatusBadRequest},
		{"no assignees", createBody(now.Add(time.Hour), now.Add(2*time.Hour)), http.StatusBadRequest},
		{"window in the past", createBody(now.Add(-3*time.Hour), now.Add(-2*time.Hour), member.ID), http.StatusBadRequest},
		{"unknown assignee", createBody(now.Add(time.Hour), now.Add(2*time.Hour), primitive.NewObjectID()), http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/assignments", strings.NewReader(tc.body))
			req = testutil.WithMemberIdentity(req, president)
			rec := httptest.NewRecorder()
			h.HandleCreate(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status: got %d, want %d (body: %s)", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestHandleUpdate_Locked(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := assignments.NewHandler(db, zap.NewNop())
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	assoc := fx.CreateAssociation(ctx, "Harbor Watch")
	president := fx.CreatePresident(ctx, assoc.ID, "Pia Nord")
	member := fx.CreateMember(ctx, assoc.ID, "Ada Lindgren")
	now := time.Now().UTC()
	over := fx.CreateAssignment(ctx, assoc.ID, now.Add(-4*time.Hour), now.Add(-2*time.Hour), member.ID)

	req := httptest.NewRequest("PATCH", "/assignments/"+over.ID.Hex(), strings.NewReader(`{"title":"Renamed"}`))
	req = testutil.WithMemberIdentity(req, president)
	req = testutil.WithChiURLParam(req, "id", over.ID.Hex())
	rec := httptest.NewRecorder()
	h.HandleUpdate(rec, req)

	if rec.Code != http.StatusLocked {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusLocked)
	}
}

func TestServeGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := assignments.NewHandler(db, zap.NewNop())
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	assoc := fx.CreateAssociation(ctx, "Harbor Watch")
	other := fx.CreateAssociation(ctx, "River Watch")
	member := fx.CreateMember(ctx, assoc.ID, "Ada Lindgren")
	outsider := fx.CreateMember(ctx, other.ID, "Cy Dahl")
	now := time.Now().UTC()
	a := fx.CreateAssignment(ctx, assoc.ID, now.Add(24*time.Hour), now.Add(28*time.Hour), member.ID)

	get := func(as models.Member, id string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/assignments/"+id, nil)
		req = testutil.WithMemberIdentity(req, as)
		req = testutil.WithChiURLParam(req, "id", id)
		rec := httptest.NewRecorder()
		h.ServeGet(rec, req)
		return rec
	}

	if rec := get(member, a.ID.Hex()); rec.Code != http.StatusOK {
		t.Fatalf("own association: got %d, want %d", rec.Code, http.StatusOK)
	}
	// Another association's member sees nothing, and malformed ids do not
	// leak anything different.
	if rec := get(outsider, a.ID.Hex()); rec.Code != http.StatusNotFound {
		t.Fatalf("foreign association: got %d, want %d", rec.Code, http.StatusNotFound)
	}
	if rec := get(member, "not-an-id"); rec.Code != http.StatusNotFound {
		t.Fatalf("malformed id: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestServeList_RangeFilter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := assignments.NewHandler(db, zap.NewNop())
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	assoc := fx.CreateAssociation(ctx, "Harbor Watch")
	member := fx.CreateMember(ctx, assoc.ID, "Ada Lindgren")
	base := time.Now().UTC().Truncate(time.Hour)
	fx.CreateAssignment(ctx, assoc.ID, base.Add(-48*time.Hour), base.Add(-44*time.Hour), member.ID)
	mid := fx.CreateAssignment(ctx, assoc.ID, base.Add(-2*time.Hour), base.Add(2*time.Hour), member.ID)

	url := fmt.Sprintf("/assignments?from=%s&to=%s",
		base.Add(-1*time.Hour).Format(time.RFC3339),
		base.Add(1*time.Hour).Format(time.RFC3339))
	req := httptest.NewRequest("GET", url, nil)
	req = testutil.WithMemberIdentity(req, member)
	rec := httptest.NewRecorder()
	h.ServeList(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d (body: %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	var list []models.Assignment
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("response is not a list: %v", err)
	}
	if len(list) != 1 || list[0].ID != mid.ID {
		t.Fatalf("got %d assignments, want just the overlapping one", len(list))
	}

	badReq := httptest.NewRequest("GET", "/assignments?from=yesterday", nil)
	badReq = testutil.WithMemberIdentity(badReq, member)
	badRec := httptest.NewRecorder()
	h.ServeList(badRec, badReq)
	if badRec.Code != http.StatusBadRequest {
		t.Fatalf("bad from: got %d, want %d", badRec.Code, http.StatusBadRequest)
	}
}
