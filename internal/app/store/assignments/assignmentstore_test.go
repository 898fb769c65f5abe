package assignmentstore_test

import (
	"context"
	"testing"
	"time"

	assignmentstore "github.com/dalemusser/dutyhub/internal/app/store/assignments"
	"github.com/dalemusser/dutyhub/internal/domain/models"
	"github.com/dalemusser/dutyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Insert(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := assignmentstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	assoc := fx.CreateAssociation(ctx, "Harbor Watch")
	m := fx.CreateMember(ctx, assoc.ID, "Ada Lindgren")

	start := time.Now().UTC().Add(24 * time.Hour)
	a, err := store.Insert(ctx, assoc.ID, assignmentstore.InsertFields{
		Title:       "Night patrol",
		Location:    "Pier 4",
		Start:       start,
		End:         start.Add(4 * time.Hour),
		AssigneeIDs: []primitive.ObjectID{m.ID},
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if a.HasReport() {
		t.Error("new assignment must not carry a report reference")
	}

	var found models.Assignment
	err = db.Collection("assignments").FindOne(ctx, bson.M{"_id": a.ID}).Decode(&found)
	if err != nil {
		t.Fatalf("failed to find inserted assignment: %v", err)
	}
	if found.Title != "Night patrol" {
		t.Errorf("Title: got %q, want %q", found.Title, "Night patrol")
	}
	if found.AssociationID != assoc.ID {
		t.Errorf("AssociationID: got %v, want %v", found.AssociationID, assoc.ID)
	}
	if len(found.AssigneeIDs) != 1 || found.AssigneeIDs[0] != m.ID {
		t.Errorf("AssigneeIDs: got %v, want [%v]", found.AssigneeIDs, m.ID)
	}
}

func TestStore_Insert_PastWindow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := assignmentstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	assoc := fx.CreateAssociation(ctx, "Harbor Watch")
	m := fx.CreateMember(ctx, assoc.ID, "Ada Lindgren")

	now := time.Now().UTC()
	_, err := store.Insert(ctx, assoc.ID, assignmentstore.InsertFields{
		Title:       "Yesterday",
		Location:    "Pier 4",
		Start:       now.Add(-26 * time.Hour),
		End:         now.Add(-24 * time.Hour),
		AssigneeIDs: []primitive.ObjectID{m.ID},
	})
	if err != assignmentstore.ErrInsertionInThePast {
		t.Fatalf("expected ErrInsertionInThePast, got %v", err)
	}

	// The past check wins even when the window is also inverted.
	_, err = store.Insert(ctx, assoc.ID, assignmentstore.InsertFields{
		Title:       "Inverted and past",
		Location:    "Pier 4",
		Start:       now.Add(-24 * time.Hour),
		End:         now.Add(-26 * time.Hour),
		AssigneeIDs: []primitive.ObjectID{m.ID},
	})
	if err != assignmentstore.ErrInsertionInThePast {
		t.Fatalf("expected ErrInsertionInThePast for inverted past window, got %v", err)
	}
}

func TestStore_Insert_InvertedWindow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := assignmentstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	assoc := fx.CreateAssociation(ctx, "Harbor Watch")
	m := fx.CreateMember(ctx, assoc.ID, "Ada Lindgren")

	now := time.Now().UTC()
	_, err := store.Insert(ctx, assoc.ID, assignmentstore.InsertFields{
		Title:       "Backwards",
		Location:    "Pier 4",
		Start:       now.Add(48 * time.Hour),
		End:         now.Add(24 * time.Hour),
		AssigneeIDs: []primitive.ObjectID{m.ID},
	})
	if err != assignmentstore.ErrInvalidTimeBoundaries {
		t.Fatalf("expected ErrInvalidTimeBoundaries, got %v", err)
	}
}

func TestStore_Insert_AssigneeChecks(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := assignmentstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	assoc := fx.CreateAssociation(ctx, "Harbor Watch")
	other := fx.CreateAssociation(ctx, "River Watch")
	registered := fx.CreateMember(ctx, assoc.ID, "Ada Lindgren")
	unregistered := fx.CreateUnregisteredMember(ctx, assoc.ID, "Bo Berg")
	foreign := fx.CreateMember(ctx, other.ID, "Cy Dahl")

	start := time.Now().UTC().Add(24 * time.Hour)
	fields := func(ids ...primitive.ObjectID) assignmentstore.InsertFields {
		return assignmentstore.InsertFields{
			Title:       "Patrol",
			Location:    "Pier 4",
			Start:       start,
			End:         start.Add(2 * time.Hour),
			AssigneeIDs: ids,
		}
	}

	cases := []struct {
		name string
		ids  []primitive.ObjectID
	}{
		{"unknown id", []primitive.ObjectID{primitive.NewObjectID()}},
		{"unregistered member", []primitive.ObjectID{unregistered.ID}},
		{"member of another association", []primitive.ObjectID{foreign.ID}},
		{"one bad id fails the set", []primitive.ObjectID{registered.ID, foreign.ID}},
		{"duplicated id", []primitive.ObjectID{registered.ID, registered.ID}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := store.Insert(ctx, assoc.ID, fields(tc.ids...))
			if err != assignmentstore.ErrAssigneeNotFound {
				t.Fatalf("expected ErrAssigneeNotFound, got %v", err)
			}
		})
	}
}

func TestStore_Update(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := assignmentstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	assoc := fx.CreateAssociation(ctx, "Harbor Watch")
	m := fx.CreateMember(ctx, assoc.ID, "Ada Lindgren")
	m2 := fx.CreateMember(ctx, assoc.ID, "Bo Berg")

	now := time.Now().UTC()
	a := fx.CreateAssignment(ctx, assoc.ID, now.Add(24*time.Hour), now.Add(28*time.Hour), m.ID)

	title := "Dawn patrol"
	updated, err := store.Update(ctx, assoc.ID, a.ID, assignmentstore.UpdateFields{
		Title:       &title,
		AssigneeIDs: []primitive.ObjectID{m.ID, m2.ID},
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Title != title {
		t.Errorf("Title: got %q, want %q", updated.Title, title)
	}
	if len(updated.AssigneeIDs) != 2 {
		t.Errorf("AssigneeIDs: got %d entries, want 2", len(updated.AssigneeIDs))
	}
	// Untouched fields stay (mongo stores times at millisecond precision).
	if !updated.Start.Equal(a.Start.Truncate(time.Millisecond)) {
		t.Errorf("Start changed: got %v, want %v", updated.Start, a.Start)
	}
}

func TestStore_Update_WindowRules(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := assignmentstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	assoc := fx.CreateAssociation(ctx, "Harbor Watch")
	m := fx.CreateMember(ctx, assoc.ID, "Ada Lindgren")

	now := time.Now().UTC()
	a := fx.CreateAssignment(ctx, assoc.ID, now.Add(24*time.Hour), now.Add(28*time.Hour), m.ID)

	past := now.Add(-1 * time.Hour)
	if _, err := store.Update(ctx, assoc.ID, a.ID, assignmentstore.UpdateFields{Start: &past}); err != assignmentstore.ErrInvalidTimeBoundaries {
		t.Fatalf("past start: expected ErrInvalidTimeBoundaries, got %v", err)
	}
	if _, err := store.Update(ctx, assoc.ID, a.ID, assignmentstore.UpdateFields{End: &past}); err != assignmentstore.ErrInvalidTimeBoundaries {
		t.Fatalf("past end: expected ErrInvalidTimeBoundaries, got %v", err)
	}

	// New end before the stored start inverts the effective window.
	badEnd := a.Start.Add(-1 * time.Hour)
	if _, err := store.Update(ctx, assoc.ID, a.ID, assignmentstore.UpdateFields{End: &badEnd}); err != assignmentstore.ErrInvalidTimeBoundaries {
		t.Fatalf("inverted effective window: expected ErrInvalidTimeBoundaries, got %v", err)
	}

	// New start after the stored end does the same.
	badStart := a.End.Add(1 * time.Hour)
	if _, err := store.Update(ctx, assoc.ID, a.ID, assignmentstore.UpdateFields{Start: &badStart}); err != assignmentstore.ErrInvalidTimeBoundaries {
		t.Fatalf("start past end: expected ErrInvalidTimeBoundaries, got %v", err)
	}
}

func TestStore_Update_DuplicateAssignees(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := assignmentstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	assoc := fx.CreateAssociation(ctx, "Harbor Watch")
	m := fx.CreateMember(ctx, assoc.ID, "Ada Lindgren")
	now := time.Now().UTC()
	a := fx.CreateAssignment(ctx, assoc.ID, now.Add(24*time.Hour), now.Add(28*time.Hour), m.ID)

	_, err := store.Update(ctx, assoc.ID, a.ID, assignmentstore.UpdateFields{
		AssigneeIDs: []primitive.ObjectID{m.ID, m.ID},
	})
	if err != assignmentstore.ErrAssigneeNotFound {
		t.Fatalf("expected ErrAssigneeNotFound, got %v", err)
	}

	stored, err := store.GetByID(ctx, assoc.ID, a.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if len(stored.AssigneeIDs) != 1 {
		t.Errorf("AssigneeIDs: got %d entries, want 1", len(stored.AssigneeIDs))
	}
}

func TestStore_Update_Locked(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := assignmentstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	assoc := fx.CreateAssociation(ctx, "Harbor Watch")
	m := fx.CreateMember(ctx, assoc.ID, "Ada Lindgren")
	now := time.Now().UTC()
	title := "Renamed"

	// Window already over.
	over := fx.CreateAssignment(ctx, assoc.ID, now.Add(-4*time.Hour), now.Add(-2*time.Hour), m.ID)
	if _, err := store.Update(ctx, assoc.ID, over.ID, assignmentstore.UpdateFields{Title: &title}); err != assignmentstore.ErrCannotBeAltered {
		t.Fatalf("ended assignment: expected ErrCannotBeAltered, got %v", err)
	}

	// Report attached.
	reported := fx.CreateAssignment(ctx, assoc.ID, now.Add(-4*time.Hour), now.Add(-2*time.Hour), m.ID)
	fx.CreateReport(ctx, reported, m.ID, now)
	if _, err := store.Update(ctx, assoc.ID, reported.ID, assignmentstore.UpdateFields{Title: &title}); err != assignmentstore.ErrCannotBeAltered {
		t.Fatalf("reported assignment: expected ErrCannotBeAltered, got %v", err)
	}

	// Report attached while the window is still open. The write filter
	// itself must refuse the row, not just a stale pre-read of it.
	racing := fx.CreateAssignment(ctx, assoc.ID, now.Add(24*time.Hour), now.Add(28*time.Hour), m.ID)
	fx.CreateReport(ctx, racing, m.ID, now)
	if _, err := store.Update(ctx, assoc.ID, racing.ID, assignmentstore.UpdateFields{Title: &title}); err != assignmentstore.ErrCannotBeAltered {
		t.Fatalf("reported open-window assignment: expected ErrCannotBeAltered, got %v", err)
	}
	stored, err := store.GetByID(ctx, assoc.ID, racing.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Title != "Night patrol" {
		t.Errorf("Title changed on a reported assignment: got %q", stored.Title)
	}
}

func TestStore_Update_ForeignAssociation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := assignmentstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	assoc := fx.CreateAssociation(ctx, "Harbor Watch")
	other := fx.CreateAssociation(ctx, "River Watch")
	m := fx.CreateMember(ctx, assoc.ID, "Ada Lindgren")

	now := time.Now().UTC()
	a := fx.CreateAssignment(ctx, assoc.ID, now.Add(24*time.Hour), now.Add(28*time.Hour), m.ID)

	// Scoping wins over everything else: the caller learns nothing beyond
	// "not found", even though the assignment exists.
	title := "Renamed"
	if _, err := store.Update(ctx, other.ID, a.ID, assignmentstore.UpdateFields{Title: &title}); err != assignmentstore.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetByID(ctx, other.ID, a.ID); err != assignmentstore.ErrNotFound {
		t.Fatalf("GetByID: expected ErrNotFound, got %v", err)
	}
	if _, err := store.Delete(ctx, other.ID, a.ID, nil); err != assignmentstore.ErrNotFound {
		t.Fatalf("Delete: expected ErrNotFound, got %v", err)
	}
}

func TestStore_Delete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := assignmentstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	assoc := fx.CreateAssociation(ctx, "Harbor Watch")
	m := fx.CreateMember(ctx, assoc.ID, "Ada Lindgren")
	now := time.Now().UTC()

	a := fx.CreateAssignment(ctx, assoc.ID, now.Add(24*time.Hour), now.Add(28*time.Hour), m.ID)
	removed, err := store.Delete(ctx, assoc.ID, a.ID, nil)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if removed.ID != a.ID {
		t.Errorf("removed ID: got %v, want %v", removed.ID, a.ID)
	}
	if err := db.Collection("assignments").FindOne(ctx, bson.M{"_id": a.ID}).Err(); err == nil {
		t.Error("assignment still present after delete")
	}
}

func TestStore_Delete_EndedWithoutReport(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := assignmentstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	assoc := fx.CreateAssociation(ctx, "Harbor Watch")
	m := fx.CreateMember(ctx, assoc.ID, "Ada Lindgren")
	now := time.Now().UTC()

	// An ended duty still owes its report; it cannot be removed.
	a := fx.CreateAssignment(ctx, assoc.ID, now.Add(-4*time.Hour), now.Add(-2*time.Hour), m.ID)
	if _, err := store.Delete(ctx, assoc.ID, a.ID, nil); err != assignmentstore.ErrCannotBeAltered {
		t.Fatalf("expected ErrCannotBeAltered, got %v", err)
	}
}

func TestStore_Delete_CascadesReport(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := assignmentstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	assoc := fx.CreateAssociation(ctx, "Harbor Watch")
	m := fx.CreateMember(ctx, assoc.ID, "Ada Lindgren")
	now := time.Now().UTC()

	a := fx.CreateAssignment(ctx, assoc.ID, now.Add(-4*time.Hour), now.Add(-2*time.Hour), m.ID)
	fx.CreateReport(ctx, a, m.ID, now)

	cascaded := false
	_, err := store.Delete(ctx, assoc.ID, a.ID, func(ctx context.Context, got *models.Assignment) error {
		cascaded = true
		if got.ID != a.ID {
			t.Errorf("cascade received assignment %v, want %v", got.ID, a.ID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !cascaded {
		t.Error("expected the report cascade to run")
	}
	if err := db.Collection("assignments").FindOne(ctx, bson.M{"_id": a.ID}).Err(); err == nil {
		t.Error("assignment still present after delete")
	}
}

func TestStore_List(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := assignmentstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	assoc := fx.CreateAssociation(ctx, "Harbor Watch")
	other := fx.CreateAssociation(ctx, "River Watch")
	m := fx.CreateMember(ctx, assoc.ID, "Ada Lindgren")
	mo := fx.CreateMember(ctx, other.ID, "Cy Dahl")

	base := time.Now().UTC().Truncate(time.Hour)
	early := fx.CreateAssignment(ctx, assoc.ID, base.Add(-48*time.Hour), base.Add(-44*time.Hour), m.ID)
	mid := fx.CreateAssignment(ctx, assoc.ID, base.Add(-2*time.Hour), base.Add(2*time.Hour), m.ID)
	late := fx.CreateAssignment(ctx, assoc.ID, base.Add(48*time.Hour), base.Add(52*time.Hour), m.ID)
	fx.CreateAssignment(ctx, other.ID, base.Add(-2*time.Hour), base.Add(2*time.Hour), mo.ID)

	all, err := store.List(ctx, assoc.ID, assignmentstore.ListRange{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("unscoped list: got %d assignments, want 3", len(all))
	}
	if all[0].ID != early.ID || all[1].ID != mid.ID || all[2].ID != late.ID {
		t.Error("list not sorted by start ascending")
	}

	// Overlap: a range touching only the middle window.
	overlapping, err := store.List(ctx, assoc.ID, assignmentstore.ListRange{
		From: base.Add(-1 * time.Hour),
		To:   base.Add(1 * time.Hour),
	})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(overlapping) != 1 || overlapping[0].ID != mid.ID {
		t.Fatalf("overlap list: got %d assignments, want just the overlapping one", len(overlapping))
	}
}
