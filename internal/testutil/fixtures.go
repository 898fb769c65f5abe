package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dalemusser/dutyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateAssociation creates a test association with the given name.
func (f *Fixtures) CreateAssociation(ctx context.Context, name string) models.Association {
	f.t.Helper()

	now := time.Now().UTC()
	a := models.Association{
		ID:          primitive.NewObjectID(),
		Name:        name,
		NameCI:      text.Fold(name),
		Location:    "Test Town",
		Certificate: "CERT-0001",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("associations").InsertOne(ctx, a); err != nil {
		f.t.Fatalf("failed to create test association: %v", err)
	}
	return a
}

// CreateMember creates a registered member of the association with the
// plain member role.
func (f *Fixtures) CreateMember(ctx context.Context, associationID primitive.ObjectID, fullName string) models.Member {
	f.t.Helper()
	return f.createMember(ctx, associationID, fullName, []string{models.RoleMember}, true)
}

// CreatePresident creates a registered member holding the president role.
func (f *Fixtures) CreatePresident(ctx context.Context, associationID primitive.ObjectID, fullName string) models.Member {
	f.t.Helper()
	return f.createMember(ctx, associationID, fullName, []string{models.RoleMember, models.RolePresident}, true)
}

// CreateUnregisteredMember creates a member whose invite has not been
// redeemed yet. Unregistered members cannot be assignees.
func (f *Fixtures) CreateUnregisteredMember(ctx context.Context, associationID primitive.ObjectID, fullName string) models.Member {
	f.t.Helper()
	return f.createMember(ctx, associationID, fullName, []string{models.RoleMember}, false)
}

func (f *Fixtures) createMember(ctx context.Context, associationID primitive.ObjectID, fullName string, roles []string, registered bool) models.Member {
	f.t.Helper()

	now := time.Now().UTC()
	m := models.Member{
		ID:            primitive.NewObjectID(),
		AssociationID: associationID,
		FullName:      fullName,
		FullNameCI:    text.Fold(fullName),
		Email:         fmt.Sprintf("%s@test.example", uuid.NewString()),
		Roles:         roles,
		IsRegistered:  registered,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if registered {
		// Not a real bcrypt hash; login tests build their own members.
		m.PasswordHash = "x"
	}
	if _, err := f.db.Collection("members").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test member: %v", err)
	}
	return m
}

// CreateAssignment inserts an assignment with the given window and
// assignees, bypassing the store's temporal checks so tests can build
// past, running, and finished duties alike.
func (f *Fixtures) CreateAssignment(ctx context.Context, associationID primitive.ObjectID, start, end time.Time, assigneeIDs ...primitive.ObjectID) models.Assignment {
	f.t.Helper()

	now := time.Now().UTC()
	a := models.Assignment{
		ID:            primitive.NewObjectID(),
		AssociationID: associationID,
		Title:         "Night patrol",
		Location:      "Harbor district",
		Start:         start,
		End:           end,
		AssigneeIDs:   assigneeIDs,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := f.db.Collection("assignments").InsertOne(ctx, a); err != nil {
		f.t.Fatalf("failed to create test assignment: %v", err)
	}
	return a
}

// CreateReport inserts a report for the assignment and links it, with
// SubmittedAt under the caller's control so edit-window tests can age a
// report precisely.
func (f *Fixtures) CreateReport(ctx context.Context, a models.Assignment, authorID primitive.ObjectID, submittedAt time.Time) models.Report {
	f.t.Helper()

	r := models.Report{
		ID:           primitive.NewObjectID(),
		AssignmentID: a.ID,
		AuthorID:     authorID,
		Method:       models.MethodPedestrian,
		Purpose:      "Routine patrol",
		SubmittedAt:  submittedAt,
		UpdatedAt:    submittedAt,
	}
	if _, err := f.db.Collection("reports").InsertOne(ctx, r); err != nil {
		f.t.Fatalf("failed to create test report: %v", err)
	}

	res, err := f.db.Collection("assignments").UpdateOne(ctx,
		bson.M{"_id": a.ID},
		bson.M{"$set": bson.M{"report_id": r.ID}})
	if err != nil || res.ModifiedCount == 0 {
		f.t.Fatalf("failed to link test report: %v", err)
	}
	return r
}

// CreateInvite inserts an open invite for the email, expiring after ttl.
func (f *Fixtures) CreateInvite(ctx context.Context, associationID primitive.ObjectID, email string, ttl time.Duration) models.Invite {
	f.t.Helper()

	now := time.Now().UTC()
	inv := models.Invite{
		ID:            primitive.NewObjectID(),
		AssociationID: associationID,
		Email:         email,
		Token:         uuid.NewString(),
		Roles:         []string{models.RoleMember},
		ExpiresAt:     now.Add(ttl),
		CreatedAt:     now,
	}
	if _, err := f.db.Collection("invites").InsertOne(ctx, inv); err != nil {
		f.t.Fatalf("failed to create test invite: %v", err)
	}
	return inv
}
