// internal/app/store/assignments/assignmentstore.go
package assignmentstore

// Terminology: an "assignment" is a scheduled duty with a [start, end]
// window and a set of assignee members. All operations here are scoped to
// one association; an assignment from another association is reported as
// ErrNotFound, never as a different error kind.

import (
	"context"
	"errors"
	"time"

	memberstore "github.com/dalemusser/dutyhub/internal/app/store/members"
	"github.com/dalemusser/dutyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when the assignment does not exist within
	// the caller's association.
	ErrNotFound = errors.New("assignment not found")

	// ErrInsertionInThePast is returned when a new assignment's end is
	// already behind "now".
	ErrInsertionInThePast = errors.New("assignment window ends in the past")

	// ErrInvalidTimeBoundaries is returned when the effective window of an
	// update would be inverted or a supplied bound lies in the past.
	ErrInvalidTimeBoundaries = errors.New("invalid start/end boundaries")

	// ErrAssigneeNotFound is returned when an assignee id does not resolve
	// to a registered member of the association.
	ErrAssigneeNotFound = errors.New("assignee is not a registered member of the association")

	// ErrCannotBeAltered is returned when the assignment is locked: its
	// window has already ended, or a report has been submitted.
	ErrCannotBeAltered = errors.New("assignment can no longer be altered")
)

type Store struct {
	c       *mongo.Collection
	members *memberstore.Store
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:       db.Collection("assignments"),
		members: memberstore.New(db),
	}
}

// Collection exposes the underlying collection for sibling stores that
// need conditional writes against assignments (the report store's atomic
// link/unlink).
func (s *Store) Collection() *mongo.Collection {
	return s.c
}

// InsertFields holds the fields of a new assignment.
type InsertFields struct {
	Title       string
	Location    string
	Start       time.Time
	End         time.Time
	AssigneeIDs []primitive.ObjectID
}

// Insert creates a new assignment for the association.
//
// The window must satisfy end >= start and must not already be over; every
// assignee id must resolve to a registered member of the association. The
// created assignment carries no report reference.
func (s *Store) Insert(ctx context.Context, associationID primitive.ObjectID, f InsertFields) (models.Assignment, error) {
	now := time.Now().UTC()

	// The past-window check wins regardless of how start relates to end.
	if f.End.Before(now) {
		return models.Assignment{}, ErrInsertionInThePast
	}
	if f.End.Before(f.Start) {
		return models.Assignment{}, ErrInvalidTimeBoundaries
	}
	if err := s.resolveAssignees(ctx, associationID, f.AssigneeIDs); err != nil {
		return models.Assignment{}, err
	}

	a := models.Assignment{
		ID:            primitive.NewObjectID(),
		AssociationID: associationID,
		Title:         f.Title,
		Location:      f.Location,
		Start:         f.Start.UTC(),
		End:           f.End.UTC(),
		AssigneeIDs:   f.AssigneeIDs,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		return models.Assignment{}, err
	}
	return a, nil
}

// UpdateFields holds a partial update; nil means "leave unchanged".
type UpdateFields struct {
	Title       *string
	Location    *string
	Start       *time.Time
	End         *time.Time
	AssigneeIDs []primitive.ObjectID // nil leaves assignees unchanged
}

// Update applies a partial update to an assignment.
//
// The effective window combines supplied bounds with stored ones and must
// remain end > start; a supplied bound may not lie in the past. A locked
// assignment (window over, or report submitted) rejects the update.
func (s *Store) Update(ctx context.Context, associationID, id primitive.ObjectID, f UpdateFields) (models.Assignment, error) {
	a, err := s.GetByID(ctx, associationID, id)
	if err != nil {
		return models.Assignment{}, err
	}

	now := time.Now().UTC()

	// Effective bounds: supplied value wins, stored value fills the gap.
	start, end := a.Start, a.End
	if f.Start != nil {
		start = f.Start.UTC()
		if start.Before(now) {
			return models.Assignment{}, ErrInvalidTimeBoundaries
		}
	}
	if f.End != nil {
		end = f.End.UTC()
		if end.Before(now) {
			return models.Assignment{}, ErrInvalidTimeBoundaries
		}
	}
	if !end.After(start) {
		return models.Assignment{}, ErrInvalidTimeBoundaries
	}

	set := bson.M{
		"start":      start,
		"end":        end,
		"updated_at": now,
	}
	if f.Title != nil {
		set["title"] = *f.Title
	}
	if f.Location != nil {
		set["location"] = *f.Location
	}
	if f.AssigneeIDs != nil {
		if err := s.resolveAssignees(ctx, associationID, f.AssigneeIDs); err != nil {
			return models.Assignment{}, err
		}
		set["assignee_ids"] = f.AssigneeIDs
	}

	// The lock lives on the row itself: the write matches only while no
	// report exists and the stored window is still open, so the check and
	// the effect share one snapshot. A report landing between the read
	// above and this write cannot be overwritten past.
	var updated models.Assignment
	err = s.c.FindOneAndUpdate(ctx,
		bson.M{
			"_id":            id,
			"association_id": associationID,
			"report_id":      nil,
			"end":            bson.M{"$gt": now},
		},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		if _, gerr := s.GetByID(ctx, associationID, id); gerr != nil {
			return models.Assignment{}, gerr
		}
		return models.Assignment{}, ErrCannotBeAltered
	}
	if err != nil {
		return models.Assignment{}, err
	}
	return updated, nil
}

// Delete removes an assignment after deleting its report, if any. The
// report goes first so a failure mid-way leaves an orphaned report rather
// than an assignment pointing at a missing one.
//
// deleteReport is supplied by the report store; it receives the loaded
// assignment and must remove the referenced report row.
func (s *Store) Delete(ctx context.Context, associationID, id primitive.ObjectID, deleteReport func(context.Context, *models.Assignment) error) (models.Assignment, error) {
	a, err := s.GetByID(ctx, associationID, id)
	if err != nil {
		return models.Assignment{}, err
	}

	// An ended assignment that is still waiting on its report stays put;
	// once the report exists, deletion is the cascade path instead.
	if a.IsOver(time.Now().UTC()) && !a.HasReport() {
		return models.Assignment{}, ErrCannotBeAltered
	}

	if a.HasReport() && deleteReport != nil {
		if err := deleteReport(ctx, a); err != nil {
			return models.Assignment{}, err
		}
	}

	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "association_id": associationID})
	if err != nil {
		return models.Assignment{}, err
	}
	if res.DeletedCount == 0 {
		return models.Assignment{}, ErrNotFound
	}
	return *a, nil
}

// GetByID loads an assignment scoped to the association.
func (s *Store) GetByID(ctx context.Context, associationID, id primitive.ObjectID) (*models.Assignment, error) {
	var a models.Assignment
	err := s.c.FindOne(ctx, bson.M{"_id": id, "association_id": associationID}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListRange holds the overlap window for List. Zero values leave the
// corresponding side unbounded.
type ListRange struct {
	From time.Time
	To   time.Time
}

// List returns the association's assignments whose [start, end] window
// overlaps the given range, sorted by start ascending.
func (s *Store) List(ctx context.Context, associationID primitive.ObjectID, r ListRange) ([]models.Assignment, error) {
	filter := bson.M{"association_id": associationID}
	if !r.From.IsZero() {
		filter["end"] = bson.M{"$gte": r.From.UTC()}
	}
	if !r.To.IsZero() {
		filter["start"] = bson.M{"$lte": r.To.UTC()}
	}

	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "start", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Assignment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// resolveAssignees verifies every id belongs to a registered member of the
// association. A single miss fails the whole set; duplicates collapse in
// the $in lookup and are caught by the count check.
func (s *Store) resolveAssignees(ctx context.Context, associationID primitive.ObjectID, ids []primitive.ObjectID) error {
	resolved, err := s.members.ResolveAssignees(ctx, associationID, ids)
	if err != nil {
		return err
	}
	if len(resolved) != len(ids) {
		return ErrAssigneeNotFound
	}
	for _, id := range ids {
		if _, ok := resolved[id]; !ok {
			return ErrAssigneeNotFound
		}
	}
	return nil
}
