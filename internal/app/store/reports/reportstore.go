// internal/app/store/reports/reportstore.go
package reportstore

// A report is keyed to its assignment: every operation resolves the owning
// assignment first, scoped to the caller's association, so a foreign or
// missing assignment surfaces as assignment-not-found before any
// report-specific rule is evaluated.

import (
	"context"
	"errors"
	"time"

	assignmentstore "github.com/dalemusser/dutyhub/internal/app/store/assignments"
	"github.com/dalemusser/dutyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EditWindow is how long after submission a report stays mutable for its
// author. At or past this age the report is permanently read-only.
const EditWindow = 72 * time.Hour

var (
	// ErrAssignmentIsNotOver is returned when the duty window has not
	// ended yet; a report can only describe a finished duty.
	ErrAssignmentIsNotOver = errors.New("assignment is not over yet")

	// ErrReporterIsNotAssignee is returned when the caller is not named
	// on the assignment.
	ErrReporterIsNotAssignee = errors.New("reporter is not an assignee of the assignment")

	// ErrReportAlreadyExists is returned when the assignment already
	// carries a report.
	ErrReportAlreadyExists = errors.New("a report already exists for this assignment")

	// ErrReportNotFound is returned when the assignment has no report, or
	// its reference points at a missing row.
	ErrReportNotFound = errors.New("report not found")

	// ErrUpdaterIsNotAuthor is returned when someone other than the
	// report's author attempts to change it. Being an assignee is not
	// enough.
	ErrUpdaterIsNotAuthor = errors.New("only the report's author may alter it")

	// ErrCannotBeAltered is returned once the edit window after
	// submission has elapsed.
	ErrCannotBeAltered = errors.New("report can no longer be altered")
)

type Store struct {
	c           *mongo.Collection
	assignments *assignmentstore.Store
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:           db.Collection("reports"),
		assignments: assignmentstore.New(db),
	}
}

// Payload holds the report fields a submitter provides. Field-level shape
// (method enum, km ordering, representative-requires-organization) is
// checked by request validation before the store is reached.
type Payload struct {
	Method                 string
	Purpose                string
	LicensePlateNumber     string
	StartKm                *int
	EndKm                  *int
	ExternalOrganization   string
	ExternalRepresentative string
	Description            string
}

// Create submits the single report for an assignment.
//
// Rule order: the assignment must exist in the caller's association, its
// window must be over, the caller must be an assignee, and no report may
// exist yet. The link onto the assignment is a conditional write (set
// report_id only while it is still empty), so two concurrent submissions
// cannot both succeed; the loser's freshly inserted row is removed again.
func (s *Store) Create(ctx context.Context, associationID, authorID, assignmentID primitive.ObjectID, p Payload) (models.Report, error) {
	a, err := s.assignments.GetByID(ctx, associationID, assignmentID)
	if err != nil {
		return models.Report{}, err
	}

	now := time.Now().UTC()
	if !a.IsOver(now) {
		return models.Report{}, ErrAssignmentIsNotOver
	}
	if !a.HasAssignee(authorID) {
		return models.Report{}, ErrReporterIsNotAssignee
	}
	if a.HasReport() {
		return models.Report{}, ErrReportAlreadyExists
	}

	r := models.Report{
		ID:                     primitive.NewObjectID(),
		AssignmentID:           assignmentID,
		AuthorID:               authorID,
		Method:                 p.Method,
		Purpose:                p.Purpose,
		LicensePlateNumber:     p.LicensePlateNumber,
		StartKm:                p.StartKm,
		EndKm:                  p.EndKm,
		ExternalOrganization:   p.ExternalOrganization,
		ExternalRepresentative: p.ExternalRepresentative,
		Description:            p.Description,
		SubmittedAt:            now,
		UpdatedAt:              now,
	}
	if _, err := s.c.InsertOne(ctx, r); err != nil {
		return models.Report{}, err
	}

	// Claim the assignment's report slot. The row goes in first so a
	// failure between the two writes leaves an orphaned report, never an
	// assignment pointing at a missing one.
	res, err := s.assignments.Collection().UpdateOne(ctx,
		bson.M{
			"_id":            assignmentID,
			"association_id": associationID,
			"report_id":      nil,
		},
		bson.M{"$set": bson.M{"report_id": r.ID, "updated_at": now}})
	if err != nil {
		_, _ = s.c.DeleteOne(ctx, bson.M{"_id": r.ID})
		return models.Report{}, err
	}
	if res.ModifiedCount == 0 {
		// Lost the race (or the assignment vanished underneath us).
		_, _ = s.c.DeleteOne(ctx, bson.M{"_id": r.ID})
		return models.Report{}, ErrReportAlreadyExists
	}

	return r, nil
}

// Get returns the report attached to an assignment. A dangling reference
// (assignment points at a missing row) reads as not found.
func (s *Store) Get(ctx context.Context, associationID, assignmentID primitive.ObjectID) (models.Report, error) {
	a, err := s.assignments.GetByID(ctx, associationID, assignmentID)
	if err != nil {
		return models.Report{}, err
	}
	if !a.HasReport() {
		return models.Report{}, ErrReportNotFound
	}

	var r models.Report
	err = s.c.FindOne(ctx, bson.M{"_id": *a.ReportID}).Decode(&r)
	if err == mongo.ErrNoDocuments {
		return models.Report{}, ErrReportNotFound
	}
	if err != nil {
		return models.Report{}, err
	}
	return r, nil
}

// UpdatePayload holds a partial report update; nil/empty means "leave
// unchanged" except where noted.
type UpdatePayload struct {
	Method                 *string
	Purpose                *string
	LicensePlateNumber     *string
	StartKm                *int
	EndKm                  *int
	ExternalOrganization   *string
	ExternalRepresentative *string
	Description            *string
}

// Update applies a partial update to the assignment's report.
//
// Only the author may update, and only while the report is younger than
// EditWindow. The mutation is a conditional write whose filter re-asserts
// both conditions, so the check and the change see the same snapshot even
// under concurrent attempts. SubmittedAt is never touched.
func (s *Store) Update(ctx context.Context, associationID, callerID, assignmentID primitive.ObjectID, p UpdatePayload) (models.Report, error) {
	r, err := s.Get(ctx, associationID, assignmentID)
	if err != nil {
		return models.Report{}, err
	}
	if r.AuthorID != callerID {
		return models.Report{}, ErrUpdaterIsNotAuthor
	}

	now := time.Now().UTC()
	if now.Sub(r.SubmittedAt) >= EditWindow {
		return models.Report{}, ErrCannotBeAltered
	}

	set := bson.M{"updated_at": now}
	if p.Method != nil {
		set["method"] = *p.Method
	}
	if p.Purpose != nil {
		set["purpose"] = *p.Purpose
	}
	if p.LicensePlateNumber != nil {
		set["license_plate_number"] = *p.LicensePlateNumber
	}
	if p.StartKm != nil {
		set["start_km"] = *p.StartKm
	}
	if p.EndKm != nil {
		set["end_km"] = *p.EndKm
	}
	if p.ExternalOrganization != nil {
		set["external_organization"] = *p.ExternalOrganization
	}
	if p.ExternalRepresentative != nil {
		set["external_representative"] = *p.ExternalRepresentative
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}

	var updated models.Report
	err = s.c.FindOneAndUpdate(ctx,
		s.mutableFilter(r.ID, callerID, now),
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		// The snapshot moved between the pre-checks and the write.
		return models.Report{}, s.discriminate(ctx, r.ID, callerID)
	}
	if err != nil {
		return models.Report{}, err
	}
	return updated, nil
}

// Delete removes the assignment's report and clears the assignment's
// reference, under the same author and window rules as Update. The row
// goes first and the reference after; a crash in between leaves the
// assignment pointing at a missing row, which Get already reports as
// ErrReportNotFound.
func (s *Store) Delete(ctx context.Context, associationID, callerID, assignmentID primitive.ObjectID) (models.Report, error) {
	r, err := s.Get(ctx, associationID, assignmentID)
	if err != nil {
		return models.Report{}, err
	}
	if r.AuthorID != callerID {
		return models.Report{}, ErrUpdaterIsNotAuthor
	}

	now := time.Now().UTC()
	if now.Sub(r.SubmittedAt) >= EditWindow {
		return models.Report{}, ErrCannotBeAltered
	}

	// Re-assert author+window on the row itself while tombstoning it, so
	// the window check and the effect share one snapshot.
	var removed models.Report
	err = s.c.FindOneAndDelete(ctx, s.mutableFilter(r.ID, callerID, now)).Decode(&removed)
	if err == mongo.ErrNoDocuments {
		return models.Report{}, s.discriminate(ctx, r.ID, callerID)
	}
	if err != nil {
		return models.Report{}, err
	}

	_, err = s.assignments.Collection().UpdateOne(ctx,
		bson.M{"_id": assignmentID, "association_id": associationID, "report_id": removed.ID},
		bson.M{"$unset": bson.M{"report_id": ""}, "$set": bson.M{"updated_at": now}})
	if err != nil {
		return models.Report{}, err
	}
	return removed, nil
}

// DeleteForAssignment removes the report referenced by an assignment
// without author or window checks. This is the cascade path used by the
// assignment store's delete; it must run before the assignment row is
// removed.
func (s *Store) DeleteForAssignment(ctx context.Context, a *models.Assignment) error {
	if !a.HasReport() {
		return nil
	}
	if _, err := s.c.DeleteOne(ctx, bson.M{"_id": *a.ReportID}); err != nil {
		return err
	}
	return nil
}

// mutableFilter matches the report row only while the caller is its author
// and the edit window is still open.
func (s *Store) mutableFilter(reportID, callerID primitive.ObjectID, now time.Time) bson.M {
	return bson.M{
		"_id":          reportID,
		"author_id":    callerID,
		"submitted_at": bson.M{"$gt": now.Add(-EditWindow)},
	}
}

// discriminate decides which rule a failed conditional write tripped over:
// the row disappeared, the author no longer matches, or the window closed.
func (s *Store) discriminate(ctx context.Context, reportID, callerID primitive.ObjectID) error {
	var r models.Report
	err := s.c.FindOne(ctx, bson.M{"_id": reportID}).Decode(&r)
	if err == mongo.ErrNoDocuments {
		return ErrReportNotFound
	}
	if err != nil {
		return err
	}
	if r.AuthorID != callerID {
		return ErrUpdaterIsNotAuthor
	}
	return ErrCannotBeAltered
}
