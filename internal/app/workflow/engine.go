// internal/app/workflow/engine.go

// Package workflow is the orchestration layer over the assignment and
// report stores. It owns no state and no transport concerns: it resolves
// the caller's identity into scoping and authorization decisions, delegates
// to the stores in the order the rules demand (existence before ownership
// before temporal checks), and passes store errors through unchanged so the
// HTTP layer can translate the closed error set into responses.
package workflow

import (
	"context"
	"errors"

	assignmentstore "github.com/dalemusser/dutyhub/internal/app/store/assignments"
	reportstore "github.com/dalemusser/dutyhub/internal/app/store/reports"
	"github.com/dalemusser/dutyhub/internal/app/system/auth"
	"github.com/dalemusser/dutyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotPresident is returned when an assignment mutation is attempted by
// a caller without the president role. Route middleware normally catches
// this first; the engine enforces it regardless of transport.
var ErrNotPresident = errors.New("operation requires the president role")

type Engine struct {
	assignments *assignmentstore.Store
	reports     *reportstore.Store
}

func New(db *mongo.Database) *Engine {
	return &Engine{
		assignments: assignmentstore.New(db),
		reports:     reportstore.New(db),
	}
}

// CreateAssignment schedules a new duty. Presidents only.
func (e *Engine) CreateAssignment(ctx context.Context, id auth.Identity, f assignmentstore.InsertFields) (models.Assignment, error) {
	if !id.IsPresident() {
		return models.Assignment{}, ErrNotPresident
	}
	return e.assignments.Insert(ctx, id.AssociationID, f)
}

// UpdateAssignment applies a partial update to a duty. Presidents only.
func (e *Engine) UpdateAssignment(ctx context.Context, id auth.Identity, assignmentID primitive.ObjectID, f assignmentstore.UpdateFields) (models.Assignment, error) {
	if !id.IsPresident() {
		return models.Assignment{}, ErrNotPresident
	}
	return e.assignments.Update(ctx, id.AssociationID, assignmentID, f)
}

// DeleteAssignment removes a duty, cascading its report first. Presidents
// only. The removed assignment is returned for response echoing.
func (e *Engine) DeleteAssignment(ctx context.Context, id auth.Identity, assignmentID primitive.ObjectID) (models.Assignment, error) {
	if !id.IsPresident() {
		return models.Assignment{}, ErrNotPresident
	}
	return e.assignments.Delete(ctx, id.AssociationID, assignmentID, e.reports.DeleteForAssignment)
}

// GetAssignment loads a single duty within the caller's association.
func (e *Engine) GetAssignment(ctx context.Context, id auth.Identity, assignmentID primitive.ObjectID) (*models.Assignment, error) {
	return e.assignments.GetByID(ctx, id.AssociationID, assignmentID)
}

// ListAssignments returns the association's duties overlapping the range.
func (e *Engine) ListAssignments(ctx context.Context, id auth.Identity, r assignmentstore.ListRange) ([]models.Assignment, error) {
	return e.assignments.List(ctx, id.AssociationID, r)
}

// CreateReport submits the single report for a finished duty. Any assignee
// of the duty may submit; the store guarantees exactly one submission wins.
func (e *Engine) CreateReport(ctx context.Context, id auth.Identity, assignmentID primitive.ObjectID, p reportstore.Payload) (models.Report, error) {
	return e.reports.Create(ctx, id.AssociationID, id.MemberID, assignmentID, p)
}

// GetReport reads the report attached to a duty.
func (e *Engine) GetReport(ctx context.Context, id auth.Identity, assignmentID primitive.ObjectID) (models.Report, error) {
	return e.reports.Get(ctx, id.AssociationID, assignmentID)
}

// UpdateReport lets the report's author amend it inside the edit window.
func (e *Engine) UpdateReport(ctx context.Context, id auth.Identity, assignmentID primitive.ObjectID, p reportstore.UpdatePayload) (models.Report, error) {
	return e.reports.Update(ctx, id.AssociationID, id.MemberID, assignmentID, p)
}

// DeleteReport lets the report's author withdraw it inside the edit window.
func (e *Engine) DeleteReport(ctx context.Context, id auth.Identity, assignmentID primitive.ObjectID) (models.Report, error) {
	return e.reports.Delete(ctx, id.AssociationID, id.MemberID, assignmentID)
}
