// internal/domain/models/assignment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Assignment is a scheduled duty with a [Start, End] window and an ordered
// set of assignee members, all from the same association.
//
// ReportID is the single source of truth for the one-report-per-assignment
// invariant: a report exists for this assignment iff ReportID is set, and
// attaching it is done with a conditional write so two concurrent report
// submissions cannot both win.
type Assignment struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	AssociationID primitive.ObjectID   `bson:"association_id" json:"association_id"`
	Title         string               `bson:"title" json:"title"`
	Location      string               `bson:"location" json:"location"`
	Start         time.Time            `bson:"start" json:"start"`
	End           time.Time            `bson:"end" json:"end"`
	AssigneeIDs   []primitive.ObjectID `bson:"assignee_ids" json:"assignee_ids"`
	ReportID      *primitive.ObjectID  `bson:"report_id,omitempty" json:"report_id,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// HasReport reports whether a report has been attached.
func (a *Assignment) HasReport() bool {
	return a.ReportID != nil && !a.ReportID.IsZero()
}

// IsOver reports whether the duty window has ended as of now.
func (a *Assignment) IsOver(now time.Time) bool {
	return !a.End.After(now)
}

// HasAssignee reports whether the given member is named on the assignment.
func (a *Assignment) HasAssignee(memberID primitive.ObjectID) bool {
	for _, id := range a.AssigneeIDs {
		if id == memberID {
			return true
		}
	}
	return false
}
