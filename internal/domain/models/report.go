// internal/domain/models/report.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Patrol methods a report may record.
const (
	MethodBicycle    = "bicycle"
	MethodVehicle    = "vehicle"
	MethodPedestrian = "pedestrian"
)

// ValidMethod reports whether s is one of the known patrol methods.
func ValidMethod(s string) bool {
	switch s {
	case MethodBicycle, MethodVehicle, MethodPedestrian:
		return true
	}
	return false
}

// Report documents how an assignment's duty was carried out. At most one
// report exists per assignment (held by Assignment.ReportID), written by a
// member who was an assignee at submission time.
//
// SubmittedAt is set once at creation and never updated; it anchors the
// mutability window after which the report becomes permanently read-only.
type Report struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AssignmentID primitive.ObjectID `bson:"assignment_id" json:"assignment_id"`
	AuthorID     primitive.ObjectID `bson:"author_id" json:"author_id"`

	Method             string `bson:"method" json:"method"` // bicycle | vehicle | pedestrian
	Purpose            string `bson:"purpose" json:"purpose"`
	LicensePlateNumber string `bson:"license_plate_number,omitempty" json:"license_plate_number,omitempty"`
	StartKm            *int   `bson:"start_km,omitempty" json:"start_km,omitempty"`
	EndKm              *int   `bson:"end_km,omitempty" json:"end_km,omitempty"`

	// External cooperation, if another organization took part. A
	// representative is only meaningful together with an organization;
	// request validation enforces that before the store is reached.
	ExternalOrganization   string `bson:"external_organization,omitempty" json:"external_organization,omitempty"`
	ExternalRepresentative string `bson:"external_representative,omitempty" json:"external_representative,omitempty"`

	Description string `bson:"description,omitempty" json:"description,omitempty"`

	SubmittedAt time.Time `bson:"submitted_at" json:"submitted_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}
