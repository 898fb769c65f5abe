// Package inputval holds the field-level validation that runs at the HTTP
// boundary, before the workflow engine is invoked. The stores assume these
// shapes hold and do not re-validate them.
package inputval

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/dutyhub/internal/domain/models"
)

const (
	MaxTitleLen       = 200
	MaxLocationLen    = 200
	MaxPurposeLen     = 500
	MaxDescriptionLen = 5000
	MaxPlateLen       = 20
	MaxNameLen        = 200
)

var (
	ErrTitleRequired     = errors.New("title is required")
	ErrLocationRequired  = errors.New("location is required")
	ErrWindowRequired    = errors.New("start and end are both required")
	ErrWindowInverted    = errors.New("end must not be before start")
	ErrDuplicateAssignee = errors.New("assignee ids must be unique")
	ErrNoAssignees       = errors.New("at least one assignee is required")

	ErrBadMethod         = errors.New(`method must be "bicycle", "vehicle" or "pedestrian"`)
	ErrPurposeRequired   = errors.New("purpose is required")
	ErrKmOrder           = errors.New("endKm must not be less than startKm")
	ErrKmNegative        = errors.New("km values must not be negative")
	ErrRepresentativeOrg = errors.New("externalRepresentative requires externalOrganization")
)

// tooLong builds a length error naming the offending field.
func tooLong(field string, max int) error {
	return fmt.Errorf("%s must be at most %d characters", field, max)
}

// AssignmentFields validates the request shape of a new assignment: both
// window bounds present and ordered, a non-empty title and location, and a
// unique, non-empty assignee id list. Temporal rules against "now" belong
// to the store, not here.
func AssignmentFields(title, location string, start, end time.Time, assigneeIDs []string) error {
	if strings.TrimSpace(title) == "" {
		return ErrTitleRequired
	}
	if len(title) > MaxTitleLen {
		return tooLong("title", MaxTitleLen)
	}
	if strings.TrimSpace(location) == "" {
		return ErrLocationRequired
	}
	if len(location) > MaxLocationLen {
		return tooLong("location", MaxLocationLen)
	}
	if start.IsZero() || end.IsZero() {
		return ErrWindowRequired
	}
	if end.Before(start) {
		return ErrWindowInverted
	}
	return AssigneeIDs(assigneeIDs)
}

// AssigneeIDs rejects empty and duplicated assignee lists.
func AssigneeIDs(ids []string) error {
	if len(ids) == 0 {
		return ErrNoAssignees
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return ErrDuplicateAssignee
		}
		seen[id] = struct{}{}
	}
	return nil
}

// ReportFieldsPartial validates whichever report fields a partial update
// supplies. Absent fields are skipped; cross-field rules apply only when
// both sides are present in the request.
func ReportFieldsPartial(method, purpose, plate, extOrg, extRep, description *string, startKm, endKm *int) error {
	if method != nil && !models.ValidMethod(*method) {
		return ErrBadMethod
	}
	if purpose != nil {
		if strings.TrimSpace(*purpose) == "" {
			return ErrPurposeRequired
		}
		if len(*purpose) > MaxPurposeLen {
			return tooLong("purpose", MaxPurposeLen)
		}
	}
	if plate != nil && len(*plate) > MaxPlateLen {
		return tooLong("licensePlateNumber", MaxPlateLen)
	}
	if description != nil && len(*description) > MaxDescriptionLen {
		return tooLong("description", MaxDescriptionLen)
	}
	if startKm != nil && *startKm < 0 || endKm != nil && *endKm < 0 {
		return ErrKmNegative
	}
	if startKm != nil && endKm != nil && *endKm < *startKm {
		return ErrKmOrder
	}
	if extRep != nil && strings.TrimSpace(*extRep) != "" &&
		extOrg != nil && strings.TrimSpace(*extOrg) == "" {
		return ErrRepresentativeOrg
	}
	return nil
}

// ReportFields validates the request shape of a report payload: method
// enum membership, required purpose, km ordering when both readings are
// present, and the representative-requires-organization pairing.
func ReportFields(method, purpose, plate, extOrg, extRep, description string, startKm, endKm *int) error {
	if !models.ValidMethod(method) {
		return ErrBadMethod
	}
	if strings.TrimSpace(purpose) == "" {
		return ErrPurposeRequired
	}
	if len(purpose) > MaxPurposeLen {
		return tooLong("purpose", MaxPurposeLen)
	}
	if len(plate) > MaxPlateLen {
		return tooLong("licensePlateNumber", MaxPlateLen)
	}
	if len(description) > MaxDescriptionLen {
		return tooLong("description", MaxDescriptionLen)
	}
	if startKm != nil && *startKm < 0 || endKm != nil && *endKm < 0 {
		return ErrKmNegative
	}
	if startKm != nil && endKm != nil && *endKm < *startKm {
		return ErrKmOrder
	}
	if strings.TrimSpace(extRep) != "" && strings.TrimSpace(extOrg) == "" {
		return ErrRepresentativeOrg
	}
	return nil
}
