// internal/domain/models/association.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Association is the tenant boundary. Every other entity references an
// association directly or through its parent, and no operation may read or
// write across that boundary.
type Association struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"` // lowercase, diacritics-stripped
	Location    string             `bson:"location" json:"location"`
	Certificate string             `bson:"certificate" json:"certificate"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
