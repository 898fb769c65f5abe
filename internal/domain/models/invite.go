// internal/domain/models/invite.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Invite is a single-use registration token for bringing a new member into
// an association. Redeeming it creates/registers the member and consumes
// the token.
type Invite struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AssociationID primitive.ObjectID `bson:"association_id" json:"association_id"`
	Email         string             `bson:"email" json:"email"`
	Token         string             `bson:"token" json:"token"` // random uuid, unique
	Roles         []string           `bson:"roles" json:"roles"` // roles granted on redemption

	ExpiresAt  time.Time  `bson:"expires_at" json:"expires_at"`
	RedeemedAt *time.Time `bson:"redeemed_at,omitempty" json:"redeemed_at,omitempty"`
	CreatedAt  time.Time  `bson:"created_at" json:"created_at"`
}

// Redeemed reports whether the invite has already been used.
func (i *Invite) Redeemed() bool {
	return i.RedeemedAt != nil
}

// Expired reports whether the invite is past its expiry as of now.
func (i *Invite) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
