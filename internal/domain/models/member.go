// internal/domain/models/member.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Member roles. Every member implicitly holds RoleMember; RolePresident is
// stored explicitly when granted.
const (
	RoleMember    = "member"
	RolePresident = "president"
)

// Member represents a person belonging to exactly one association.
//
// Members are created by invitation (see the invites store); IsRegistered
// flips to true once the invite is redeemed and a password is set. Only
// registered members can be named as assignees on an assignment.
type Member struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AssociationID primitive.ObjectID `bson:"association_id" json:"association_id"`
	FullName      string             `bson:"full_name" json:"full_name"`
	FullNameCI    string             `bson:"full_name_ci" json:"-"`
	Email         string             `bson:"email" json:"email"`
	PasswordHash  string             `bson:"password_hash,omitempty" json:"-"`
	Roles         []string           `bson:"roles" json:"roles"`
	IsRegistered  bool               `bson:"is_registered" json:"is_registered"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// HasRole reports whether the member holds the given role. RoleMember is
// implicit and always true.
func (m *Member) HasRole(role string) bool {
	if role == RoleMember {
		return true
	}
	for _, r := range m.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsPresident reports whether the member holds the president role.
func (m *Member) IsPresident() bool {
	return m.HasRole(RolePresident)
}
