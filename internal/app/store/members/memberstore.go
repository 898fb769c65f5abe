// internal/app/store/members/memberstore.go
package memberstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/dutyhub/internal/app/system/normalize"
	"github.com/dalemusser/dutyhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("members")}
}

var (
	// ErrDuplicateEmail is returned when a member with the email already
	// exists within the association.
	ErrDuplicateEmail = errors.New("a member with this email already exists")

	errBadRole = errors.New(`role must be "member" or "president"`)
)

// GetByID loads a member by id, scoped to the association. A member from
// another association is reported as mongo.ErrNoDocuments.
func (s *Store) GetByID(ctx context.Context, associationID, id primitive.ObjectID) (*models.Member, error) {
	var m models.Member
	err := s.c.FindOne(ctx, bson.M{"_id": id, "association_id": associationID}).Decode(&m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByEmail looks up a member by case-insensitive email across all
// associations. Used by login, where the association is not yet known.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.Member, error) {
	var m models.Member
	err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ResolveAssignees loads the given member ids, filtered to the association
// and to registered members. The result is keyed by id; callers decide what
// a missing id means (the assignment store treats it as assignee-not-found).
func (s *Store) ResolveAssignees(ctx context.Context, associationID primitive.ObjectID, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Member, error) {
	out := make(map[primitive.ObjectID]models.Member, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	cur, err := s.c.Find(ctx, bson.M{
		"_id":            bson.M{"$in": ids},
		"association_id": associationID,
		"is_registered":  true,
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var m models.Member
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		out[m.ID] = m
	}
	return out, cur.Err()
}

// Create inserts a new member after normalizing and validating fields.
// New members start unregistered; redemption of their invite registers them.
func (s *Store) Create(ctx context.Context, m models.Member) (models.Member, error) {
	m.ID = primitive.NewObjectID()
	m.FullName = normalize.Name(m.FullName)
	m.FullNameCI = text.Fold(m.FullName)
	m.Email = normalize.Email(m.Email)

	for _, r := range m.Roles {
		if r != models.RoleMember && r != models.RolePresident {
			return models.Member{}, errBadRole
		}
	}

	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Member{}, ErrDuplicateEmail
		}
		return models.Member{}, err
	}
	return m, nil
}

// MemberUpdate holds the mutable profile fields of a member.
type MemberUpdate struct {
	FullName string
	Email    string
}

// Update applies profile changes to a member within the association.
func (s *Store) Update(ctx context.Context, associationID, id primitive.ObjectID, upd MemberUpdate) error {
	name := normalize.Name(upd.FullName)
	set := bson.M{
		"full_name":    name,
		"full_name_ci": text.Fold(name),
		"email":        normalize.Email(upd.Email),
		"updated_at":   time.Now().UTC(),
	}
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "association_id": associationID},
		bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// Register sets the member's password hash and flips them to registered.
// Called when an invite is redeemed.
func (s *Store) Register(ctx context.Context, id primitive.ObjectID, passwordHash string) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"password_hash": passwordHash,
			"is_registered": true,
			"updated_at":    time.Now().UTC(),
		}})
	return err
}

// GrantRole adds a role to the member's role set if not already present.
func (s *Store) GrantRole(ctx context.Context, associationID, id primitive.ObjectID, role string) error {
	if role != models.RoleMember && role != models.RolePresident {
		return errBadRole
	}
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "association_id": associationID},
		bson.M{
			"$addToSet": bson.M{"roles": role},
			"$set":      bson.M{"updated_at": time.Now().UTC()},
		})
	return err
}

// ListByAssociation returns all members of the association sorted by folded
// full name.
func (s *Store) ListByAssociation(ctx context.Context, associationID primitive.ObjectID) ([]models.Member, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "full_name_ci", Value: 1},
		{Key: "_id", Value: 1},
	})
	return s.Find(ctx, bson.M{"association_id": associationID}, opts)
}

// Find runs an arbitrary filter against the members collection. Paged
// listings build their own keyset filters and sort options and feed them
// through here.
func (s *Store) Find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Member, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var members []models.Member
	if err := cur.All(ctx, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// Count returns the number of members matching the filter.
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}
