// internal/app/store/invites/invitestore.go
package invitestore

import (
	"context"
	"errors"
	"time"

	memberstore "github.com/dalemusser/dutyhub/internal/app/store/members"
	"github.com/dalemusser/dutyhub/internal/app/system/normalize"
	"github.com/dalemusser/dutyhub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

// DefaultExpiry is how long an invite stays redeemable.
const DefaultExpiry = 7 * 24 * time.Hour

// bcryptCost for hashing the password chosen at redemption.
const bcryptCost = 12

var (
	// ErrInviteNotFound is returned for unknown tokens.
	ErrInviteNotFound = errors.New("invite not found")

	// ErrInviteExpired is returned when the token is past its expiry.
	ErrInviteExpired = errors.New("invite has expired")

	// ErrInviteRedeemed is returned when the token was already used.
	ErrInviteRedeemed = errors.New("invite has already been redeemed")
)

type Store struct {
	c       *mongo.Collection
	members *memberstore.Store
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:       db.Collection("invites"),
		members: memberstore.New(db),
	}
}

// Create issues an invite for the email, scoped to the association. The
// invited member record is created immediately, unregistered; redemption
// registers it. Re-inviting an email fails the member pre-create with
// memberstore.ErrDuplicateEmail.
func (s *Store) Create(ctx context.Context, associationID primitive.ObjectID, email, fullName string, roles []string) (models.Invite, error) {
	m, err := s.members.Create(ctx, models.Member{
		AssociationID: associationID,
		FullName:      fullName,
		Email:         email,
		Roles:         roles,
		IsRegistered:  false,
	})
	if err != nil {
		return models.Invite{}, err
	}

	now := time.Now().UTC()
	inv := models.Invite{
		ID:            primitive.NewObjectID(),
		AssociationID: associationID,
		Email:         m.Email,
		Token:         uuid.NewString(),
		Roles:         roles,
		ExpiresAt:     now.Add(DefaultExpiry),
		CreatedAt:     now,
	}
	if _, err := s.c.InsertOne(ctx, inv); err != nil {
		return models.Invite{}, err
	}
	return inv, nil
}

// Redeem consumes an invite: it hashes the chosen password and registers
// the invited member. The redeemed_at stamp is written with a conditional
// update so a token can only ever be consumed once.
func (s *Store) Redeem(ctx context.Context, token, password string) (*models.Member, error) {
	var inv models.Invite
	err := s.c.FindOne(ctx, bson.M{"token": token}).Decode(&inv)
	if err == mongo.ErrNoDocuments {
		return nil, ErrInviteNotFound
	}
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if inv.Redeemed() {
		return nil, ErrInviteRedeemed
	}
	if inv.Expired(now) {
		return nil, ErrInviteExpired
	}

	// Claim the token before touching the member; losing the race here
	// means someone else already redeemed it.
	res := s.c.FindOneAndUpdate(ctx,
		bson.M{"token": token, "redeemed_at": nil, "expires_at": bson.M{"$gt": now}},
		bson.M{"$set": bson.M{"redeemed_at": now}},
		options.FindOneAndUpdate().SetReturnDocument(options.After))
	if err := res.Err(); err == mongo.ErrNoDocuments {
		return nil, ErrInviteRedeemed
	} else if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, err
	}

	m, err := s.members.GetByEmail(ctx, normalize.Email(inv.Email))
	if err != nil {
		return nil, err
	}
	if err := s.members.Register(ctx, m.ID, string(hash)); err != nil {
		return nil, err
	}
	m.PasswordHash = string(hash)
	m.IsRegistered = true
	return m, nil
}

// GetByToken loads an invite without consuming it (for the registration
// form to show who is being invited).
func (s *Store) GetByToken(ctx context.Context, token string) (models.Invite, error) {
	var inv models.Invite
	err := s.c.FindOne(ctx, bson.M{"token": token}).Decode(&inv)
	if err == mongo.ErrNoDocuments {
		return models.Invite{}, ErrInviteNotFound
	}
	return inv, err
}

// DeleteExpired removes invites whose expiry has passed without
// redemption. Returns the number removed; called from startup maintenance.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{
		"redeemed_at": nil,
		"expires_at":  bson.M{"$lt": time.Now().UTC()},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
