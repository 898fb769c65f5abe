// internal/app/store/associations/associationstore.go
package associationstore

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

// ErrDuplicateName is returned when an association with the same folded
// name already exists.
var ErrDuplicateName = errors.New("an association with this name already exists")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("associations")}
}

// Create inserts a new association (tenant). Used by bootstrap tooling;
// associations are never created through the duty workflow.
func (s *Store) Create(ctx context.Context, a models.Association) (models.Association, error) {
	a.ID = primitive.NewObjectID()
	a.Name = normalize.Name(a.Name)
	a.NameCI = text.Fold(a.Name)

	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, a); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Association{}, ErrDuplicateName
		}
		return models.Association{}, err
	}
	return a, nil
}

// GetByID loads an association by id.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Association, error) {
	var a models.Association
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	return a, err
}

// List returns all associations sorted by folded name.
func (s *Store) List(ctx context.Context) ([]models.Association, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Association
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
