// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// EnsureAll is called at startup. Each ensure step is idempotent; problems
// are aggregated so startup can fail fast with everything that is wrong.
//
// Note: reports deliberately carry no unique index on assignment_id. The
// one-report-per-assignment invariant lives on the assignment's report_id
// field, claimed with a conditional write.
func EnsureAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	var problems []string

	steps := []struct {
		collection string
		indexes    []mongo.IndexModel
	}{
		{"associations", []mongo.IndexModel{
			uniqueIndex("name_ci_unique", bson.D{{Key: "name_ci", Value: 1}}),
		}},
		{"members", []mongo.IndexModel{
			uniqueIndex("email_unique", bson.D{{Key: "email", Value: 1}}),
			index("assoc_registered", bson.D{{Key: "association_id", Value: 1}, {Key: "is_registered", Value: 1}}),
			index("assoc_name", bson.D{{Key: "association_id", Value: 1}, {Key: "full_name_ci", Value: 1}}),
		}},
		{"assignments", []mongo.IndexModel{
			index("assoc_start", bson.D{{Key: "association_id", Value: 1}, {Key: "start", Value: 1}}),
			index("assoc_end", bson.D{{Key: "association_id", Value: 1}, {Key: "end", Value: 1}}),
		}},
		{"reports", []mongo.IndexModel{
			index("assignment", bson.D{{Key: "assignment_id", Value: 1}}),
			index("author", bson.D{{Key: "author_id", Value: 1}}),
		}},
		{"invites", []mongo.IndexModel{
			uniqueIndex("token_unique", bson.D{{Key: "token", Value: 1}}),
			index("expiry", bson.D{{Key: "expires_at", Value: 1}}),
		}},
	}

	for _, step := range steps {
		if err := ensure(ctx, db.Collection(step.collection), step.indexes, logger); err != nil {
			problems = append(problems, step.collection+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func ensure(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel, logger *zap.Logger) error {
	names, err := coll.Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	logger.Info("indexes ensured",
		zap.String("collection", coll.Name()),
		zap.Strings("names", names))
	return nil
}

func index(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name)}
}

func uniqueIndex(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name).SetUnique(true)}
}
