// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureAll is called at startup. Index creation is idempotent; errors are
// aggregated so every problem is visible and startup can fail fast.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureArticles(ctx, db); err != nil {
		problems = append(problems, "articles: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func ensureArticles(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("articles")
	_, err := c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		// Group index rebuilds scan articles by group name.
		{
			Keys:    bson.D{{Key: "group_name", Value: 1}},
			Options: options.Index().SetName("idx_articles_group_name"),
		},
		// Merge restores check for existing titles case-insensitively.
		{
			Keys:    bson.D{{Key: "title_ci", Value: 1}},
			Options: options.Index().SetName("idx_articles_titleci"),
		},
	})
	return err
}
