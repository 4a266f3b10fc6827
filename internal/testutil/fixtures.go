package testutil

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dalemusser/helphub/internal/app/system/textenc"
	"github.com/dalemusser/helphub/internal/domain/models"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a user keyed by username.
func (f *Fixtures) CreateUser(ctx context.Context, username, fullName, role string) models.User {
	f.t.Helper()

	user := models.User{
		Username:  username,
		FullName:  fullName,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateGroup inserts a group with the given admins and no other members.
func (f *Fixtures) CreateGroup(ctx context.Context, name string, admins ...string) models.Group {
	f.t.Helper()

	now := time.Now().UTC()
	g := models.Group{
		Name:      name,
		Admins:    admins,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insertGroup(ctx, g)
	return g
}

// CreateGroupFull inserts a fully populated group.
func (f *Fixtures) CreateGroupFull(ctx context.Context, g models.Group) models.Group {
	f.t.Helper()

	now := time.Now().UTC()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	if g.UpdatedAt.IsZero() {
		g.UpdatedAt = now
	}
	f.insertGroup(ctx, g)
	return g
}

func (f *Fixtures) insertGroup(ctx context.Context, g models.Group) {
	doc := bson.M{
		"_id":               g.Name,
		"admins":            textenc.JoinSet(g.Admins),
		"instructor_admins": textenc.JoinSet(g.InstructorAdmins),
		"instructors":       textenc.JoinSet(g.Instructors),
		"students":          textenc.JoinSet(g.Students),
		"article_ids":       textenc.JoinIDs(g.ArticleIDs),
		"created_at":        g.CreatedAt,
		"updated_at":        g.UpdatedAt,
	}
	if _, err := f.db.Collection("groups").InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("failed to create test group: %v", err)
	}
}
