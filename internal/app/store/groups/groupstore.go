// Package groupstore persists access groups in MongoDB.
//
// Each group document is keyed by the group name and carries its four
// membership sets and its article-id index as comma-joined text, mirroring
// the flat encoding used by the backup files.
package groupstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"

	"github.com/dalemusser/helphub/internal/app/system/textenc"
	"github.com/dalemusser/helphub/internal/domain/models"
)

var (
	ErrNotFound            = errors.New("group not found")
	ErrDuplicateName       = errors.New("a group with this name already exists")
	ErrLastAdmin           = errors.New("cannot remove the last admin of a group")
	ErrLastInstructorAdmin = errors.New("cannot remove the last instructor admin of a group")
)

// Store provides CRUD and membership operations for groups.
type Store struct {
	groups   *mongo.Collection
	articles *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		groups:   db.Collection("groups"),
		articles: db.Collection("articles"),
	}
}

// groupDoc is the persisted shape of a group. Membership sets and the
// article index are stored as comma-joined strings, not arrays.
type groupDoc struct {
	Name             string    `bson:"_id"`
	Admins           string    `bson:"admins"`
	InstructorAdmins string    `bson:"instructor_admins"`
	Instructors      string    `bson:"instructors"`
	Students         string    `bson:"students"`
	ArticleIDs       string    `bson:"article_ids"`
	CreatedAt        time.Time `bson:"created_at"`
	UpdatedAt        time.Time `bson:"updated_at"`
}

func docFromGroup(g models.Group) groupDoc {
	return groupDoc{
		Name:             g.Name,
		Admins:           textenc.JoinSet(g.Admins),
		InstructorAdmins: textenc.JoinSet(g.InstructorAdmins),
		Instructors:      textenc.JoinSet(g.Instructors),
		Students:         textenc.JoinSet(g.Students),
		ArticleIDs:       textenc.JoinIDs(g.ArticleIDs),
		CreatedAt:        g.CreatedAt,
		UpdatedAt:        g.UpdatedAt,
	}
}

func (d groupDoc) group() models.Group {
	return models.Group{
		Name:             d.Name,
		Admins:           textenc.SplitSet(d.Admins),
		InstructorAdmins: textenc.SplitSet(d.InstructorAdmins),
		Instructors:      textenc.SplitSet(d.Instructors),
		Students:         textenc.SplitSet(d.Students),
		ArticleIDs:       textenc.SplitIDs(d.ArticleIDs),
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

// Create inserts a new group and seeds its Admins set with the creator, so
// a group is never left without an admin.
func (s *Store) Create(ctx context.Context, name, creatorUsername string) (models.Group, error) {
	if name == "" {
		return models.Group{}, errors.New("group name is required")
	}
	if creatorUsername == "" {
		return models.Group{}, errors.New("creator username is required")
	}

	now := time.Now().UTC()
	g := models.Group{
		Name:      name,
		Admins:    []string{creatorUsername},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.groups.InsertOne(ctx, docFromGroup(g)); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Group{}, ErrDuplicateName
		}
		return models.Group{}, fmt.Errorf("insert group: %w", err)
	}
	return g, nil
}

func (s *Store) Get(ctx context.Context, name string) (*models.Group, error) {
	var doc groupDoc
	err := s.groups.FindOne(ctx, bson.M{"_id": name}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find group: %w", err)
	}
	g := doc.group()
	return &g, nil
}

func (s *Store) GetAll(ctx context.Context) ([]models.Group, error) {
	cur, err := s.groups.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer cur.Close(ctx)

	var groups []models.Group
	for cur.Next(ctx) {
		var doc groupDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode group: %w", err)
		}
		groups = append(groups, doc.group())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}
	return groups, nil
}

// GetForUser returns every group in which the user belongs to at least one
// membership set.
func (s *Store) GetForUser(ctx context.Context, username string) ([]models.Group, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	var mine []models.Group
	for _, g := range all {
		if g.HasAnyMember(username) {
			mine = append(mine, g)
		}
	}
	return mine, nil
}

// Update replaces the stored group wholesale and refreshes UpdatedAt.
func (s *Store) Update(ctx context.Context, g models.Group) error {
	g.UpdatedAt = time.Now().UTC()
	res, err := s.groups.ReplaceOne(ctx, bson.M{"_id": g.Name}, docFromGroup(g))
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the group unconditionally. Articles that referenced the
// group keep their group name; they become unreadable until the name is
// cleared or a group with that name is recreated.
func (s *Store) Delete(ctx context.Context, name string) (int64, error) {
	res, err := s.groups.DeleteOne(ctx, bson.M{"_id": name})
	if err != nil {
		return 0, fmt.Errorf("delete group: %w", err)
	}
	return res.DeletedCount, nil
}

// AddMember adds username to the given membership tier. Adding the first
// instructor also promotes that user into the instructor-admin set.
func (s *Store) AddMember(ctx context.Context, name string, tier models.Tier, username string) (models.Group, error) {
	if username == "" {
		return models.Group{}, errors.New("username is required")
	}

	g, err := s.Get(ctx, name)
	if err != nil {
		return models.Group{}, err
	}

	promote := tier == models.TierInstructor && len(g.Instructors) == 0
	changed := g.AddMember(tier, username)
	if promote {
		if g.AddMember(models.TierInstructorAdmin, username) {
			changed = true
		}
	}
	if !changed {
		return *g, nil
	}
	if err := s.Update(ctx, *g); err != nil {
		return models.Group{}, err
	}
	return *g, nil
}

// RemoveMember removes username from the given tier. Removing the last
// admin or the last instructor admin is refused and leaves the group
// unchanged.
func (s *Store) RemoveMember(ctx context.Context, name string, tier models.Tier, username string) (models.Group, error) {
	g, err := s.Get(ctx, name)
	if err != nil {
		return models.Group{}, err
	}

	if g.HasMember(tier, username) {
		switch tier {
		case models.TierAdmin:
			if len(g.Admins) == 1 {
				return models.Group{}, ErrLastAdmin
			}
		case models.TierInstructorAdmin:
			if len(g.InstructorAdmins) == 1 {
				return models.Group{}, ErrLastInstructorAdmin
			}
		}
	}

	if !g.RemoveMember(tier, username) {
		return *g, nil
	}
	if err := s.Update(ctx, *g); err != nil {
		return models.Group{}, err
	}
	return *g, nil
}

// AddArticleID records an article in the group's index. Missing groups are
// not an error here; the index is advisory and can be rebuilt.
func (s *Store) AddArticleID(ctx context.Context, name string, id int64) error {
	g, err := s.Get(ctx, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if !g.AddArticleID(id) {
		return nil
	}
	return s.Update(ctx, *g)
}

// RemoveArticleID drops an article from the group's index.
func (s *Store) RemoveArticleID(ctx context.Context, name string, id int64) error {
	g, err := s.Get(ctx, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if !g.RemoveArticleID(id) {
		return nil
	}
	return s.Update(ctx, *g)
}

// RebuildArticleIndex recomputes the group's article-id index from the
// articles collection, replacing whatever the incremental updates left
// behind.
func (s *Store) RebuildArticleIndex(ctx context.Context, name string) (models.Group, error) {
	g, err := s.Get(ctx, name)
	if err != nil {
		return models.Group{}, err
	}

	cur, err := s.articles.Find(ctx, bson.M{"group_name": name},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return models.Group{}, fmt.Errorf("scan articles: %w", err)
	}
	defer cur.Close(ctx)

	var ids []int64
	for cur.Next(ctx) {
		var doc struct {
			ID int64 `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return models.Group{}, fmt.Errorf("decode article id: %w", err)
		}
		ids = append(ids, doc.ID)
	}
	if err := cur.Err(); err != nil {
		return models.Group{}, fmt.Errorf("iterate articles: %w", err)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	g.ArticleIDs = ids
	if err := s.Update(ctx, *g); err != nil {
		return models.Group{}, err
	}
	return *g, nil
}
