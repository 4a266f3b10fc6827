// Package articlestore persists help articles in MongoDB.
//
// Bodies of group-scoped articles are encrypted before they are written and
// decrypted on read only after the requesting user passes the group access
// check. Absent articles and denied access both surface as ErrNotFound so a
// caller cannot probe for the existence of restricted content.
package articlestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/dalemusser/waffle/pantry/text"

	"github.com/dalemusser/helphub/internal/app/policy/articlepolicy"
	groupstore "github.com/dalemusser/helphub/internal/app/store/groups"
	"github.com/dalemusser/helphub/internal/app/system/bodycipher"
	"github.com/dalemusser/helphub/internal/app/system/textenc"
	"github.com/dalemusser/helphub/internal/domain/models"
)

var ErrNotFound = errors.New("article not found")

// Store provides CRUD over articles with encrypt-on-write and
// access-checked decrypt-on-read.
type Store struct {
	articles *mongo.Collection
	counters *mongo.Collection
	groups   *groupstore.Store
	cipher   *bodycipher.Cipher
	log      *zap.Logger
}

func New(db *mongo.Database, groups *groupstore.Store, cipher *bodycipher.Cipher, log *zap.Logger) *Store {
	return &Store{
		articles: db.Collection("articles"),
		counters: db.Collection("counters"),
		groups:   groups,
		cipher:   cipher,
		log:      log,
	}
}

// articleDoc is the persisted shape of an article. Keywords and reference
// links are stored comma-joined; body holds either plaintext or
// "base64(iv):base64(ciphertext)" depending on the encrypted flag.
type articleDoc struct {
	ID             int64     `bson:"_id"`
	Title          string    `bson:"title"`
	TitleCI        string    `bson:"title_ci"`
	Description    string    `bson:"description"`
	Body           string    `bson:"body"`
	Level          string    `bson:"level"`
	Keywords       string    `bson:"keywords"`
	ReferenceLinks string    `bson:"reference_links"`
	AuthorUsername string    `bson:"author_username"`
	GroupName      string    `bson:"group_name"`
	Encrypted      bool      `bson:"encrypted"`
	CreatedAt      time.Time `bson:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at"`
}

func docFromArticle(a models.Article, storedBody string) articleDoc {
	return articleDoc{
		ID:             a.ID,
		Title:          a.Title,
		TitleCI:        text.Fold(a.Title),
		Description:    a.Description,
		Body:           storedBody,
		Level:          string(a.Level),
		Keywords:       textenc.JoinSet(a.Keywords),
		ReferenceLinks: textenc.JoinSet(a.ReferenceLinks),
		AuthorUsername: a.AuthorUsername,
		GroupName:      a.GroupName,
		Encrypted:      a.Encrypted,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

// article returns the model with the body exactly as stored; callers decide
// whether to decrypt.
func (d articleDoc) article() models.Article {
	return models.Article{
		ID:             d.ID,
		Title:          d.Title,
		Description:    d.Description,
		Body:           d.Body,
		Level:          models.Level(d.Level),
		Keywords:       textenc.SplitSet(d.Keywords),
		ReferenceLinks: textenc.SplitSet(d.ReferenceLinks),
		AuthorUsername: d.AuthorUsername,
		GroupName:      d.GroupName,
		Encrypted:      d.Encrypted,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func (s *Store) nextID(ctx context.Context) (int64, error) {
	res := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": "articles"},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After))
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	if err := res.Decode(&doc); err != nil {
		return 0, fmt.Errorf("next article id: %w", err)
	}
	return doc.Seq, nil
}

// Register assigns an id and inserts the article, encrypting the body first
// when the article is group-scoped. The owning group's article index is
// updated afterwards as a separate write; a failure there is logged, not
// returned, because the index is a rebuildable cache.
func (s *Store) Register(ctx context.Context, a models.Article) (models.Article, error) {
	if a.Title == "" {
		return models.Article{}, errors.New("article title is required")
	}
	if a.AuthorUsername == "" {
		return models.Article{}, errors.New("author username is required")
	}
	if _, err := models.ParseLevel(string(a.Level)); err != nil {
		return models.Article{}, err
	}

	id, err := s.nextID(ctx)
	if err != nil {
		return models.Article{}, err
	}

	now := time.Now().UTC()
	a.ID = id
	a.CreatedAt = now
	a.UpdatedAt = now
	a.Encrypted = a.IsGrouped()

	storedBody := a.Body
	if a.IsGrouped() {
		storedBody, err = s.cipher.EncryptBody(a.Body)
		if err != nil {
			return models.Article{}, fmt.Errorf("encrypt body: %w", err)
		}
	}

	if _, err := s.articles.InsertOne(ctx, docFromArticle(a, storedBody)); err != nil {
		return models.Article{}, fmt.Errorf("insert article: %w", err)
	}

	if a.IsGrouped() {
		if err := s.groups.AddArticleID(ctx, a.GroupName, a.ID); err != nil {
			s.log.Warn("failed to update group article index",
				zap.String("group", a.GroupName),
				zap.Int64("article_id", a.ID),
				zap.Error(err))
		}
	}
	return a, nil
}

// Update replaces the stored article. A group-scoped body is re-encrypted
// with a fresh IV on every write. The referenced group is not re-validated
// and group article indexes are not adjusted here; RebuildArticleIndex is
// the recovery path when the group assignment changes.
func (s *Store) Update(ctx context.Context, a models.Article) (models.Article, error) {
	if a.ID == 0 {
		return models.Article{}, errors.New("article id is required")
	}
	if a.Title == "" {
		return models.Article{}, errors.New("article title is required")
	}
	if _, err := models.ParseLevel(string(a.Level)); err != nil {
		return models.Article{}, err
	}

	var existing articleDoc
	err := s.articles.FindOne(ctx, bson.M{"_id": a.ID}).Decode(&existing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Article{}, ErrNotFound
		}
		return models.Article{}, fmt.Errorf("find article: %w", err)
	}

	a.AuthorUsername = existing.AuthorUsername
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = time.Now().UTC()
	a.Encrypted = a.IsGrouped()

	storedBody := a.Body
	if a.IsGrouped() {
		storedBody, err = s.cipher.EncryptBody(a.Body)
		if err != nil {
			return models.Article{}, fmt.Errorf("encrypt body: %w", err)
		}
	}

	res, err := s.articles.ReplaceOne(ctx, bson.M{"_id": a.ID}, docFromArticle(a, storedBody))
	if err != nil {
		return models.Article{}, fmt.Errorf("update article: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.Article{}, ErrNotFound
	}
	return a, nil
}

// Get loads an article for the requesting user. Ungrouped articles are
// readable by anyone. For group-scoped articles a missing group, a failed
// access check, or a body that will not decrypt all yield ErrNotFound.
func (s *Store) Get(ctx context.Context, id int64, requestingUsername string) (*models.Article, error) {
	var doc articleDoc
	err := s.articles.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find article: %w", err)
	}

	a := doc.article()
	if !a.IsGrouped() {
		return &a, nil
	}

	group, err := s.groups.Get(ctx, a.GroupName)
	if err != nil {
		if errors.Is(err, groupstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !articlepolicy.CanAccess(requestingUsername, group) {
		return nil, ErrNotFound
	}

	plaintext, err := s.cipher.DecryptBody(a.Body)
	if err != nil {
		s.log.Warn("stored article body failed to decrypt",
			zap.Int64("article_id", a.ID),
			zap.Error(err))
		return nil, ErrNotFound
	}
	a.Body = plaintext
	return &a, nil
}

// GetAll returns every article the requesting user may read, applying the
// same per-row rules as Get. Rows that are denied or fail to decrypt are
// skipped, never fatal to the scan.
func (s *Store) GetAll(ctx context.Context, requestingUsername string) ([]models.Article, error) {
	cur, err := s.articles.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer cur.Close(ctx)

	groupCache := map[string]*models.Group{}
	var out []models.Article

	for cur.Next(ctx) {
		var doc articleDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode article: %w", err)
		}
		a := doc.article()

		if !a.IsGrouped() {
			out = append(out, a)
			continue
		}

		group, cached := groupCache[a.GroupName]
		if !cached {
			g, err := s.groups.Get(ctx, a.GroupName)
			if err != nil && !errors.Is(err, groupstore.ErrNotFound) {
				return nil, err
			}
			group = g
			groupCache[a.GroupName] = g
		}
		if !articlepolicy.CanAccess(requestingUsername, group) {
			continue
		}

		plaintext, err := s.cipher.DecryptBody(a.Body)
		if err != nil {
			s.log.Warn("skipping article with undecryptable body",
				zap.Int64("article_id", a.ID),
				zap.Error(err))
			continue
		}
		a.Body = plaintext
		out = append(out, a)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}
	return out, nil
}

// SearchByKeyword filters the user's readable articles to those matching
// the keyword against the keyword set, the title, or the description,
// case-insensitively.
func (s *Store) SearchByKeyword(ctx context.Context, requestingUsername, keyword string) ([]models.Article, error) {
	all, err := s.GetAll(ctx, requestingUsername)
	if err != nil {
		return nil, err
	}
	folded := text.Fold(keyword)
	if folded == "" {
		return all, nil
	}

	var out []models.Article
	for _, a := range all {
		if articleMatches(a, folded) {
			out = append(out, a)
		}
	}
	return out, nil
}

func articleMatches(a models.Article, folded string) bool {
	for _, kw := range a.Keywords {
		if text.Fold(kw) == folded {
			return true
		}
	}
	return strings.Contains(text.Fold(a.Title), folded) ||
		strings.Contains(text.Fold(a.Description), folded)
}

// Delete removes the article row. Group article indexes are not touched;
// that staleness is accepted and recoverable via RebuildArticleIndex.
func (s *Store) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := s.articles.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, fmt.Errorf("delete article: %w", err)
	}
	return res.DeletedCount, nil
}

// AllForBackup returns every article row with the body exactly as stored,
// bypassing access checks. Only the backup pipeline should use this.
func (s *Store) AllForBackup(ctx context.Context) ([]models.Article, error) {
	cur, err := s.articles.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer cur.Close(ctx)

	var out []models.Article
	for cur.Next(ctx) {
		var doc articleDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode article: %w", err)
		}
		out = append(out, doc.article())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}
	return out, nil
}

// InsertRaw inserts a row with a freshly assigned id and the body stored
// verbatim, with no encryption step. The restore path uses this to put
// already-encrypted bodies back as they were.
func (s *Store) InsertRaw(ctx context.Context, a models.Article) (models.Article, error) {
	id, err := s.nextID(ctx)
	if err != nil {
		return models.Article{}, err
	}

	now := time.Now().UTC()
	a.ID = id
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	if _, err := s.articles.InsertOne(ctx, docFromArticle(a, a.Body)); err != nil {
		return models.Article{}, fmt.Errorf("insert article: %w", err)
	}
	return a, nil
}

// TitleExists reports whether any stored article carries the title,
// compared case-insensitively.
func (s *Store) TitleExists(ctx context.Context, title string) (bool, error) {
	err := s.articles.FindOne(ctx, bson.M{"title_ci": text.Fold(title)},
		options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, fmt.Errorf("check title: %w", err)
	}
	return true, nil
}

// DeleteAll clears the article table. Used by overwrite restores.
func (s *Store) DeleteAll(ctx context.Context) error {
	if _, err := s.articles.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("clear articles: %w", err)
	}
	return nil
}
