package articlestore

import (
	"errors"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	groupstore "github.com/dalemusser/helphub/internal/app/store/groups"
	"github.com/dalemusser/helphub/internal/app/system/bodycipher"
	"github.com/dalemusser/helphub/internal/domain/models"
	"github.com/dalemusser/helphub/internal/testutil"
)

func newTestStore(t *testing.T) (*Store, *groupstore.Store, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	cipher, err := bodycipher.New(testutil.TestKey())
	if err != nil {
		t.Fatalf("bodycipher.New: %v", err)
	}
	groups := groupstore.New(db)
	return New(db, groups, cipher, zap.NewNop()), groups, db
}

func sampleArticle() models.Article {
	return models.Article{
		Title:          "Intro to Sockets",
		Description:    "First steps with TCP",
		Body:           "Open a socket, then listen.",
		Level:          models.LevelBeginner,
		Keywords:       []string{"networking", "tcp"},
		ReferenceLinks: []string{"https://example.com/sockets"},
		AuthorUsername: "alice",
	}
}

func TestRegisterAssignsSequentialIDs(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := testutil.Context(t)

	a1, err := store.Register(ctx, sampleArticle())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	a2 := sampleArticle()
	a2.Title = "Second"
	b, err := store.Register(ctx, a2)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if a1.ID != 1 || b.ID != 2 {
		t.Errorf("ids: got %d, %d, want 1, 2", a1.ID, b.ID)
	}
}

func TestRegisterValidation(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := testutil.Context(t)

	a := sampleArticle()
	a.Title = ""
	if _, err := store.Register(ctx, a); err == nil {
		t.Errorf("expected error for empty title")
	}

	a = sampleArticle()
	a.AuthorUsername = ""
	if _, err := store.Register(ctx, a); err == nil {
		t.Errorf("expected error for empty author")
	}

	a = sampleArticle()
	a.Level = "grandmaster"
	if _, err := store.Register(ctx, a); err == nil {
		t.Errorf("expected error for unknown level")
	}
}

func TestUngroupedBodyStoredPlaintext(t *testing.T) {
	store, _, db := newTestStore(t)
	ctx := testutil.Context(t)

	a, err := store.Register(ctx, sampleArticle())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	var raw bson.M
	if err := db.Collection("articles").FindOne(ctx, bson.M{"_id": a.ID}).Decode(&raw); err != nil {
		t.Fatalf("raw find: %v", err)
	}
	if raw["body"] != "Open a socket, then listen." {
		t.Errorf("stored body: got %v, want plaintext", raw["body"])
	}
	if raw["encrypted"] != false {
		t.Errorf("encrypted flag: got %v, want false", raw["encrypted"])
	}

	got, err := store.Get(ctx, a.ID, "anyone-at-all")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Body != "Open a socket, then listen." {
		t.Errorf("Get body: got %q", got.Body)
	}
}

func TestGroupedBodyEncryptedAtRest(t *testing.T) {
	store, groups, db := newTestStore(t)
	ctx := testutil.Context(t)

	if _, err := groups.Create(ctx, "sec101", "alice"); err != nil {
		t.Fatalf("create group: %v", err)
	}

	a := sampleArticle()
	a.GroupName = "sec101"
	a.Body = "secret text"
	stored, err := store.Register(ctx, a)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	var raw bson.M
	if err := db.Collection("articles").FindOne(ctx, bson.M{"_id": stored.ID}).Decode(&raw); err != nil {
		t.Fatalf("raw find: %v", err)
	}
	body, _ := raw["body"].(string)
	if body == "secret text" {
		t.Fatalf("body stored in plaintext")
	}
	if !strings.Contains(body, ":") {
		t.Errorf("stored body not in iv:ciphertext form: %q", body)
	}
	if raw["encrypted"] != true {
		t.Errorf("encrypted flag: got %v, want true", raw["encrypted"])
	}

	// Registration also records the article in the group index.
	g, err := groups.Get(ctx, "sec101")
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if !g.HasArticleID(stored.ID) {
		t.Errorf("article id missing from group index: %v", g.ArticleIDs)
	}
}

func TestGetAccessByTier(t *testing.T) {
	store, groups, _ := newTestStore(t)
	ctx := testutil.Context(t)

	if _, err := groups.Create(ctx, "sec101", "alice"); err != nil {
		t.Fatalf("create group: %v", err)
	}
	if _, err := groups.AddMember(ctx, "sec101", models.TierStudent, "bob"); err != nil {
		t.Fatalf("add student: %v", err)
	}

	a := sampleArticle()
	a.GroupName = "sec101"
	a.Body = "secret text"
	stored, err := store.Register(ctx, a)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	for _, member := range []string{"alice", "bob"} {
		got, err := store.Get(ctx, stored.ID, member)
		if err != nil {
			t.Fatalf("Get as %s: %v", member, err)
		}
		if got.Body != "secret text" {
			t.Errorf("Get as %s: body %q", member, got.Body)
		}
	}

	if _, err := store.Get(ctx, stored.ID, "carol"); !errors.Is(err, ErrNotFound) {
		t.Errorf("non-member read: got %v, want ErrNotFound", err)
	}
	if _, err := store.Get(ctx, stored.ID, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("anonymous read: got %v, want ErrNotFound", err)
	}
}

func TestGetDanglingGroupDenied(t *testing.T) {
	store, groups, _ := newTestStore(t)
	ctx := testutil.Context(t)

	if _, err := groups.Create(ctx, "sec101", "alice"); err != nil {
		t.Fatalf("create group: %v", err)
	}
	a := sampleArticle()
	a.GroupName = "sec101"
	stored, err := store.Register(ctx, a)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := groups.Delete(ctx, "sec101"); err != nil {
		t.Fatalf("delete group: %v", err)
	}

	if _, err := store.Get(ctx, stored.ID, "alice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("dangling group read: got %v, want ErrNotFound", err)
	}
}

func TestGetAbsentArticle(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := testutil.Context(t)

	if _, err := store.Get(ctx, 42, "alice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestGetCorruptedBodyDenied(t *testing.T) {
	store, groups, db := newTestStore(t)
	ctx := testutil.Context(t)

	if _, err := groups.Create(ctx, "sec101", "alice"); err != nil {
		t.Fatalf("create group: %v", err)
	}
	a := sampleArticle()
	a.GroupName = "sec101"
	stored, err := store.Register(ctx, a)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, err = db.Collection("articles").UpdateOne(ctx,
		bson.M{"_id": stored.ID},
		bson.M{"$set": bson.M{"body": "not-a-valid-payload"}})
	if err != nil {
		t.Fatalf("corrupt body: %v", err)
	}

	if _, err := store.Get(ctx, stored.ID, "alice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("corrupted body read: got %v, want ErrNotFound", err)
	}
}

func TestUpdateReencryptsWithFreshIV(t *testing.T) {
	store, groups, db := newTestStore(t)
	ctx := testutil.Context(t)

	if _, err := groups.Create(ctx, "sec101", "alice"); err != nil {
		t.Fatalf("create group: %v", err)
	}
	a := sampleArticle()
	a.GroupName = "sec101"
	a.Body = "secret text"
	stored, err := store.Register(ctx, a)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	var before bson.M
	if err := db.Collection("articles").FindOne(ctx, bson.M{"_id": stored.ID}).Decode(&before); err != nil {
		t.Fatalf("raw find: %v", err)
	}

	stored.Body = "secret text"
	stored.AuthorUsername = "mallory"
	updated, err := store.Update(ctx, stored)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.AuthorUsername != "alice" {
		t.Errorf("author changed on update: %q", updated.AuthorUsername)
	}

	var after bson.M
	if err := db.Collection("articles").FindOne(ctx, bson.M{"_id": stored.ID}).Decode(&after); err != nil {
		t.Fatalf("raw find: %v", err)
	}
	if before["body"] == after["body"] {
		t.Errorf("stored body unchanged; IV was reused")
	}

	got, err := store.Get(ctx, stored.ID, "alice")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Body != "secret text" {
		t.Errorf("body after update: got %q", got.Body)
	}
}

func TestUpdateMissingArticle(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := testutil.Context(t)

	a := sampleArticle()
	a.ID = 99
	if _, err := store.Update(ctx, a); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestGetAllSkipsDeniedRows(t *testing.T) {
	store, groups, _ := newTestStore(t)
	ctx := testutil.Context(t)

	if _, err := groups.Create(ctx, "sec101", "alice"); err != nil {
		t.Fatalf("create group: %v", err)
	}

	public := sampleArticle()
	public.Title = "Public"
	if _, err := store.Register(ctx, public); err != nil {
		t.Fatalf("Register: %v", err)
	}

	private := sampleArticle()
	private.Title = "Private"
	private.GroupName = "sec101"
	private.Body = "secret text"
	if _, err := store.Register(ctx, private); err != nil {
		t.Fatalf("Register: %v", err)
	}

	all, err := store.GetAll(ctx, "alice")
	if err != nil {
		t.Fatalf("GetAll as alice: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("alice sees %d articles, want 2", len(all))
	}
	for _, a := range all {
		if a.Title == "Private" && a.Body != "secret text" {
			t.Errorf("grouped body not decrypted: %q", a.Body)
		}
	}

	all, err = store.GetAll(ctx, "carol")
	if err != nil {
		t.Fatalf("GetAll as carol: %v", err)
	}
	if len(all) != 1 || all[0].Title != "Public" {
		t.Errorf("carol sees %v, want only the public article", all)
	}
}

func TestSearchByKeyword(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := testutil.Context(t)

	a := sampleArticle()
	a.Title = "Sockets"
	a.Keywords = []string{"Networking"}
	if _, err := store.Register(ctx, a); err != nil {
		t.Fatalf("Register: %v", err)
	}
	b := sampleArticle()
	b.Title = "Recursion"
	b.Keywords = []string{"algorithms"}
	if _, err := store.Register(ctx, b); err != nil {
		t.Fatalf("Register: %v", err)
	}

	got, err := store.SearchByKeyword(ctx, "anyone", "networking")
	if err != nil {
		t.Fatalf("SearchByKeyword: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Sockets" {
		t.Errorf("keyword search: got %v", got)
	}

	got, err = store.SearchByKeyword(ctx, "anyone", "recur")
	if err != nil {
		t.Fatalf("SearchByKeyword: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Recursion" {
		t.Errorf("title substring search: got %v", got)
	}

	got, err = store.SearchByKeyword(ctx, "anyone", "")
	if err != nil {
		t.Fatalf("SearchByKeyword: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("empty keyword: got %d articles, want all 2", len(got))
	}
}

func TestDeleteLeavesGroupIndex(t *testing.T) {
	store, groups, _ := newTestStore(t)
	ctx := testutil.Context(t)

	if _, err := groups.Create(ctx, "sec101", "alice"); err != nil {
		t.Fatalf("create group: %v", err)
	}
	a := sampleArticle()
	a.GroupName = "sec101"
	stored, err := store.Register(ctx, a)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	n, err := store.Delete(ctx, stored.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted count: got %d, want 1", n)
	}

	// The index goes stale on delete; rebuild is the compensation.
	g, err := groups.Get(ctx, "sec101")
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if !g.HasArticleID(stored.ID) {
		t.Errorf("index unexpectedly cleaned on delete")
	}
	g2, err := groups.RebuildArticleIndex(ctx, "sec101")
	if err != nil {
		t.Fatalf("RebuildArticleIndex: %v", err)
	}
	if len(g2.ArticleIDs) != 0 {
		t.Errorf("rebuilt index: got %v, want empty", g2.ArticleIDs)
	}
}

func TestTitleExists(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := testutil.Context(t)

	if _, err := store.Register(ctx, sampleArticle()); err != nil {
		t.Fatalf("Register: %v", err)
	}

	ok, err := store.TitleExists(ctx, "INTRO TO SOCKETS")
	if err != nil {
		t.Fatalf("TitleExists: %v", err)
	}
	if !ok {
		t.Errorf("case-folded title not found")
	}

	ok, err = store.TitleExists(ctx, "No Such Title")
	if err != nil {
		t.Fatalf("TitleExists: %v", err)
	}
	if ok {
		t.Errorf("unexpected title match")
	}
}
