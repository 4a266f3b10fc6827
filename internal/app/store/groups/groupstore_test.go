package groupstore

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/dalemusser/helphub/internal/domain/models"
	"github.com/dalemusser/helphub/internal/testutil"
)

func TestCreateSeedsCreatorAsAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.Context(t)
	store := New(db)

	g, err := store.Create(ctx, "csc440", "alice")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !g.HasMember(models.TierAdmin, "alice") {
		t.Errorf("creator not in admins: %v", g.Admins)
	}

	got, err := store.Get(ctx, "csc440")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.HasMember(models.TierAdmin, "alice") {
		t.Errorf("persisted group missing creator admin: %v", got.Admins)
	}
}

func TestCreateDuplicateName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.Context(t)
	store := New(db)

	if _, err := store.Create(ctx, "csc440", "alice"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := store.Create(ctx, "csc440", "bob")
	if !errors.Is(err, ErrDuplicateName) {
		t.Errorf("duplicate create: got %v, want ErrDuplicateName", err)
	}
}

func TestCreateRequiresNameAndCreator(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.Context(t)
	store := New(db)

	if _, err := store.Create(ctx, "", "alice"); err == nil {
		t.Errorf("expected error for empty name")
	}
	if _, err := store.Create(ctx, "csc440", ""); err == nil {
		t.Errorf("expected error for empty creator")
	}
}

func TestGetNotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.Context(t)
	store := New(db)

	_, err := store.Get(ctx, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestMembershipSetsPersistAsText(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.Context(t)
	store := New(db)

	if _, err := store.Create(ctx, "csc440", "alice"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.AddMember(ctx, "csc440", models.TierStudent, "carol"); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if _, err := store.AddMember(ctx, "csc440", models.TierStudent, "bob"); err != nil {
		t.Fatalf("AddMember: %v", err)
	}

	var raw bson.M
	if err := db.Collection("groups").FindOne(ctx, bson.M{"_id": "csc440"}).Decode(&raw); err != nil {
		t.Fatalf("raw find: %v", err)
	}
	if got := raw["students"]; got != "bob,carol" {
		t.Errorf("students field: got %v, want %q", got, "bob,carol")
	}
	if got := raw["admins"]; got != "alice" {
		t.Errorf("admins field: got %v, want %q", got, "alice")
	}
}

func TestAddMemberIsIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.Context(t)
	store := New(db)

	if _, err := store.Create(ctx, "csc440", "alice"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.AddMember(ctx, "csc440", models.TierStudent, "bob"); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	g, err := store.AddMember(ctx, "csc440", models.TierStudent, "bob")
	if err != nil {
		t.Fatalf("AddMember repeat: %v", err)
	}
	if len(g.Students) != 1 {
		t.Errorf("students: got %v, want single entry", g.Students)
	}
}

func TestFirstInstructorPromotedToInstructorAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.Context(t)
	store := New(db)

	if _, err := store.Create(ctx, "csc440", "alice"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	g, err := store.AddMember(ctx, "csc440", models.TierInstructor, "ivan")
	if err != nil {
		t.Fatalf("AddMember instructor: %v", err)
	}
	if !g.HasMember(models.TierInstructorAdmin, "ivan") {
		t.Errorf("first instructor not promoted: %v", g.InstructorAdmins)
	}

	g, err = store.AddMember(ctx, "csc440", models.TierInstructor, "judy")
	if err != nil {
		t.Fatalf("AddMember second instructor: %v", err)
	}
	if g.HasMember(models.TierInstructorAdmin, "judy") {
		t.Errorf("second instructor should not be promoted: %v", g.InstructorAdmins)
	}
}

func TestRemoveLastAdminRefused(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.Context(t)
	store := New(db)

	if _, err := store.Create(ctx, "csc440", "alice"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err := store.RemoveMember(ctx, "csc440", models.TierAdmin, "alice")
	if !errors.Is(err, ErrLastAdmin) {
		t.Fatalf("got %v, want ErrLastAdmin", err)
	}

	g, err := store.Get(ctx, "csc440")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !g.HasMember(models.TierAdmin, "alice") {
		t.Errorf("refused removal still changed the group: %v", g.Admins)
	}
}

func TestRemoveLastInstructorAdminRefused(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.Context(t)
	store := New(db)

	if _, err := store.Create(ctx, "csc440", "alice"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.AddMember(ctx, "csc440", models.TierInstructor, "ivan"); err != nil {
		t.Fatalf("AddMember: %v", err)
	}

	_, err := store.RemoveMember(ctx, "csc440", models.TierInstructorAdmin, "ivan")
	if !errors.Is(err, ErrLastInstructorAdmin) {
		t.Errorf("got %v, want ErrLastInstructorAdmin", err)
	}
}

func TestRemoveMemberWithRemaining(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.Context(t)
	store := New(db)

	if _, err := store.Create(ctx, "csc440", "alice"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.AddMember(ctx, "csc440", models.TierAdmin, "bob"); err != nil {
		t.Fatalf("AddMember: %v", err)
	}

	g, err := store.RemoveMember(ctx, "csc440", models.TierAdmin, "alice")
	if err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	if g.HasMember(models.TierAdmin, "alice") {
		t.Errorf("alice still admin: %v", g.Admins)
	}
	if !g.HasMember(models.TierAdmin, "bob") {
		t.Errorf("bob removed unexpectedly: %v", g.Admins)
	}
}

func TestRemoveAbsentMemberIsNoop(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.Context(t)
	store := New(db)

	if _, err := store.Create(ctx, "csc440", "alice"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	g, err := store.RemoveMember(ctx, "csc440", models.TierStudent, "nobody")
	if err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	if len(g.Students) != 0 {
		t.Errorf("students changed: %v", g.Students)
	}
}

func TestGetForUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.Context(t)
	store := New(db)

	if _, err := store.Create(ctx, "csc440", "alice"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Create(ctx, "csc325", "bob"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.AddMember(ctx, "csc325", models.TierStudent, "alice"); err != nil {
		t.Fatalf("AddMember: %v", err)
	}

	groups, err := store.GetForUser(ctx, "alice")
	if err != nil {
		t.Fatalf("GetForUser: %v", err)
	}
	if len(groups) != 2 {
		t.Errorf("alice groups: got %d, want 2", len(groups))
	}

	groups, err = store.GetForUser(ctx, "bob")
	if err != nil {
		t.Fatalf("GetForUser: %v", err)
	}
	if len(groups) != 1 || groups[0].Name != "csc325" {
		t.Errorf("bob groups: got %v", groups)
	}
}

func TestDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.Context(t)
	store := New(db)

	if _, err := store.Create(ctx, "csc440", "alice"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	n, err := store.Delete(ctx, "csc440")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted count: got %d, want 1", n)
	}
	if _, err := store.Get(ctx, "csc440"); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted group still found: %v", err)
	}

	n, err = store.Delete(ctx, "csc440")
	if err != nil {
		t.Fatalf("Delete repeat: %v", err)
	}
	if n != 0 {
		t.Errorf("repeat deleted count: got %d, want 0", n)
	}
}

func TestArticleIDIndex(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.Context(t)
	store := New(db)

	if _, err := store.Create(ctx, "csc440", "alice"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.AddArticleID(ctx, "csc440", 7); err != nil {
		t.Fatalf("AddArticleID: %v", err)
	}
	if err := store.AddArticleID(ctx, "csc440", 3); err != nil {
		t.Fatalf("AddArticleID: %v", err)
	}
	if err := store.AddArticleID(ctx, "csc440", 7); err != nil {
		t.Fatalf("AddArticleID repeat: %v", err)
	}

	g, err := store.Get(ctx, "csc440")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(g.ArticleIDs) != 2 || g.ArticleIDs[0] != 3 || g.ArticleIDs[1] != 7 {
		t.Errorf("article ids: got %v, want [3 7]", g.ArticleIDs)
	}

	if err := store.RemoveArticleID(ctx, "csc440", 7); err != nil {
		t.Fatalf("RemoveArticleID: %v", err)
	}
	g, err = store.Get(ctx, "csc440")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(g.ArticleIDs) != 1 || g.ArticleIDs[0] != 3 {
		t.Errorf("article ids after remove: got %v, want [3]", g.ArticleIDs)
	}

	// Missing groups are tolerated so article writes never fail on index upkeep.
	if err := store.AddArticleID(ctx, "missing", 1); err != nil {
		t.Errorf("AddArticleID missing group: %v", err)
	}
	if err := store.RemoveArticleID(ctx, "missing", 1); err != nil {
		t.Errorf("RemoveArticleID missing group: %v", err)
	}
}

func TestRebuildArticleIndex(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.Context(t)
	store := New(db)

	if _, err := store.Create(ctx, "csc440", "alice"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	// Stale entry that no stored article backs.
	if err := store.AddArticleID(ctx, "csc440", 99); err != nil {
		t.Fatalf("AddArticleID: %v", err)
	}

	articles := db.Collection("articles")
	for _, id := range []int64{4, 2} {
		if _, err := articles.InsertOne(ctx, bson.M{"_id": id, "group_name": "csc440"}); err != nil {
			t.Fatalf("insert article doc: %v", err)
		}
	}
	if _, err := articles.InsertOne(ctx, bson.M{"_id": int64(5), "group_name": "other"}); err != nil {
		t.Fatalf("insert article doc: %v", err)
	}

	g, err := store.RebuildArticleIndex(ctx, "csc440")
	if err != nil {
		t.Fatalf("RebuildArticleIndex: %v", err)
	}
	if len(g.ArticleIDs) != 2 || g.ArticleIDs[0] != 2 || g.ArticleIDs[1] != 4 {
		t.Errorf("rebuilt index: got %v, want [2 4]", g.ArticleIDs)
	}

	if _, err := store.RebuildArticleIndex(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("rebuild missing group: got %v, want ErrNotFound", err)
	}
}
