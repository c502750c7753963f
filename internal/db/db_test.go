package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m-sorano/ai-cafe/internal/apperr"
	"github.com/m-sorano/ai-cafe/internal/config"
	"github.com/m-sorano/ai-cafe/internal/models"
)

func setupTestRepo(t *testing.T) *Repository {
	t.Helper()
	cfg := &config.Config{}
	cfg.Database.Driver = DriverSQLite
	cfg.Database.DSN = ":memory:"

	repo, err := NewRepository(cfg)
	require.NoError(t, err, "create repository")
	require.NoError(t, repo.RunMigrations(), "run migrations")
	t.Cleanup(func() { repo.Close() })
	return repo
}

func createTestUser(t *testing.T, repo *Repository, email string) *models.User {
	t.Helper()
	ctx := context.Background()
	user := &models.User{Email: email}
	require.NoError(t, repo.CreateUser(ctx, user, "password123"))
	name := email
	require.NoError(t, repo.CreateProfile(ctx, &models.Profile{ID: user.ID, Email: &email, Name: &name}))
	return user
}

func createTestPost(t *testing.T, repo *Repository, userID, content string, category *string) *models.Post {
	t.Helper()
	post := &models.Post{UserID: userID, Content: content, Category: category}
	require.NoError(t, repo.CreatePost(context.Background(), post))
	return post
}

func strPtr(s string) *string { return &s }

func TestCreateUser(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	user := &models.User{Email: "Test@Example.com"}
	require.NoError(t, repo.CreateUser(ctx, user, "password123"))

	got, err := repo.GetUserByEmail(ctx, "test@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, models.RoleUser, got.Role)
	assert.True(t, CheckPassword(got, "password123"))
	assert.False(t, CheckPassword(got, "wrong"))

	taken, err := repo.IsEmailTaken(ctx, "TEST@example.com")
	require.NoError(t, err)
	assert.True(t, taken)

	_, err = repo.GetUserByEmail(ctx, "nobody@example.com")
	assert.True(t, apperr.Is(err, apperr.ErrNotFound))
}

func TestCreateUserDuplicateEmailIsConflict(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateUser(ctx, &models.User{Email: "taro@example.com"}, "password123"))
	err := repo.CreateUser(ctx, &models.User{Email: "Taro@Example.com"}, "password123")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ErrConflict))
	assert.False(t, apperr.Is(err, apperr.ErrRemoteService))
}

func TestSessions(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	user := createTestUser(t, repo, "s@example.com")

	live := &models.Session{SessionID: "live", UserID: user.ID, Expires: time.Now().Add(time.Hour)}
	expired := &models.Session{SessionID: "expired", UserID: user.ID, Expires: time.Now().Add(-time.Hour)}
	require.NoError(t, repo.CreateSession(ctx, live))
	require.NoError(t, repo.CreateSession(ctx, expired))

	got, err := repo.GetSession(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.UserID)

	_, err = repo.GetSession(ctx, "expired")
	assert.True(t, apperr.Is(err, apperr.ErrNotFound))

	require.NoError(t, repo.CleanExpiredSessions(ctx))
	require.NoError(t, repo.DeleteSession(ctx, "live"))
	_, err = repo.GetSession(ctx, "live")
	assert.Error(t, err)
}

func TestSeedCategoriesOnlyWhenEmpty(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	first, err := repo.SeedCategories(ctx)
	require.NoError(t, err)
	require.Len(t, first, 6)

	second, err := repo.SeedCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, second, 6)
	assert.Equal(t, first[0].ID, second[0].ID)
}

func TestCreatePostListing(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	user := createTestUser(t, repo, "a@example.com")

	require.NoError(t, repo.CreateCategory(ctx, &models.Category{ID: "C1", Name: "[初心者向け] AIはじめの一歩"}))
	post := createTestPost(t, repo, user.ID, "AIとは何か", strPtr("C1"))

	posts, err := repo.ListPosts(ctx, PostFilter{})
	require.NoError(t, err)
	require.Len(t, posts, 1)

	got := posts[0]
	assert.Equal(t, post.ID, got.ID)
	require.NotNil(t, got.Category)
	assert.Equal(t, "C1", *got.Category)
	assert.Equal(t, 0, got.CommentCount)
	assert.Equal(t, 0, got.ReactionCount)
	assert.Equal(t, user.ID, got.AuthorID)
	require.NotNil(t, got.AuthorName)
	assert.Equal(t, "a@example.com", *got.AuthorName)

	mine, err := repo.ListPosts(ctx, PostFilter{UserID: "someone-else"})
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestCreatePostRequiresProfile(t *testing.T) {
	repo := setupTestRepo(t)
	err := repo.CreatePost(context.Background(), &models.Post{UserID: "ghost", Content: "hello"})
	assert.True(t, apperr.Is(err, apperr.ErrRemoteService))
}

func TestUpdatePost(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	user := createTestUser(t, repo, "u@example.com")
	post := createTestPost(t, repo, user.ID, "before", nil)

	require.NoError(t, repo.UpdatePost(ctx, post.ID, "after", strPtr("C9")))
	got, err := repo.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Content)
	assert.NotNil(t, got.UpdatedAt)

	err = repo.UpdatePost(ctx, "missing", "x", nil)
	assert.True(t, apperr.Is(err, apperr.ErrNotFound))
}

func TestCreateComment(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	user := createTestUser(t, repo, "b@example.com")
	post := createTestPost(t, repo, user.ID, "Hello", nil)

	comment, err := repo.CreateComment(ctx, &models.Comment{PostID: post.ID, UserID: user.ID, Content: "Nice!"})
	require.NoError(t, err)
	assert.Equal(t, "Nice!", comment.Content)
	assert.Equal(t, user.ID, comment.AuthorID)

	comments, err := repo.ListComments(ctx, post.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 1)

	view, err := repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.CommentCount)

	require.NoError(t, repo.DeleteComment(ctx, comment.ID))
	assert.True(t, apperr.Is(repo.DeleteComment(ctx, comment.ID), apperr.ErrNotFound))
}

func TestToggleReactionSameTypeRemoves(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	user := createTestUser(t, repo, "c@example.com")
	post := createTestPost(t, repo, user.ID, "Hello", nil)

	r, err := repo.ToggleReaction(ctx, user.ID, post.ID, models.ReactionHeart)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, models.ReactionHeart, r.Type)

	r, err = repo.ToggleReaction(ctx, user.ID, post.ID, models.ReactionHeart)
	require.NoError(t, err)
	assert.Nil(t, r)

	n, err := repo.CountReactions(ctx, user.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestToggleReactionDifferentTypeReplaces(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	user := createTestUser(t, repo, "d@example.com")
	post := createTestPost(t, repo, user.ID, "Hello", nil)

	_, err := repo.ToggleReaction(ctx, user.ID, post.ID, models.ReactionHeart)
	require.NoError(t, err)
	r, err := repo.ToggleReaction(ctx, user.ID, post.ID, models.ReactionBookmark)
	require.NoError(t, err)
	require.NotNil(t, r)

	n, err := repo.CountReactions(ctx, user.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := repo.GetReaction(ctx, user.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReactionBookmark, got.Type)

	view, err := repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.BookmarkCount)
	assert.Equal(t, 0, view.HeartCount)
}

func TestDeletePostCascades(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	author := createTestUser(t, repo, "e@example.com")
	other := createTestUser(t, repo, "f@example.com")
	post := createTestPost(t, repo, author.ID, "Hello", nil)

	_, err := repo.CreateComment(ctx, &models.Comment{PostID: post.ID, UserID: other.ID, Content: "hi"})
	require.NoError(t, err)
	_, err = repo.ToggleReaction(ctx, other.ID, post.ID, models.ReactionHeart)
	require.NoError(t, err)

	card := &models.KnowledgeCard{Title: "t", Content: "c", Tags: models.Tags{"AI"}, SourcePostID: &post.ID}
	require.NoError(t, repo.CreateKnowledgeCard(ctx, card))

	require.NoError(t, repo.DeletePost(ctx, post.ID))

	comments, err := repo.ListComments(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)

	reactions, err := repo.ListReactions(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, reactions)

	got, err := repo.GetKnowledgeCard(ctx, card.ID)
	require.NoError(t, err)
	assert.Nil(t, got.SourcePostID)
	assert.Equal(t, models.Tags{"AI"}, got.Tags)

	assert.True(t, apperr.Is(repo.DeletePost(ctx, post.ID), apperr.ErrNotFound))
}

func TestKnowledgeCardsAreNotDeduplicated(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	user := createTestUser(t, repo, "g@example.com")
	post := createTestPost(t, repo, user.ID, "Hello", nil)

	for i := 0; i < 2; i++ {
		require.NoError(t, repo.CreateKnowledgeCard(ctx, &models.KnowledgeCard{Title: "t", Content: "c", SourcePostID: &post.ID}))
	}
	cards, err := repo.ListKnowledgeCardsBySource(ctx, post.ID)
	require.NoError(t, err)
	assert.Len(t, cards, 2)
	assert.Equal(t, models.Tags{}, cards[0].Tags)
}

func TestUpsertProfileKeepsAvatar(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	user := createTestUser(t, repo, "h@example.com")

	require.NoError(t, repo.UpdateAvatar(ctx, user.ID, "https://cdn.example.com/a.png"))
	require.NoError(t, repo.UpsertProfile(ctx, &models.Profile{ID: user.ID, Name: strPtr("Hana"), Bio: strPtr("bio")}))

	p, err := repo.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hana", *p.Name)
	assert.Equal(t, "https://cdn.example.com/a.png", *p.AvatarURL)
	assert.NotNil(t, p.UpdatedAt)
}

func TestListUsersWithoutProfile(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	createTestUser(t, repo, "with@example.com")
	orphan := &models.User{Email: "orphan@example.com"}
	require.NoError(t, repo.CreateUser(ctx, orphan, "password123"))

	users, err := repo.ListUsersWithoutProfile(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, orphan.ID, users[0].ID)
}

func TestBackfillProfiles(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	createTestUser(t, repo, "with@example.com")
	orphan := &models.User{Email: "taro.yamada@example.com"}
	require.NoError(t, repo.CreateUser(ctx, orphan, "password123"))

	n, err := repo.BackfillProfiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	p, err := repo.GetProfile(ctx, orphan.ID)
	require.NoError(t, err)
	assert.Equal(t, "taro.yamada", *p.Name)
	assert.Equal(t, "https://ui-avatars.com/api/?name=taro.yamada&background=random", *p.AvatarURL)

	n, err = repo.BackfillProfiles(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestExecuteSQL(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	res, err := repo.ExecuteSQL(ctx, "INSERT INTO category (id, name) VALUES ('x', '[雑談・交流] test')")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.RowsAffected)

	res, err = repo.ExecuteSQL(ctx, "SELECT id, name FROM category")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "x", res.Rows[0]["id"])

	_, err = repo.ExecuteSQL(ctx, "SELEC nonsense")
	assert.True(t, apperr.Is(err, apperr.ErrRemoteService))

	_, err = repo.ExecuteSQL(ctx, "  ")
	assert.True(t, apperr.Is(err, apperr.ErrValidation))
}

type brokenResult struct{}

func (brokenResult) LastInsertId() (int64, error) { return 0, nil }
func (brokenResult) RowsAffected() (int64, error) { return 0, errors.New("driver does not report rows") }

func TestExecResultReportsRowsAffectedError(t *testing.T) {
	_, err := execResult(brokenResult{})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ErrRemoteService))

	res, err := execResult(driverResult(3))
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.RowsAffected)
}

type driverResult int64

func (r driverResult) LastInsertId() (int64, error) { return 0, nil }
func (r driverResult) RowsAffected() (int64, error) { return int64(r), nil }

func TestSplitStatementsAndScript(t *testing.T) {
	script := `
-- create a helper table
CREATE TABLE notes (id TEXT);
INSERT INTO notes (id) VALUES ('a');

-- this one fails
INSERT INTO missing_table VALUES (1);
INSERT INTO notes (id) VALUES ('b');
`
	stmts := SplitStatements(script)
	require.Len(t, stmts, 4)
	assert.Equal(t, "CREATE TABLE notes (id TEXT)", stmts[0])

	repo := setupTestRepo(t)
	res := repo.ExecuteScript(context.Background(), script)
	assert.Equal(t, 3, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Error(), "statement 3")
}
