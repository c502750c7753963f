package handlers

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/m-sorano/ai-cafe/internal/apperr"
	"github.com/m-sorano/ai-cafe/internal/category"
	"github.com/m-sorano/ai-cafe/internal/db"
	"github.com/m-sorano/ai-cafe/internal/middleware"
	"github.com/m-sorano/ai-cafe/internal/models"
)

const maxPostRunes = 5000

// PostHandler handles requests related to posts.
type PostHandler struct {
	repo *db.Repository
	log  *zap.Logger
}

// NewPostHandler creates a new PostHandler.
func NewPostHandler(repo *db.Repository, log *zap.Logger) *PostHandler {
	return &PostHandler{repo: repo, log: log}
}

type postInput struct {
	Content  string  `json:"content"`
	Category *string `json:"category"`
}

type postDetail struct {
	*models.PostView
	Comments  []*models.CommentView   `json:"comments"`
	Reactions []*models.Reaction      `json:"reactions"`
	Knowledge []*models.KnowledgeCard `json:"knowledge_cards"`
}

// Posts lists posts, filtered by category key, search term and author.
func (h *PostHandler) Posts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	posts, err := h.repo.ListPosts(r.Context(), db.PostFilter{UserID: q.Get("user_id")})
	if err != nil {
		handleError(w, h.log, err, "failed to load posts")
		return
	}
	resolver, err := loadResolver(r.Context(), h.repo)
	if err != nil {
		handleError(w, h.log, err, "failed to load categories")
		return
	}

	key := q.Get("category")
	term := strings.ToLower(strings.TrimSpace(q.Get("q")))

	out := make([]*models.PostView, 0, len(posts))
	for _, p := range posts {
		if !resolver.Matches(&p.Post, key) || !matchesSearch(p, term) {
			continue
		}
		decorate(resolver, p)
		out = append(out, p)
	}
	writeJSON(w, http.StatusOK, out)
}

func matchesSearch(p *models.PostView, term string) bool {
	if term == "" {
		return true
	}
	if strings.Contains(strings.ToLower(p.Content), term) {
		return true
	}
	return p.AuthorName != nil && strings.Contains(strings.ToLower(*p.AuthorName), term)
}

func decorate(resolver *category.Resolver, p *models.PostView) {
	p.CategoryKey = resolver.PostKey(&p.Post)
	p.CategoryLabel = resolver.PostLabel(&p.Post)
}

// Post returns one post with its comments, reactions and knowledge cards.
func (h *PostHandler) Post(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["id"]
	post, err := h.repo.GetPost(r.Context(), postID)
	if err != nil {
		handleError(w, h.log, err, "failed to load post")
		return
	}
	resolver, err := loadResolver(r.Context(), h.repo)
	if err != nil {
		handleError(w, h.log, err, "failed to load categories")
		return
	}
	decorate(resolver, post)

	comments, err := h.repo.ListComments(r.Context(), postID)
	if err != nil {
		handleError(w, h.log, err, "failed to load comments")
		return
	}
	reactions, err := h.repo.ListReactions(r.Context(), postID)
	if err != nil {
		handleError(w, h.log, err, "failed to load reactions")
		return
	}
	cards, err := h.repo.ListKnowledgeCardsBySource(r.Context(), postID)
	if err != nil {
		handleError(w, h.log, err, "failed to load knowledge cards")
		return
	}

	writeJSON(w, http.StatusOK, postDetail{
		PostView:  post,
		Comments:  nonNil(comments),
		Reactions: nonNil(reactions),
		Knowledge: nonNil(cards),
	})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// CreatePost creates a post for the current user.
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var in postInput
	if err := decodeJSON(r, &in); err != nil {
		handleError(w, h.log, err, "invalid post body")
		return
	}
	if err := h.validate(r, &in); err != nil {
		handleError(w, h.log, err, "invalid post")
		return
	}

	post := &models.Post{UserID: userID, Content: in.Content, Category: in.Category}
	if err := h.repo.CreatePost(r.Context(), post); err != nil {
		handleError(w, h.log, err, "failed to create post")
		return
	}

	view, err := h.repo.GetPost(r.Context(), post.ID)
	if err != nil {
		handleError(w, h.log, err, "failed to load created post")
		return
	}
	if resolver, err := loadResolver(r.Context(), h.repo); err == nil {
		decorate(resolver, view)
	}

	h.log.Info("post created", zap.String("post_id", post.ID), zap.String("user_id", userID))
	writeJSON(w, http.StatusCreated, view)
}

func (h *PostHandler) validate(r *http.Request, in *postInput) error {
	in.Content = strings.TrimSpace(in.Content)
	if in.Content == "" {
		return apperr.Validation("投稿内容を入力してください")
	}
	if utf8.RuneCountInString(in.Content) > maxPostRunes {
		return apperr.Validation("投稿内容は5000文字以内で入力してください")
	}
	if in.Category != nil && *in.Category == "" {
		in.Category = nil
	}
	if in.Category != nil {
		exists, err := h.repo.CategoryExists(r.Context(), *in.Category)
		if err != nil {
			return err
		}
		if !exists {
			return apperr.Validation("存在しないカテゴリーが選択されました")
		}
	}
	return nil
}

// authorOnly loads a post and checks the current user wrote it.
func (h *PostHandler) authorOnly(r *http.Request) (*models.Post, error) {
	post, err := h.repo.GetPostByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		return nil, err
	}
	if post.UserID != middleware.UserID(r.Context()) {
		return nil, apperr.New(apperr.ErrForbidden, "この投稿を変更する権限がありません")
	}
	return post, nil
}

// EditPost updates the content and category of the current user's post.
func (h *PostHandler) EditPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.authorOnly(r)
	if err != nil {
		handleError(w, h.log, err, "cannot edit post")
		return
	}

	var in postInput
	if err := decodeJSON(r, &in); err != nil {
		handleError(w, h.log, err, "invalid post body")
		return
	}
	if err := h.validate(r, &in); err != nil {
		handleError(w, h.log, err, "invalid post")
		return
	}

	if err := h.repo.UpdatePost(r.Context(), post.ID, in.Content, in.Category); err != nil {
		handleError(w, h.log, err, "failed to update post")
		return
	}
	view, err := h.repo.GetPost(r.Context(), post.ID)
	if err != nil {
		handleError(w, h.log, err, "failed to load updated post")
		return
	}
	if resolver, err := loadResolver(r.Context(), h.repo); err == nil {
		decorate(resolver, view)
	}
	writeJSON(w, http.StatusOK, view)
}

// DeletePost removes the current user's post with its comments and reactions.
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	post, err := h.authorOnly(r)
	if err != nil {
		handleError(w, h.log, err, "cannot delete post")
		return
	}
	if err := h.repo.DeletePost(r.Context(), post.ID); err != nil {
		handleError(w, h.log, err, "failed to delete post")
		return
	}
	h.log.Info("post deleted", zap.String("post_id", post.ID))
	writeJSON(w, http.StatusOK, success(nil))
}
