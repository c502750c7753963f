package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/m-sorano/ai-cafe/internal/apperr"
	"github.com/m-sorano/ai-cafe/internal/db"
	"github.com/m-sorano/ai-cafe/internal/knowledge"
	"github.com/m-sorano/ai-cafe/internal/models"
)

const maxRelatedCards = 3

// KnowledgeHandler serves knowledge cards and creates them from posts.
type KnowledgeHandler struct {
	repo      *db.Repository
	generator *knowledge.Generator
	log       *zap.Logger
}

func NewKnowledgeHandler(repo *db.Repository, generator *knowledge.Generator, log *zap.Logger) *KnowledgeHandler {
	return &KnowledgeHandler{repo: repo, generator: generator, log: log}
}

// Cards lists cards, optionally filtered by tag and search term.
func (h *KnowledgeHandler) Cards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.repo.ListKnowledgeCards(r.Context())
	if err != nil {
		handleError(w, h.log, err, "failed to load knowledge cards")
		return
	}

	tag := strings.TrimSpace(r.URL.Query().Get("tag"))
	term := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))

	out := make([]*models.KnowledgeCard, 0, len(cards))
	for _, c := range cards {
		if tag != "" && !c.Tags.Contains(tag) {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(c.Title), term) && !strings.Contains(strings.ToLower(c.Content), term) {
			continue
		}
		out = append(out, c)
	}
	writeJSON(w, http.StatusOK, out)
}

// Card returns one card with its source post and related cards.
func (h *KnowledgeHandler) Card(w http.ResponseWriter, r *http.Request) {
	card, err := h.repo.GetKnowledgeCard(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleError(w, h.log, err, "failed to load knowledge card")
		return
	}
	view := &models.KnowledgeCardView{KnowledgeCard: *card, Related: []*models.KnowledgeCard{}}

	if card.SourcePostID != nil {
		post, err := h.repo.GetPost(r.Context(), *card.SourcePostID)
		switch {
		case err == nil:
			view.SourcePost = post
		case !apperr.Is(err, apperr.ErrNotFound):
			handleError(w, h.log, err, "failed to load source post")
			return
		}
	}

	all, err := h.repo.ListKnowledgeCards(r.Context())
	if err != nil {
		handleError(w, h.log, err, "failed to load related cards")
		return
	}
	view.Related = relatedCards(card, all)

	writeJSON(w, http.StatusOK, view)
}

// relatedCards returns up to three other cards carrying all of card's tags.
func relatedCards(card *models.KnowledgeCard, all []*models.KnowledgeCard) []*models.KnowledgeCard {
	related := []*models.KnowledgeCard{}
	for _, c := range all {
		if c.ID == card.ID || !c.Tags.Contains(card.Tags...) {
			continue
		}
		related = append(related, c)
		if len(related) == maxRelatedCards {
			break
		}
	}
	return related
}

// CreateCard stores a card with the supplied or default fields.
func (h *KnowledgeHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var in knowledge.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		handleError(w, h.log, err, "invalid knowledge card body")
		return
	}

	card, err := h.generator.Create(r.Context(), in)
	if err != nil {
		handleError(w, h.log, err, "failed to create knowledge card")
		return
	}
	writeJSON(w, http.StatusOK, success(map[string]interface{}{"data": card}))
}

// Generate summarizes a post into a new card.
func (h *KnowledgeHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var in struct {
		PostID string `json:"postId"`
	}
	if err := decodeJSON(r, &in); err != nil {
		handleError(w, h.log, err, "invalid generate body")
		return
	}
	if strings.TrimSpace(in.PostID) == "" {
		handleError(w, h.log, apperr.Validation("投稿IDが必要です"), "missing post id")
		return
	}

	card, err := h.generator.Generate(r.Context(), in.PostID)
	if err != nil {
		handleError(w, h.log, err, "failed to generate knowledge card")
		return
	}
	writeJSON(w, http.StatusOK, success(map[string]interface{}{"data": card}))
}
