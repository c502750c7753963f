package apperr

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindSurvivesWrapping(t *testing.T) {
	err := errors.Wrap(NotFound("投稿が見つかりませんでした"), "load post")

	assert.True(t, Is(err, ErrNotFound))
	assert.Equal(t, ErrNotFound, Kind(err))
	assert.Equal(t, http.StatusNotFound, Status(err))
	assert.Equal(t, "投稿が見つかりませんでした", Message(err))
}

func TestStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, Status(Validation("bad")))
	assert.Equal(t, http.StatusUnprocessableEntity, Status(Parse("bad json")))
	assert.Equal(t, http.StatusBadGateway, Status(Remote(errors.New("boom"), "store")))
	assert.Equal(t, http.StatusForbidden, Status(New(ErrForbidden, "no")))
	assert.Equal(t, http.StatusConflict, Status(Conflict("taken")))
	assert.Equal(t, http.StatusInternalServerError, Status(errors.New("plain")))
}

func TestMessageHidesUnclassified(t *testing.T) {
	assert.Equal(t, "Internal server error", Message(errors.New("secret detail")))
	assert.Equal(t, "store: boom", Message(Remote(errors.New("boom"), "store")))
	assert.Nil(t, Remote(nil, "store"))
}
