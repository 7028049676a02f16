package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("submit: %w", Validation("latitude %v out of range", 91))
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
	assert.True(t, IsClient(err))
	assert.Contains(t, err.Error(), "latitude 91 out of range")
}

func TestUnderlyingCauseIsKept(t *testing.T) {
	cause := errors.New("connection refused")
	err := Persistence("create", cause)
	assert.True(t, errors.Is(err, ErrPersistence))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, IsClient(err))

	up := Upload(cause)
	assert.Equal(t, KindUpload, KindOf(up))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(up))
}

func TestStatusTable(t *testing.T) {
	cases := map[error]int{
		NotFound("x"):                   http.StatusNotFound,
		Unauthorized("no session"):      http.StatusUnauthorized,
		Forbidden("not an admin"):       http.StatusForbidden,
		InvalidTransition("a", "b"):     http.StatusConflict,
		errors.New("something strange"): http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, HTTPStatus(err), err.Error())
	}
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}
