package pkg

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{BadRequest("x"), http.StatusBadRequest},
		{Unauthorized("x"), http.StatusUnauthorized},
		{Forbidden("x"), http.StatusForbidden},
		{NotFound("x"), http.StatusNotFound},
		{Conflict("x"), http.StatusConflict},
		{Internal("x", errors.New("db down")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestConflictIsBadRequest(t *testing.T) {
	err := Conflict("community name already taken")

	assert.True(t, IsKind(err, KindConflict))
	assert.True(t, IsKind(err, KindBadRequest))
	assert.False(t, IsKind(BadRequest("x"), KindConflict))
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("respond: %w", Forbidden("not your notification"))

	assert.True(t, IsKind(err, KindForbidden))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(err))
	assert.Equal(t, "not your notification", PublicMessage(err))
}

func TestPublicMessageHidesInternals(t *testing.T) {
	assert.Equal(t, "internal server error", PublicMessage(Internal("load", errors.New("dial tcp 10.0.0.1"))))
	assert.Equal(t, "internal server error", PublicMessage(errors.New("boom")))
}
