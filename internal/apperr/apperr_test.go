package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAs_ClassifiedErrorSurvivesWrapping(t *testing.T) {
	base := NotFound(http.StatusUnauthorized, "Niepoprawny kod")
	wrapped := fmt.Errorf("redeem: %w", base)

	got := As(wrapped)
	assert.Same(t, base, got)
	assert.True(t, IsKind(wrapped, KindNotFound))
	assert.False(t, IsKind(wrapped, KindConflict))
}

func TestAs_UnclassifiedBecomesInternal(t *testing.T) {
	cause := errors.New("disk on fire")

	got := As(cause)
	assert.Equal(t, KindInternal, got.Kind)
	assert.Equal(t, http.StatusInternalServerError, got.Code)
	assert.NotContains(t, got.Message, "disk")
	assert.ErrorIs(t, got, cause)
}

func TestConnectivity_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Connectivity(http.StatusBadRequest, "rcon down", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindConnectivity, err.Kind)
	assert.Contains(t, err.Error(), "connection refused")
}
