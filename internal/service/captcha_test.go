package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecaptchaVerifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "shh", r.PostForm.Get("secret"))
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("response") == "good" {
			_, _ = w.Write([]byte(`{"success":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	}))
	defer srv.Close()

	v := NewRecaptchaVerifier("shh", testLogger())
	v.url = srv.URL
	ctx := context.Background()

	ok, err := v.Verify(ctx, "good")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.Verify(ctx, "bad")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = v.Verify(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecaptchaVerifier_NoSecret(t *testing.T) {
	v := NewRecaptchaVerifier("", testLogger())

	ok, err := v.Verify(context.Background(), "anything")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.Verify(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, ok)
}
