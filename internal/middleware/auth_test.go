package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperatorAuth_WithValidToken(t *testing.T) {
	a := NewOperatorAuth("test-secret")

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		name, ok := OperatorFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, "dispatcher.one", name)
	})

	r := httptest.NewRequest(http.MethodGet, "/api/accounts/1", nil)
	r.Header.Set("Authorization", "Bearer "+a.Sign("dispatcher.one"))

	a.Middleware(next).ServeHTTP(httptest.NewRecorder(), r)

	assert.True(t, nextCalled)
}

func TestOperatorAuth_Rejects(t *testing.T) {
	a := NewOperatorAuth("test-secret")
	other := NewOperatorAuth("other-secret")

	tests := []struct {
		name   string
		header string
	}{
		{name: "no header", header: ""},
		{name: "not bearer", header: "Basic " + a.Sign("ops")},
		{name: "foreign signature", header: "Bearer " + other.Sign("ops")},
		{name: "tampered name", header: "Bearer admin." + a.signature("ops")},
		{name: "no signature", header: "Bearer ops."},
		{name: "no dot", header: "Bearer ops"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatalf("next handler should not be called")
			})

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/accounts/1", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			a.Middleware(next).ServeHTTP(w, r)

			assert.Equal(t, http.StatusUnauthorized, w.Result().StatusCode)
		})
	}
}

func TestOperatorAuth_DisabledWithoutSecret(t *testing.T) {
	a := NewOperatorAuth("")
	assert.False(t, a.Enabled())

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called")
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/accounts/1", nil)
	r.Header.Set("Authorization", "Bearer "+a.Sign("ops"))

	a.Middleware(next).ServeHTTP(w, r)

	assert.Equal(t, http.StatusForbidden, w.Result().StatusCode)
}
