package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleVerifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/tokeninfo", r.URL.Path)
		switch r.URL.Query().Get("id_token") {
		case "good":
			_, _ = w.Write([]byte(`{"aud":"client-1","email":"grace@navy.mil","email_verified":"true","given_name":"Grace","family_name":"Hopper","picture":"p"}`))
		case "other-aud":
			_, _ = w.Write([]byte(`{"aud":"client-2","email":"grace@navy.mil","email_verified":"true"}`))
		case "unverified":
			_, _ = w.Write([]byte(`{"aud":"client-1","email":"grace@navy.mil","email_verified":"false"}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_token"}`))
		}
	}))
	defer srv.Close()

	v := NewGoogleVerifier("client-1", srv.URL)
	ctx := context.Background()

	id, err := v.Verify(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, &Identity{Email: "grace@navy.mil", FirstName: "Grace", LastName: "Hopper", Picture: "p"}, id)

	for _, tok := range []string{"other-aud", "unverified", "bogus", ""} {
		_, err := v.Verify(ctx, tok)
		assert.ErrorIs(t, err, ErrOAuthRejected, tok)
	}
}

func TestFacebookVerifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := r.URL.Query().Get("access_token")
		switch r.URL.Path {
		case "/app":
			if tok == "foreign" {
				_, _ = w.Write([]byte(`{"id":"app-2"}`))
				return
			}
			_, _ = w.Write([]byte(`{"id":"app-1"}`))
		case "/me":
			if tok == "no-email" {
				_, _ = w.Write([]byte(`{"first_name":"Alan"}`))
				return
			}
			_, _ = w.Write([]byte(`{"email":"alan@example.com","first_name":"Alan","last_name":"Turing","picture":{"data":{"url":"pic"}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	v := NewFacebookVerifier("app-1", srv.URL)
	ctx := context.Background()

	id, err := v.Verify(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, "alan@example.com", id.Email)
	assert.Equal(t, "pic", id.Picture)

	_, err = v.Verify(ctx, "foreign")
	assert.ErrorIs(t, err, ErrOAuthRejected)
	_, err = v.Verify(ctx, "no-email")
	assert.ErrorIs(t, err, ErrOAuthRejected)
}
