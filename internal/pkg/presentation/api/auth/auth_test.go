package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/diwise/iot-inventory-admin/pkg/types"
	"github.com/matryer/is"
)

type staticUsers map[string]types.User

func (s staticUsers) Authenticate(ctx context.Context, username, password string) (types.User, error) {
	u, ok := s[username]
	if !ok || password != "secret" {
		return types.User{}, errors.New("invalid credentials")
	}
	return u, nil
}

func TestThatMissingCredentialsAreUnauthorized(t *testing.T) {
	is, server := setupTest(t)
	defer server.Close()

	resp := request(is, server, http.MethodGet, "", "")
	is.Equal(resp.StatusCode, http.StatusUnauthorized)
	is.True(resp.Header.Get("WWW-Authenticate") != "")
}

func TestThatWrongPasswordIsUnauthorized(t *testing.T) {
	is, server := setupTest(t)
	defer server.Close()

	resp := request(is, server, http.MethodGet, "admin", "wrong")
	is.Equal(resp.StatusCode, http.StatusUnauthorized)
}

func TestThatUsersMayRead(t *testing.T) {
	is, server := setupTest(t)
	defer server.Close()

	resp := request(is, server, http.MethodGet, "bob", "secret")
	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(resp.Header.Get("X-User"), "bob")
}

func TestThatOnlyAdminsMayWrite(t *testing.T) {
	is, server := setupTest(t)
	defer server.Close()

	resp := request(is, server, http.MethodPost, "bob", "secret")
	is.Equal(resp.StatusCode, http.StatusForbidden)

	resp = request(is, server, http.MethodPost, "admin", "secret")
	is.Equal(resp.StatusCode, http.StatusOK)
}

func setupTest(t *testing.T) (*is.I, *httptest.Server) {
	is := is.New(t)

	users := staticUsers{
		"admin": {ID: "1", Username: "admin", Role: types.RoleAdmin},
		"bob":   {ID: "2", Username: "bob", Role: types.RoleUser},
	}

	authenticator, err := NewAuthenticator(context.Background(), strings.NewReader(policies), users)
	is.NoErr(err)

	handler := authenticator(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := UserFromContext(r.Context())
		w.Header().Set("X-User", u.Username)
		w.WriteHeader(http.StatusOK)
	}))

	return is, httptest.NewServer(handler)
}

func request(is *is.I, server *httptest.Server, method, username, password string) *http.Response {
	req, _ := http.NewRequest(method, server.URL+"/api/v0/devices", nil)
	if username != "" {
		req.SetBasicAuth(username, password)
	}
	resp, err := http.DefaultClient.Do(req)
	is.NoErr(err)
	resp.Body.Close()
	return resp
}

const policies string = `
package example.authz

default allow = false

allow {
	input.method == "GET"
}

allow {
	input.role == "admin"
}
`
