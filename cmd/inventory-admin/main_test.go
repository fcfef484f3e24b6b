package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/diwise/iot-inventory-admin/internal/pkg/application"
	"github.com/diwise/iot-inventory-admin/internal/pkg/application/inventory"
	"github.com/matryer/is"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

func TestHealth(t *testing.T) {
	is, server := setupTest(t)
	defer server.Close()

	resp, _ := testRequest(is, server, http.MethodGet, "/health", nil)
	is.Equal(resp.StatusCode, http.StatusNoContent)
}

func TestThatSeededAdminCanLogin(t *testing.T) {
	is, server := setupTest(t)
	defer server.Close()

	resp, body := testRequest(is, server, http.MethodPost, "/api/v0/login", strings.NewReader(`{"username":"admin","password":"admin123"}`))
	is.Equal(resp.StatusCode, http.StatusOK)
	is.True(strings.Contains(body, `"role":"admin"`))
}

func TestThatSeededDevicesAreListed(t *testing.T) {
	is, server := setupTest(t)
	defer server.Close()

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/v0/devices", nil)
	req.SetBasicAuth("admin", "admin123")
	resp, err := http.DefaultClient.Do(req)
	is.NoErr(err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	is.Equal(resp.StatusCode, http.StatusOK)
	is.True(strings.Contains(string(body), `"displayName":"DEF-gateway"`))
}

func TestThatShippedConfigurationLoads(t *testing.T) {
	is := is.New(t)

	f, err := os.Open("../../assets/config/config.yaml")
	is.NoErr(err)
	defer f.Close()

	cfg, err := application.LoadConfiguration(f)
	is.NoErr(err)
	is.Equal(cfg.Persistence.Backend, application.BackendFile)
}

func setupTest(t *testing.T) (*is.I, *httptest.Server) {
	is := is.New(t)
	ctx := context.Background()

	cfg, err := application.LoadConfiguration(strings.NewReader(configYaml))
	is.NoErr(err)

	backend, err := application.NewBackend(ctx, zerolog.Nop(), cfg.Persistence)
	is.NoErr(err)

	store, err := inventory.New(ctx, backend, inventory.WithPasswordHasher(inventory.NewBcryptHasher(bcrypt.MinCost)))
	is.NoErr(err)

	seed, err := os.Open("../../assets/config/seed.yaml")
	is.NoErr(err)
	is.NoErr(seedInventory(ctx, store, seed))

	policies, err := os.Open("../../assets/config/authz.rego")
	is.NoErr(err)
	defer policies.Close()

	r, err := setupRouter(ctx, cfg, policies, store, http.NotFoundHandler())
	is.NoErr(err)

	return is, httptest.NewServer(r)
}

func testRequest(is *is.I, ts *httptest.Server, method, path string, body io.Reader) (*http.Response, string) {
	req, _ := http.NewRequest(method, ts.URL+path, body)
	resp, err := http.DefaultClient.Do(req)
	is.NoErr(err)
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	return resp, string(respBody)
}

const configYaml string = `
locale: en
persistence:
  backend: memory
login:
  requestsPerMinute: 60
  burst: 10
`
