package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cloudfinch-harshad/rampart/config"
	"github.com/cloudfinch-harshad/rampart/database"
	"github.com/recoilme/pudge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeApi struct {
	mu      sync.Mutex
	valid   string
	headers map[string]string
}

func (f *fakeApi) seen(path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.headers[path]
}

func (f *fakeApi) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.headers[r.URL.Path] = r.Header.Get("Authorization")
	valid := f.valid
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	authorized := r.Header.Get("Authorization") == "Bearer "+valid
	switch r.URL.Path {
	case "/api/login":
		var in map[string]string
		json.NewDecoder(r.Body).Decode(&in)
		if in["password"] != "Str0ng!pass" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"success":false,"message":"Invalid email or password"}`))
			return
		}
		w.Write([]byte(`{"success":true,"message":"Login successful","jwtToken":"` + valid + `","data":{"email":"ada@acme.test"}}`))
	case "/api/get-user":
		if !authorized {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"success":false,"message":"Session expired"}`))
			return
		}
		w.Write([]byte(`{"success":true,"message":"ok","data":{"email":"ada@acme.test","companyName":"Acme"}}`))
	case "/api/filter-brsr-vendors":
		if !authorized {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"success":false,"message":"Unauthorized"}`))
			return
		}
		var in FilterVendorsRequest
		json.NewDecoder(r.Body).Decode(&in)
		json.NewEncoder(w).Encode(FilterVendorsResponse{
			Envelope: Envelope{Success: true, Message: "Vendors fetched successfully"},
			Vendors:  []database.VendorJson{{ID: "v1", Fy: in.Fy, VendorName: "Globex " + in.SearchKey}},
			Total:    1,
		})
	case "/api/logout":
		w.Write([]byte(`{"success":true,"message":"Logged out"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"message":"Not found"}`))
	}
}

func newTestClient(t *testing.T, tokens TokenStore) (*Client, *fakeApi) {
	t.Helper()
	api := &fakeApi{valid: "token-1", headers: map[string]string{}}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	c, err := New(config.ClientConfig{BaseURL: srv.URL + "/api/", Timeout: 5 * time.Second}, tokens)
	require.NoError(t, err)
	return c, api
}

func TestLoginAndRequests(t *testing.T) {
	c, api := newTestClient(t, nil)
	ctx := context.Background()

	_, err := c.Login(ctx, "ada@acme.test", "wrong")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "Invalid email or password")

	resp, err := c.Login(ctx, "ada@acme.test", "Str0ng!pass")
	require.NoError(t, err)
	assert.Equal(t, "ada@acme.test", resp.Data.Email)
	assert.Empty(t, api.seen("/api/login"))
	token, _ := c.Tokens.Token()
	assert.Equal(t, "token-1", token)

	user, err := c.GetUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Acme", user.CompanyName)
	assert.Equal(t, "Bearer token-1", api.seen("/api/get-user"))

	vendors, err := c.FilterVendors(ctx, FilterVendorsRequest{Fy: "2025-2026", SearchKey: "corp", PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, vendors.Total)
	require.Len(t, vendors.Vendors, 1)
	assert.Equal(t, "Globex corp", vendors.Vendors[0].VendorName)
	assert.Equal(t, "2025-2026", vendors.Vendors[0].Fy)
}

func TestUnauthorizedClearsToken(t *testing.T) {
	c, api := newTestClient(t, &MemoryTokenStore{})
	ctx := context.Background()
	require.NoError(t, c.Tokens.SetToken("token-1"))

	api.mu.Lock()
	api.valid = "token-2"
	api.mu.Unlock()

	_, err := c.GetUser(ctx)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "Session expired")
	token, _ := c.Tokens.Token()
	assert.Empty(t, token)

	// no token left to send
	_, err = c.FilterVendors(ctx, FilterVendorsRequest{})
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Empty(t, api.seen("/api/filter-brsr-vendors"))
}

func TestLogout(t *testing.T) {
	c, _ := newTestClient(t, nil)
	ctx := context.Background()
	_, err := c.Login(ctx, "ada@acme.test", "Str0ng!pass")
	require.NoError(t, err)

	require.NoError(t, c.Logout(ctx))
	token, _ := c.Tokens.Token()
	assert.Empty(t, token)
}

func TestRequest_NotFound(t *testing.T) {
	c, _ := newTestClient(t, nil)
	_, err := Request[Envelope](context.Background(), c, http.MethodGet, "/missing", nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "404: Not found")
}

func TestPudgeTokenStore(t *testing.T) {
	store := PudgeTokenStore{File: filepath.Join(t.TempDir(), "client.db")}
	t.Cleanup(func() { pudge.Close(store.File) })

	token, err := store.Token()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, store.SetToken("abc"))
	token, err = store.Token()
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	require.NoError(t, store.ClearToken())
	require.NoError(t, store.ClearToken())
	token, err = store.Token()
	require.NoError(t, err)
	assert.Empty(t, token)
}
