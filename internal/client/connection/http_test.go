package connection

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/medremind/internal/apperror"
	"github.com/sakif/medremind/internal/client/securestore"
)

type widget struct {
	Name string `json:"name"`
}

func TestDo_EncodesAndDecodesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/widgets", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var in widget
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(widget{Name: in.Name + "-saved"})
	}))
	defer srv.Close()

	g := newTestGuard(t, srv.URL+"/api", time.Second)
	var out widget
	err := g.Do(context.Background(), http.MethodPost, "/widgets", widget{Name: "w"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "w-saved", out.Name)
}

func TestDo_NonSuccessIsRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"nope"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	g := newTestGuard(t, srv.URL+"/api", time.Second)
	err := g.Do(context.Background(), http.MethodGet, "/widgets/x", nil, &widget{})

	var remote *apperror.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusNotFound, remote.Status)
	assert.Equal(t, "/widgets/x", remote.Path)
}

func TestDo_NilOutDiscardsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json at all"))
	}))
	defer srv.Close()

	g := newTestGuard(t, srv.URL+"/api", time.Second)
	assert.NoError(t, g.Do(context.Background(), http.MethodDelete, "/widgets/x", nil, nil))
}

func TestDo_MalformedBodyIsNotNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{broken"))
	}))
	defer srv.Close()

	g := newTestGuard(t, srv.URL+"/api", time.Second)
	err := g.Do(context.Background(), http.MethodGet, "/widgets/x", nil, &widget{})
	require.Error(t, err)

	var netErr *apperror.NetworkError
	assert.False(t, errors.As(err, &netErr))
}

// =========================================================================
// ENDPOINT CONFIG
// =========================================================================

type brokenStore struct{ securestore.Store }

func (brokenStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("keychain locked")
}

func TestEndpoint_DefaultWhenAbsent(t *testing.T) {
	g := New(securestore.NewMemory(), Config{}, discardLogger())
	assert.Equal(t, DefaultEndpoint, g.Endpoint(context.Background()))
}

func TestEndpoint_DefaultWhenStoreFails(t *testing.T) {
	g := New(brokenStore{securestore.NewMemory()}, Config{}, discardLogger())
	assert.Equal(t, DefaultEndpoint, g.Endpoint(context.Background()))
}

func TestSetEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "https", input: "https://api.medremind.app/api", want: "https://api.medremind.app/api"},
		{name: "trailing slash trimmed", input: "http://10.0.2.2:3000/api/", want: "http://10.0.2.2:3000/api"},
		{name: "whitespace trimmed", input: "  http://localhost:3000/api ", want: "http://localhost:3000/api"},
		{name: "mongodb scheme rejected", input: "mongodb://localhost:27017", wantErr: true},
		{name: "relative rejected", input: "/api", wantErr: true},
		{name: "empty rejected", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := securestore.NewMemory()
			g := New(store, Config{}, discardLogger())
			ctx := context.Background()

			err := g.SetEndpoint(ctx, tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperror.ErrValidation)
				assert.Equal(t, DefaultEndpoint, g.Endpoint(ctx))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, g.Endpoint(ctx))

			raw, found, err := store.Get(ctx, securestore.KeyEndpoint)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, tt.want, string(raw))
		})
	}
}

func TestSetEndpoint_ResetsConnection(t *testing.T) {
	b := newBackend(t, healthy)
	g := newTestGuard(t, b.endpoint(), time.Second)
	ctx := context.Background()

	require.NoError(t, g.EnsureConnected(ctx))
	require.Equal(t, Connected, g.State())

	other := newBackend(t, healthy)
	require.NoError(t, g.SetEndpoint(ctx, other.endpoint()))
	assert.Equal(t, Idle, g.State())

	require.NoError(t, g.EnsureConnected(ctx))
	assert.Equal(t, int32(1), other.hits.Load())
}
