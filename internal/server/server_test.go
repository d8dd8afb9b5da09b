package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/medremind/internal/apperror"
	"github.com/sakif/medremind/internal/auth"
	"github.com/sakif/medremind/internal/biometric"
	"github.com/sakif/medremind/internal/client/connection"
	"github.com/sakif/medremind/internal/client/directory"
	"github.com/sakif/medremind/internal/client/securestore"
	"github.com/sakif/medremind/internal/client/session"
	"github.com/sakif/medremind/internal/model"
)

// stack is a running backend plus the client layers pointed at it.
type stack struct {
	srv   *httptest.Server
	guard *connection.Guard
	dir   *directory.Client
	ctrl  *session.Controller
}

func newStack(t *testing.T) *stack {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := New(Config{DBPath: filepath.Join(t.TempDir(), "medremind.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	store := securestore.NewMemory()
	guard := connection.New(store, connection.Config{Timeout: 2 * time.Second}, logger)
	require.NoError(t, guard.SetEndpoint(context.Background(), srv.URL+"/api"))

	dir := directory.New(guard)
	ctrl := session.New(dir, auth.NewPasswordServiceForTest(bcrypt.MinCost), store, biometric.Terminal{}, logger)
	return &stack{srv: srv, guard: guard, dir: dir, ctrl: ctrl}
}

func TestHealth(t *testing.T) {
	st := newStack(t)

	require.NoError(t, st.guard.EnsureConnected(context.Background()))
	assert.Equal(t, connection.Connected, st.guard.State())
}

func TestSignupThenLogin(t *testing.T) {
	st := newStack(t)
	ctx := context.Background()

	created, err := st.ctrl.Signup(ctx, "a@x.com", "pw", "Alice")
	require.NoError(t, err)
	assert.NotEmpty(t, created.User.ID, "backend assigns the id")
	assert.NotNil(t, created.User.CreatedAt)

	s, err := st.ctrl.Login(ctx, "A@x.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, created.User.ID, s.User.ID)

	_, err = st.ctrl.Login(ctx, "a@x.com", "wrong")
	assert.ErrorIs(t, err, apperror.ErrInvalidCredential)
}

func TestSignup_DuplicateKeepsAlice(t *testing.T) {
	st := newStack(t)
	ctx := context.Background()

	_, err := st.ctrl.Signup(ctx, "a@x.com", "pw", "Alice")
	require.NoError(t, err)

	_, err = st.ctrl.Signup(ctx, "a@x.com", "pw2", "Eve")
	require.ErrorIs(t, err, apperror.ErrEmailTaken)

	u, found, err := st.dir.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Alice", u.Name)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("pw")))
}

func TestLogin_MalformedAddressIsUnknownUser(t *testing.T) {
	st := newStack(t)

	_, err := st.ctrl.Login(context.Background(), "notanemail", "pw")
	require.ErrorIs(t, err, apperror.ErrUserNotFound)
	assert.Equal(t, session.MsgUserNotFound, st.ctrl.LastError())
}

func TestDirectoryAgainstBackend(t *testing.T) {
	st := newStack(t)
	ctx := context.Background()

	_, found, err := st.dir.FindByEmail(ctx, "nobody@x.com")
	require.NoError(t, err)
	assert.False(t, found)

	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = st.dir.Create(ctx, &model.User{Email: "b@x.com", PasswordHash: string(hash), Name: "Bob"})
	require.NoError(t, err)

	// Create does not dedupe; the backend's 409 surfaces as a RemoteError.
	_, err = st.dir.Create(ctx, &model.User{Email: "b@x.com", PasswordHash: string(hash), Name: "Bob2"})
	assert.True(t, apperror.IsRemoteStatus(err, http.StatusConflict))

	name := "Robert"
	u, err := st.dir.Update(ctx, "b@x.com", model.UserPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Robert", u.Name)

	deleted, err := st.dir.Delete(ctx, "b@x.com")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = st.dir.Delete(ctx, "b@x.com")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestDirectory_PercentInEmailRoundTrips(t *testing.T) {
	st := newStack(t)
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = st.dir.Create(ctx, &model.User{Email: "a%41@x.com", PasswordHash: string(hash), Name: "Pct"})
	require.NoError(t, err)

	u, found, err := st.dir.FindByEmail(ctx, "a%41@x.com")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "a%41@x.com", u.Email)

	_, found, err = st.dir.FindByEmail(ctx, "aa@x.com")
	require.NoError(t, err)
	assert.False(t, found, "%41 must not be read as A")
}

func TestBackendDown_LoginReportsFailure(t *testing.T) {
	st := newStack(t)
	st.srv.Close()

	_, err := st.ctrl.Login(context.Background(), "a@x.com", "pw")
	require.ErrorIs(t, err, apperror.ErrDisconnected)
	assert.Equal(t, session.MsgLoginFailed, st.ctrl.LastError())
	assert.Equal(t, connection.Failed, st.guard.State())
}

func TestCORSPreflight(t *testing.T) {
	st := newStack(t)

	req, err := http.NewRequest(http.MethodOptions, st.srv.URL+"/api/users", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:8081")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
