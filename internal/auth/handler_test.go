package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/series-locker/backend/internal/config"
	"github.com/series-locker/backend/internal/models"
)

// fakeUserStore is an in-memory UserStore. Lookups return copies so handler
// mutations (like blanking the password for output) never touch stored state.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User

	setResetCalls int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*models.User)}
}

func (f *fakeUserStore) CreateUser(_ context.Context, user *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()
	stored := *user
	f.users[user.ID.Hex()] = &stored
	return user, nil
}

func (f *fakeUserStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			cp.Password = "" // projection hides the digest
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) GetUserByEmailWithPassword(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		cp := *u
		cp.Password = ""
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeUserStore) SetResetToken(_ context.Context, userID, digest string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setResetCalls++
	u := f.users[userID]
	u.PasswordResetToken = digest
	u.PasswordResetTokenExpiresAt = expiresAt
	return nil
}

func (f *fakeUserStore) ClearResetToken(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[userID]
	u.PasswordResetToken = ""
	u.PasswordResetTokenExpiresAt = time.Time{}
	return nil
}

func (f *fakeUserStore) GetUserByResetToken(_ context.Context, digest string, now time.Time) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.PasswordResetToken == digest && u.PasswordResetTokenExpiresAt.After(now) {
			cp := *u
			cp.Password = ""
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, userID, hashedPassword string, changedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[userID]
	u.Password = hashedPassword
	u.PasswordChangedAt = changedAt
	u.PasswordResetToken = ""
	u.PasswordResetTokenExpiresAt = time.Time{}
	return nil
}

func (f *fakeUserStore) stored(id string) models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.users[id]
}

type fakeMailer struct {
	mu        sync.Mutex
	failWith  error
	resetURLs []string
	welcomes  int
}

func (f *fakeMailer) SendWelcome(*models.User, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.welcomes++
	return f.failWith
}

func (f *fakeMailer) SendPasswordReset(_ *models.User, resetURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.resetURLs = append(f.resetURLs, resetURL)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Env:           "test",
		JWTCookieDays: 90,
		HostURL:       "http://app.local/",
	}
}

func newTestRouter(users UserStore, mailer Mailer) (http.Handler, *TokenService) {
	tokens := NewTokenService("test-secret", time.Hour)
	h := NewHandler(users, tokens, mailer, testConfig())

	r := chi.NewRouter()
	r.Post("/signup", h.Signup)
	r.Post("/login", h.Login)
	r.Get("/logout", h.Logout)
	r.Post("/forgotPassword", h.ForgotPassword)
	r.Patch("/resetPassword/{token}", h.ResetPassword)
	return r, tokens
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func signup(t *testing.T, handler http.Handler, username, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"username":"` + username + `","email":"` + email + `","password":"` + password + `","confirmPassword":"` + password + `"}`
	return doJSON(t, handler, http.MethodPost, "/signup", body)
}

func TestSignup_Success(t *testing.T) {
	t.Parallel()

	users := newFakeUserStore()
	handler, tokens := newTestRouter(users, &fakeMailer{})

	rec := signup(t, handler, "alice", "alice@x.com", "password1")
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Status string `json:"status"`
		Token  string `json:"token"`
		Data   struct {
			User models.User `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "success", resp.Status)
	require.NotEmpty(t, resp.Token)
	require.Equal(t, "alice@x.com", resp.Data.User.Email)

	// The password must never appear in any outbound representation.
	require.NotContains(t, rec.Body.String(), "password")

	// The token belongs to the created user.
	uid, _, err := tokens.Verify(resp.Token)
	require.NoError(t, err)
	require.Equal(t, resp.Data.User.ID.Hex(), uid)

	// The stored digest is not the plaintext.
	stored := users.stored(uid)
	require.NotEmpty(t, stored.Password)
	require.NotEqual(t, "password1", stored.Password)
	require.True(t, CheckPassword("password1", stored.Password))

	// Session cookie mirrors the token.
	var jwtCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			jwtCookie = c
		}
	}
	require.NotNil(t, jwtCookie)
	require.Equal(t, resp.Token, jwtCookie.Value)
	require.True(t, jwtCookie.HttpOnly)
}

func TestSignup_NormalizesEmail(t *testing.T) {
	t.Parallel()

	users := newFakeUserStore()
	handler, _ := newTestRouter(users, &fakeMailer{})

	rec := signup(t, handler, "bob", "Bob@Example.COM", "password1")
	require.Equal(t, http.StatusCreated, rec.Code)

	u, err := users.GetUserByEmail(context.Background(), "bob@example.com")
	require.NoError(t, err)
	require.NotNil(t, u)
}

func TestSignup_Validation(t *testing.T) {
	t.Parallel()

	handler, _ := newTestRouter(newFakeUserStore(), &fakeMailer{})

	cases := map[string]string{
		"missing username": `{"email":"a@x.com","password":"password1","confirmPassword":"password1"}`,
		"bad email":        `{"username":"a","email":"not-an-email","password":"password1","confirmPassword":"password1"}`,
		"short password":   `{"username":"a","email":"a@x.com","password":"short","confirmPassword":"short"}`,
		"mismatch":         `{"username":"a","email":"a@x.com","password":"password1","confirmPassword":"password2"}`,
	}
	for name, body := range cases {
		rec := doJSON(t, handler, http.MethodPost, "/signup", body)
		require.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func TestSignup_WelcomeMailFailureDoesNotFailSignup(t *testing.T) {
	t.Parallel()

	mailer := &fakeMailer{failWith: context.DeadlineExceeded}
	handler, _ := newTestRouter(newFakeUserStore(), mailer)

	rec := signup(t, handler, "carol", "carol@x.com", "password1")
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestLogin_UniformErrors(t *testing.T) {
	t.Parallel()

	users := newFakeUserStore()
	handler, _ := newTestRouter(users, &fakeMailer{})
	signup(t, handler, "dave", "dave@x.com", "password1")

	bodies := []string{
		`{"email":"dave@x.com","password":"wrongpass1"}`, // wrong password
		`{"email":"nobody@x.com","password":"password1"}`, // unknown email
		`{"email":"","password":""}`,                      // missing input
	}

	var messages []string
	for _, body := range bodies {
		rec := doJSON(t, handler, http.MethodPost, "/login", body)
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		var resp struct {
			Message string `json:"message"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		messages = append(messages, resp.Message)
	}

	// All failure modes must be indistinguishable.
	require.Equal(t, messages[0], messages[1])
	require.Equal(t, messages[1], messages[2])
}

func TestLogin_Success(t *testing.T) {
	t.Parallel()

	users := newFakeUserStore()
	handler, tokens := newTestRouter(users, &fakeMailer{})
	signup(t, handler, "erin", "erin@x.com", "password1")

	rec := doJSON(t, handler, http.MethodPost, "/login", `{"email":"erin@x.com","password":"password1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	_, _, err := tokens.Verify(resp.Token)
	require.NoError(t, err)
	require.NotContains(t, rec.Body.String(), "password")
}

func TestForgotPassword_UnknownEmailIsGeneric(t *testing.T) {
	t.Parallel()

	users := newFakeUserStore()
	handler, _ := newTestRouter(users, &fakeMailer{})

	rec := doJSON(t, handler, http.MethodPost, "/forgotPassword", `{"email":"ghost@x.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Zero(t, users.setResetCalls, "no token may be persisted for an unknown email")
}

func TestForgotPassword_PersistsDigestAndMailsRawToken(t *testing.T) {
	t.Parallel()

	users := newFakeUserStore()
	mailer := &fakeMailer{}
	handler, _ := newTestRouter(users, mailer)
	signup(t, handler, "frank", "frank@x.com", "password1")

	known := doJSON(t, handler, http.MethodPost, "/forgotPassword", `{"email":"frank@x.com"}`)
	require.Equal(t, http.StatusOK, known.Code)

	// Known and unknown email responses are byte-identical.
	unknown := doJSON(t, handler, http.MethodPost, "/forgotPassword", `{"email":"ghost@x.com"}`)
	require.Equal(t, known.Body.String(), unknown.Body.String())

	require.Len(t, mailer.resetURLs, 1)
	raw := strings.TrimPrefix(mailer.resetURLs[0], "http://app.local/new-password/")
	require.NotEmpty(t, raw)

	u, err := users.GetUserByEmail(context.Background(), "frank@x.com")
	require.NoError(t, err)
	stored := users.stored(u.ID.Hex())
	require.Equal(t, HashResetToken(raw), stored.PasswordResetToken, "only the digest is persisted")
	require.NotEqual(t, raw, stored.PasswordResetToken)
	require.WithinDuration(t, time.Now().Add(ResetTokenTTL), stored.PasswordResetTokenExpiresAt, time.Minute)
}

func TestForgotPassword_MailFailureClearsToken(t *testing.T) {
	t.Parallel()

	users := newFakeUserStore()
	mailer := &fakeMailer{failWith: context.DeadlineExceeded}
	handler, _ := newTestRouter(users, mailer)
	signup(t, handler, "grace", "grace@x.com", "password1")

	rec := doJSON(t, handler, http.MethodPost, "/forgotPassword", `{"email":"grace@x.com"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	u, err := users.GetUserByEmail(context.Background(), "grace@x.com")
	require.NoError(t, err)
	stored := users.stored(u.ID.Hex())
	require.Empty(t, stored.PasswordResetToken, "an unsent reset token must not stay active")
	require.True(t, stored.PasswordResetTokenExpiresAt.IsZero())
}

func TestResetPassword_ExpiredToken(t *testing.T) {
	t.Parallel()

	users := newFakeUserStore()
	handler, _ := newTestRouter(users, &fakeMailer{})
	signup(t, handler, "henry", "henry@x.com", "password1")

	u, err := users.GetUserByEmail(context.Background(), "henry@x.com")
	require.NoError(t, err)

	raw, digest, _, err := GenerateResetToken()
	require.NoError(t, err)
	require.NoError(t, users.SetResetToken(context.Background(), u.ID.Hex(), digest, time.Now().Add(-time.Minute)))
	before := users.stored(u.ID.Hex()).Password

	rec := doJSON(t, handler, http.MethodPatch, "/resetPassword/"+raw,
		`{"password":"newpassword1","confirmPassword":"newpassword1"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, before, users.stored(u.ID.Hex()).Password, "password must be unchanged")
}

func TestResetPassword_SuccessIsSingleUse(t *testing.T) {
	t.Parallel()

	users := newFakeUserStore()
	mailer := &fakeMailer{}
	handler, tokens := newTestRouter(users, mailer)
	signup(t, handler, "iris", "iris@x.com", "password1")
	doJSON(t, handler, http.MethodPost, "/forgotPassword", `{"email":"iris@x.com"}`)
	require.Len(t, mailer.resetURLs, 1)
	raw := strings.TrimPrefix(mailer.resetURLs[0], "http://app.local/new-password/")

	rec := doJSON(t, handler, http.MethodPatch, "/resetPassword/"+raw,
		`{"password":"newpassword1","confirmPassword":"newpassword1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	_, _, err := tokens.Verify(resp.Token)
	require.NoError(t, err)

	u, err := users.GetUserByEmail(context.Background(), "iris@x.com")
	require.NoError(t, err)
	stored := users.stored(u.ID.Hex())
	require.True(t, CheckPassword("newpassword1", stored.Password))
	require.Empty(t, stored.PasswordResetToken)
	require.False(t, stored.PasswordChangedAt.IsZero())

	// Replaying the consumed token fails.
	replay := doJSON(t, handler, http.MethodPatch, "/resetPassword/"+raw,
		`{"password":"anotherpass1","confirmPassword":"anotherpass1"}`)
	require.Equal(t, http.StatusBadRequest, replay.Code)
}

func TestLogout_OverwritesCookie(t *testing.T) {
	t.Parallel()

	handler, _ := newTestRouter(newFakeUserStore(), &fakeMailer{})

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var jwtCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			jwtCookie = c
		}
	}
	require.NotNil(t, jwtCookie)
	require.Equal(t, "loggedout", jwtCookie.Value)
	require.True(t, jwtCookie.HttpOnly)
	require.WithinDuration(t, time.Now().Add(10*time.Second), jwtCookie.Expires, 5*time.Second)
}
