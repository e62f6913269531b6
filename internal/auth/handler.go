package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/series-locker/backend/internal/config"
	"github.com/series-locker/backend/internal/models"
	"github.com/series-locker/backend/internal/web"
)

// CookieName is the session cookie the token is mirrored into.
const CookieName = "jwt"

// UserStore defines the interface for user persistence. Lookups return
// (nil, nil) when no user matches.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// GetUserByEmailWithPassword includes the password digest the default
	// projection hides.
	GetUserByEmailWithPassword(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	SetResetToken(ctx context.Context, userID string, digest string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, userID string) error
	GetUserByResetToken(ctx context.Context, digest string, now time.Time) (*models.User, error)
	// UpdatePassword stores the new digest, records changedAt and clears the
	// reset-token pair in a single update.
	UpdatePassword(ctx context.Context, userID string, hashedPassword string, changedAt time.Time) error
}

// Mailer defines the interface for outbound notifications.
type Mailer interface {
	SendWelcome(user *models.User, url string) error
	SendPasswordReset(user *models.User, resetURL string) error
}

// Handler holds auth-related HTTP handlers.
type Handler struct {
	users  UserStore
	tokens *TokenService
	mailer Mailer
	cfg    *config.Config
}

func NewHandler(users UserStore, tokens *TokenService, mailer Mailer, cfg *config.Config) *Handler {
	return &Handler{users: users, tokens: tokens, mailer: mailer, cfg: cfg}
}

// sendToken issues a session token for the user, mirrors it into the jwt
// cookie and writes the response. The password digest is never included.
func (h *Handler) sendToken(w http.ResponseWriter, status int, user *models.User) {
	token, err := h.tokens.Issue(user.ID.Hex())
	if err != nil {
		web.Fail(w, err, !h.cfg.Production())
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.Production(),
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(time.Duration(h.cfg.JWTCookieDays) * 24 * time.Hour),
	})

	web.JSON(w, status, map[string]interface{}{
		"status": "success",
		"token":  token,
		"data":   map[string]interface{}{"user": user},
	})
}

// Signup registers a new account and logs it in.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Fail(w, web.NewError(http.StatusBadRequest, "Invalid request body."), !h.cfg.Production())
		return
	}

	req.Email = models.NormalizeEmail(req.Email)
	switch {
	case req.Username == "":
		web.Fail(w, web.NewError(http.StatusBadRequest, "Please enter a username."), !h.cfg.Production())
		return
	case !models.ValidEmail(req.Email):
		web.Fail(w, web.NewError(http.StatusBadRequest, "Please enter a valid email."), !h.cfg.Production())
		return
	case len(req.Password) < 8:
		web.Fail(w, web.NewError(http.StatusBadRequest, "Password must be at least 8 characters."), !h.cfg.Production())
		return
	case req.Password != req.ConfirmPassword:
		web.Fail(w, web.NewError(http.StatusBadRequest, "Passwords do not match."), !h.cfg.Production())
		return
	}

	hashed, err := HashPassword(req.Password)
	if err != nil {
		web.Fail(w, err, !h.cfg.Production())
		return
	}

	user, err := h.users.CreateUser(r.Context(), &models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: hashed,
	})
	if err != nil {
		web.Fail(w, err, !h.cfg.Production())
		return
	}

	// Welcome mail is best effort; a notification failure must not fail signup.
	go func(u models.User) {
		if err := h.mailer.SendWelcome(&u, h.cfg.HostURL); err != nil {
			slog.Error("welcome email failed", "email", u.Email, "err", err)
		}
	}(*user)

	user.Password = ""
	h.sendToken(w, http.StatusCreated, user)
}

// Login authenticates by email and password. Missing input, an unknown email
// and a wrong password all produce the same response so callers cannot probe
// which accounts exist.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	invalid := web.NewError(http.StatusUnauthorized, "Invalid email or password.")

	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Fail(w, invalid, !h.cfg.Production())
		return
	}
	if req.Email == "" || req.Password == "" {
		web.Fail(w, invalid, !h.cfg.Production())
		return
	}

	user, err := h.users.GetUserByEmailWithPassword(r.Context(), models.NormalizeEmail(req.Email))
	if err != nil {
		web.Fail(w, err, !h.cfg.Production())
		return
	}
	if user == nil || !CheckPassword(req.Password, user.Password) {
		web.Fail(w, invalid, !h.cfg.Production())
		return
	}

	user.Password = ""
	h.sendToken(w, http.StatusOK, user)
}

// ForgotPassword starts the reset flow. The response is identical whether or
// not the email exists; only an actual delivery failure surfaces an error,
// and then the persisted token is cleared first so it can never be used.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Fail(w, web.NewError(http.StatusBadRequest, "Invalid request body."), !h.cfg.Production())
		return
	}

	user, err := h.users.GetUserByEmail(r.Context(), models.NormalizeEmail(req.Email))
	if err != nil {
		web.Fail(w, err, !h.cfg.Production())
		return
	}

	if user != nil {
		raw, digest, expiresAt, err := GenerateResetToken()
		if err != nil {
			web.Fail(w, err, !h.cfg.Production())
			return
		}
		if err := h.users.SetResetToken(r.Context(), user.ID.Hex(), digest, expiresAt); err != nil {
			web.Fail(w, err, !h.cfg.Production())
			return
		}

		resetURL := h.cfg.HostURL + "new-password/" + raw
		if err := h.mailer.SendPasswordReset(user, resetURL); err != nil {
			if clearErr := h.users.ClearResetToken(r.Context(), user.ID.Hex()); clearErr != nil {
				slog.Error("clearing reset token failed", "user", user.ID.Hex(), "err", clearErr)
			}
			web.Fail(w, web.NewError(http.StatusInternalServerError,
				"There was an error sending the email. Please try again later."), !h.cfg.Production())
			return
		}
	}

	web.JSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "If an account with that email exists, reset instructions are on their way.",
	})
}

// ResetPassword completes the reset flow using the raw token from the URL.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Fail(w, web.NewError(http.StatusBadRequest, "Invalid request body."), !h.cfg.Production())
		return
	}
	if len(req.Password) < 8 {
		web.Fail(w, web.NewError(http.StatusBadRequest, "Password must be at least 8 characters."), !h.cfg.Production())
		return
	}
	if req.Password != req.ConfirmPassword {
		web.Fail(w, web.NewError(http.StatusBadRequest, "Passwords do not match."), !h.cfg.Production())
		return
	}

	digest := HashResetToken(chi.URLParam(r, "token"))
	user, err := h.users.GetUserByResetToken(r.Context(), digest, time.Now())
	if err != nil {
		web.Fail(w, err, !h.cfg.Production())
		return
	}
	if user == nil {
		web.Fail(w, web.NewError(http.StatusBadRequest,
			"Your password reset link is invalid or has expired. Please request a new one."), !h.cfg.Production())
		return
	}

	hashed, err := HashPassword(req.Password)
	if err != nil {
		web.Fail(w, err, !h.cfg.Production())
		return
	}

	// Backdate changedAt by a second so the token issued below is not
	// considered stale by the freshness check.
	changedAt := time.Now().Add(-time.Second)
	if err := h.users.UpdatePassword(r.Context(), user.ID.Hex(), hashed, changedAt); err != nil {
		web.Fail(w, err, !h.cfg.Production())
		return
	}

	user.Password = ""
	user.PasswordChangedAt = changedAt
	h.sendToken(w, http.StatusOK, user)
}

// Logout overwrites the session cookie with a short-lived sentinel. Tokens
// already handed out stay valid until their natural expiry.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "loggedout",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Now().Add(10 * time.Second),
	})
	web.JSON(w, http.StatusOK, map[string]string{"status": "success"})
}
