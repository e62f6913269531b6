package models

import (
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is an account document in the users collection.
//
// Password holds the bcrypt digest and is excluded from the default store
// projection; it is only loaded through the explicit +password lookup and is
// never serialized.
type User struct {
	ID                          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Username                    string             `json:"username" bson:"username"`
	Email                       string             `json:"email" bson:"email"`
	Password                    string             `json:"-" bson:"password,omitempty"` // never serialize
	PasswordChangedAt           time.Time          `json:"-" bson:"passwordChangedAt,omitempty"`
	PasswordResetToken          string             `json:"-" bson:"passwordResetToken,omitempty"`
	PasswordResetTokenExpiresAt time.Time          `json:"-" bson:"passwordResetTokenExpiresAt,omitempty"`
	CreatedAt                   time.Time          `json:"created_at" bson:"createdAt"`
}

// SignupRequest is the JSON body for POST /api/v1/users/signup.
type SignupRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// LoginRequest is the JSON body for POST /api/v1/users/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ForgotPasswordRequest is the JSON body for POST /api/v1/users/forgotPassword.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest is the JSON body for PATCH /api/v1/users/resetPassword/:token.
type ResetPasswordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidEmail checks the email address format.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// NormalizeEmail lowercases and trims an email address before storage or lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
