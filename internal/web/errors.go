package web

import (
	"errors"
	"log/slog"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// AppError is an operational error: raised deliberately with a status code
// and a message safe to show to the client verbatim.
type AppError struct {
	Status  int
	Message string
}

func (e *AppError) Error() string { return e.Message }

func NewError(status int, message string) *AppError {
	return &AppError{Status: status, Message: message}
}

// statusWord follows the fail/error convention: client faults are "fail",
// server faults are "error".
func statusWord(status int) string {
	if status < 500 {
		return "fail"
	}
	return "error"
}

// Fail translates err into the HTTP error taxonomy and writes it. Store
// errors are mapped at this boundary; anything unrecognized is logged and
// replaced with a generic message unless debug mode is on.
func Fail(w http.ResponseWriter, err error, debug bool) {
	var app *AppError
	if !errors.As(err, &app) {
		app = translate(err)
	}

	if app == nil {
		// Non-operational: never leak internals to the client.
		slog.Error("unhandled error", "err", err)
		if debug {
			JSON(w, http.StatusInternalServerError, map[string]string{
				"status":  "error",
				"message": "Something went wrong",
				"error":   err.Error(),
			})
			return
		}
		JSON(w, http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": "Something went wrong",
		})
		return
	}

	JSON(w, app.Status, map[string]string{
		"status":  statusWord(app.Status),
		"message": app.Message,
	})
}

// translate maps persistence-layer failures onto the taxonomy; returns nil
// for errors that have no operational meaning.
func translate(err error) *AppError {
	switch {
	case mongo.IsDuplicateKeyError(err):
		return NewError(http.StatusBadRequest, "Duplicate field value. Please use another value.")
	case errors.Is(err, mongo.ErrNoDocuments):
		return NewError(http.StatusNotFound, "Resource not found.")
	case errors.Is(err, primitive.ErrInvalidHex):
		return NewError(http.StatusBadRequest, "Invalid id.")
	}
	return nil
}
