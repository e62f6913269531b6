package models

import (
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Watching types a series can be stored under.
const (
	WatchingTypeWatched  = "watched"
	WatchingTypePlanning = "planning to watch"
)

// ValidWatchingType reports whether t is one of the allowed enum values.
func ValidWatchingType(t string) bool {
	return t == WatchingTypeWatched || t == WatchingTypePlanning
}

// Series is a single tracked series, owned by exactly one user. Name is
// unique per owner; CreatedAt is hidden from default list projections.
type Series struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID         string             `json:"user_id" bson:"user"`
	Name           string             `json:"name" bson:"name"`
	Slug           string             `json:"slug" bson:"slug"`
	URL            string             `json:"url" bson:"url"`
	Country        string             `json:"country" bson:"country"`
	WatchingType   string             `json:"watchingType" bson:"watchingType"`
	DateOfWatching time.Time          `json:"dateOfWatching,omitempty" bson:"dateOfWatching,omitempty"`
	DateOfAdding   time.Time          `json:"dateOfAdding,omitempty" bson:"dateOfAdding,omitempty"`
	CreatedAt      time.Time          `json:"createdAt,omitempty" bson:"createdAt,omitempty"`
}

// CreateSeriesRequest is the JSON body for POST /api/v1/series.
type CreateSeriesRequest struct {
	Name           string     `json:"name"`
	URL            string     `json:"url"`
	Country        string     `json:"country"`
	WatchingType   string     `json:"watchingType"`
	DateOfWatching *time.Time `json:"dateOfWatching"`
	DateOfAdding   *time.Time `json:"dateOfAdding"`
}

// UpdateSeriesRequest is the JSON body for PATCH /api/v1/series/:id.
// Pointer fields distinguish "absent" from zero values.
type UpdateSeriesRequest struct {
	Name           *string    `json:"name"`
	URL            *string    `json:"url"`
	Country        *string    `json:"country"`
	WatchingType   *string    `json:"watchingType"`
	DateOfWatching *time.Time `json:"dateOfWatching"`
	DateOfAdding   *time.Time `json:"dateOfAdding"`
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL-safe slug from a series name.
func Slugify(name string) string {
	s := nonSlug.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}
