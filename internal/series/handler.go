package series

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/series-locker/backend/internal/middleware"
	"github.com/series-locker/backend/internal/models"
	"github.com/series-locker/backend/internal/query"
	"github.com/series-locker/backend/internal/web"
)

// filterableFields is the allow-list of query-string keys that may appear in
// a composed filter. Everything else a client sends is dropped.
var filterableFields = []string{"name", "country", "watchingType", "dateOfWatching", "dateOfAdding"}

// SeriesStore defines the interface for series persistence. Scoped lookups
// return (nil, nil) when nothing owned by the user matches.
type SeriesStore interface {
	Insert(ctx context.Context, series *models.Series) (*models.Series, error)
	List(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Series, error)
	Count(ctx context.Context, filter bson.M) (int64, error)
	GetByName(ctx context.Context, userID, name string) (*models.Series, error)
	GetByID(ctx context.Context, userID, id string) (*models.Series, error)
	Update(ctx context.Context, userID, id string, set bson.M) (*models.Series, error)
	Delete(ctx context.Context, userID, id string) (bool, error)
}

// Handler holds series HTTP handlers.
type Handler struct {
	store SeriesStore
	debug bool
}

func NewHandler(store SeriesStore, debug bool) *Handler {
	return &Handler{store: store, debug: debug}
}

// List returns one page of the caller's series plus the total match count.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r)

	filter, opts := query.New(r.URL.Query(), filterableFields).
		Filter().
		Search().
		Sort().
		Fields().
		Paginate().
		Query()
	// The owner condition is forced after composition so no query-string
	// shape can widen the scope.
	filter["user"] = user.ID.Hex()

	var (
		items []models.Series
		total int64
	)
	// Page and count have no ordering dependency; run them together.
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		items, err = h.store.List(ctx, filter, opts)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = h.store.Count(ctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		web.Fail(w, err, h.debug)
		return
	}

	if items == nil {
		items = []models.Series{}
	}
	web.JSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"results": len(items),
		"data": map[string]interface{}{
			"series":   items,
			"docCount": total,
		},
	})
}

// Get returns a single series owned by the caller.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r)

	series, err := h.store.GetByID(r.Context(), user.ID.Hex(), chi.URLParam(r, "id"))
	if err != nil {
		web.Fail(w, err, h.debug)
		return
	}
	if series == nil {
		web.Fail(w, web.NewError(http.StatusNotFound, "This series does not exist."), h.debug)
		return
	}

	web.JSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   map[string]interface{}{"series": series},
	})
}

// Create adds a series for the caller. Names are unique per owner.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r)

	var req models.CreateSeriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Fail(w, web.NewError(http.StatusBadRequest, "Invalid request body."), h.debug)
		return
	}
	if req.Name == "" || req.URL == "" || req.Country == "" {
		web.Fail(w, web.NewError(http.StatusBadRequest, "A series needs a name, url and country."), h.debug)
		return
	}
	if !models.ValidWatchingType(req.WatchingType) {
		web.Fail(w, web.NewError(http.StatusBadRequest, `watchingType must be "watched" or "planning to watch".`), h.debug)
		return
	}

	existing, err := h.store.GetByName(r.Context(), user.ID.Hex(), req.Name)
	if err != nil {
		web.Fail(w, err, h.debug)
		return
	}
	if existing != nil {
		web.Fail(w, web.NewError(http.StatusBadRequest, "You already have a series with this name."), h.debug)
		return
	}

	series := &models.Series{
		UserID:       user.ID.Hex(),
		Name:         req.Name,
		URL:          req.URL,
		Country:      req.Country,
		WatchingType: req.WatchingType,
	}
	if req.DateOfWatching != nil {
		series.DateOfWatching = *req.DateOfWatching
	}
	if req.DateOfAdding != nil {
		series.DateOfAdding = *req.DateOfAdding
	}

	created, err := h.store.Insert(r.Context(), series)
	if err != nil {
		web.Fail(w, err, h.debug)
		return
	}

	web.JSON(w, http.StatusCreated, map[string]interface{}{
		"status": "success",
		"data":   map[string]interface{}{"series": created},
	})
}

// Update patches any subset of the caller's series fields.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r)

	var req models.UpdateSeriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Fail(w, web.NewError(http.StatusBadRequest, "Invalid request body."), h.debug)
		return
	}

	set := bson.M{}
	if req.Name != nil {
		set["name"] = *req.Name
		set["slug"] = models.Slugify(*req.Name)
	}
	if req.URL != nil {
		set["url"] = *req.URL
	}
	if req.Country != nil {
		set["country"] = *req.Country
	}
	if req.WatchingType != nil {
		if !models.ValidWatchingType(*req.WatchingType) {
			web.Fail(w, web.NewError(http.StatusBadRequest, `watchingType must be "watched" or "planning to watch".`), h.debug)
			return
		}
		set["watchingType"] = *req.WatchingType
	}
	if req.DateOfWatching != nil {
		set["dateOfWatching"] = *req.DateOfWatching
	}
	if req.DateOfAdding != nil {
		set["dateOfAdding"] = *req.DateOfAdding
	}
	if len(set) == 0 {
		web.Fail(w, web.NewError(http.StatusBadRequest, "Nothing to update."), h.debug)
		return
	}

	updated, err := h.store.Update(r.Context(), user.ID.Hex(), chi.URLParam(r, "id"), set)
	if err != nil {
		web.Fail(w, err, h.debug)
		return
	}
	if updated == nil {
		web.Fail(w, web.NewError(http.StatusNotFound, "This series does not exist."), h.debug)
		return
	}

	web.JSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   map[string]interface{}{"series": updated},
	})
}

// Delete removes the caller's series.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r)

	deleted, err := h.store.Delete(r.Context(), user.ID.Hex(), chi.URLParam(r, "id"))
	if err != nil {
		web.Fail(w, err, h.debug)
		return
	}
	if !deleted {
		web.Fail(w, web.NewError(http.StatusNotFound, "This series does not exist."), h.debug)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
