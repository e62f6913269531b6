package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/series-locker/backend/internal/models"
)

// SeriesStore handles series CRUD in the series collection. Every operation
// that touches an existing document is scoped by owner in the filter.
type SeriesStore struct {
	col *mongo.Collection
}

func NewSeriesStore(db *mongo.Database) *SeriesStore {
	return &SeriesStore{col: db.Collection("series")}
}

func (s *SeriesStore) Insert(ctx context.Context, series *models.Series) (*models.Series, error) {
	series.Slug = models.Slugify(series.Name)
	series.CreatedAt = time.Now()
	res, err := s.col.InsertOne(ctx, series)
	if err != nil {
		return nil, fmt.Errorf("mongo insert series: %w", err)
	}
	series.ID = res.InsertedID.(primitive.ObjectID)
	return series, nil
}

// List executes a caller-composed filter and find options. The filter is
// expected to already carry the owner condition.
func (s *SeriesStore) List(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Series, error) {
	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var series []models.Series
	if err := cur.All(ctx, &series); err != nil {
		return nil, err
	}
	return series, nil
}

// Count returns the total number of documents matching the filter,
// independent of pagination.
func (s *SeriesStore) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.col.CountDocuments(ctx, filter)
}

// GetByName finds the owner's series with the given name, or (nil, nil).
func (s *SeriesStore) GetByName(ctx context.Context, userID, name string) (*models.Series, error) {
	var series models.Series
	err := s.col.FindOne(ctx, bson.M{"user": userID, "name": name}).Decode(&series)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &series, nil
}

func (s *SeriesStore) GetByID(ctx context.Context, userID, id string) (*models.Series, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid id: %w", primitive.ErrInvalidHex)
	}
	var series models.Series
	err = s.col.FindOne(ctx, bson.M{"_id": oid, "user": userID}).Decode(&series)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &series, nil
}

// Update applies the given $set document to the owner's series and returns
// the updated document, or (nil, nil) if no owned document matched.
func (s *SeriesStore) Update(ctx context.Context, userID, id string, set bson.M) (*models.Series, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid id: %w", primitive.ErrInvalidHex)
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var series models.Series
	err = s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "user": userID},
		bson.M{"$set": set},
		opts,
	).Decode(&series)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &series, nil
}

// Delete removes the owner's series; it reports whether a document matched.
func (s *SeriesStore) Delete(ctx context.Context, userID, id string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("invalid id: %w", primitive.ErrInvalidHex)
	}
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": oid, "user": userID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}
