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

// UserStore handles user persistence in the users collection. The password
// digest is excluded from every lookup unless the WithPassword variant is
// used; lookups return (nil, nil) when no user matches.
type UserStore struct {
	col *mongo.Collection
}

func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{col: db.Collection("users")}
}

// hidePassword is the default projection for user lookups.
var hidePassword = options.FindOne().SetProjection(bson.M{"password": 0})

func (s *UserStore) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	user.CreatedAt = time.Now()
	res, err := s.col.InsertOne(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("mongo insert user: %w", err)
	}
	user.ID = res.InsertedID.(primitive.ObjectID)
	return user, nil
}

func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": email}, hidePassword)
}

func (s *UserStore) GetUserByEmailWithPassword(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": email}, options.FindOne())
}

func (s *UserStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid id: %w", primitive.ErrInvalidHex)
	}
	return s.findOne(ctx, bson.M{"_id": oid}, hidePassword)
}

// GetUserByResetToken finds the user whose stored reset-token digest matches
// and whose token has not yet expired.
func (s *UserStore) GetUserByResetToken(ctx context.Context, digest string, now time.Time) (*models.User, error) {
	filter := bson.M{
		"passwordResetToken":          digest,
		"passwordResetTokenExpiresAt": bson.M{"$gt": now},
	}
	return s.findOne(ctx, filter, hidePassword)
}

func (s *UserStore) SetResetToken(ctx context.Context, userID, digest string, expiresAt time.Time) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return fmt.Errorf("invalid id: %w", primitive.ErrInvalidHex)
	}
	_, err = s.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{
			"passwordResetToken":          digest,
			"passwordResetTokenExpiresAt": expiresAt,
		},
	})
	return err
}

func (s *UserStore) ClearResetToken(ctx context.Context, userID string) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return fmt.Errorf("invalid id: %w", primitive.ErrInvalidHex)
	}
	_, err = s.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$unset": bson.M{
			"passwordResetToken":          "",
			"passwordResetTokenExpiresAt": "",
		},
	})
	return err
}

// UpdatePassword stores the new digest and change time and retires the reset
// token in the same update, so a consumed token can never match again.
func (s *UserStore) UpdatePassword(ctx context.Context, userID, hashedPassword string, changedAt time.Time) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return fmt.Errorf("invalid id: %w", primitive.ErrInvalidHex)
	}
	_, err = s.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{
			"password":          hashedPassword,
			"passwordChangedAt": changedAt,
		},
		"$unset": bson.M{
			"passwordResetToken":          "",
			"passwordResetTokenExpiresAt": "",
		},
	})
	return err
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (*models.User, error) {
	var user models.User
	err := s.col.FindOne(ctx, filter, opts).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
