package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/accounts/internal/domain/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type codeDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Email      string             `bson:"email"`
	Subject    string             `bson:"subject"`
	Code       string             `bson:"code"`
	ExpiresAt  time.Time          `bson:"expiresAt"`
	Verified   bool               `bson:"verified"`
	VerifiedAt *time.Time         `bson:"verifiedAt,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt"`
}

func (d *codeDoc) toDomain() *repository.VerificationCode {
	return &repository.VerificationCode{
		ID:         d.ID.Hex(),
		Email:      d.Email,
		Subject:    d.Subject,
		Code:       d.Code,
		ExpiresAt:  d.ExpiresAt,
		Verified:   d.Verified,
		VerifiedAt: d.VerifiedAt,
		CreatedAt:  d.CreatedAt,
	}
}

// CodeStore implementa repository.VerificationCodeRepository.
type CodeStore struct {
	coll *mongo.Collection
}

var _ repository.VerificationCodeRepository = (*CodeStore)(nil)

func pairFilter(key repository.CodeKey) bson.D {
	return bson.D{
		{Key: "email", Value: key.Email},
		{Key: "subject", Value: key.Subject},
	}
}

// EnsureIndexes:
//   - active_code_unique: a lo sumo un código no verificado por par
//   - expires_ttl: el servidor borra los códigos vencidos (housekeeping)
func (s *CodeStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "email", Value: 1}, {Key: "subject", Value: 1}},
			Options: options.Index().
				SetName("active_code_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "verified", Value: false}}),
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetName("expires_ttl").SetExpireAfterSeconds(0),
		},
		{
			Keys:    bson.D{{Key: "subject", Value: 1}},
			Options: options.Index().SetName("subject"),
		},
	})
	if err != nil {
		return fmt.Errorf("verification_codes indexes: %w", err)
	}
	return nil
}

func (s *CodeStore) InvalidateActive(ctx context.Context, key repository.CodeKey, now time.Time) (int64, error) {
	filter := append(pairFilter(key), bson.E{Key: "verified", Value: false})
	res, err := s.coll.UpdateMany(ctx, filter, bson.D{{Key: "$set", Value: bson.D{
		{Key: "verified", Value: true},
		{Key: "verifiedAt", Value: now},
	}}})
	if err != nil {
		return 0, fmt.Errorf("verification_codes invalidate: %w", err)
	}
	return res.ModifiedCount, nil
}

func (s *CodeStore) Insert(ctx context.Context, in repository.InsertCodeInput) (*repository.VerificationCode, error) {
	d := codeDoc{
		ID:        primitive.NewObjectID(),
		Email:     in.Key.Email,
		Subject:   in.Key.Subject,
		Code:      in.Code,
		ExpiresAt: in.ExpiresAt,
		CreatedAt: in.Now,
	}
	if _, err := s.coll.InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, repository.ErrConflict
		}
		return nil, fmt.Errorf("verification_codes insert: %w", err)
	}
	return d.toDomain(), nil
}

func (s *CodeStore) Consume(ctx context.Context, key repository.CodeKey, code string, now time.Time) (*repository.VerificationCode, error) {
	filter := append(pairFilter(key),
		bson.E{Key: "code", Value: code},
		bson.E{Key: "verified", Value: false},
		bson.E{Key: "expiresAt", Value: bson.D{{Key: "$gt", Value: now}}},
	)
	var d codeDoc
	err := s.coll.FindOneAndUpdate(ctx, filter,
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "verified", Value: true},
			{Key: "verifiedAt", Value: now},
		}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrCodeUnusable
		}
		return nil, fmt.Errorf("verification_codes consume: %w", err)
	}
	return d.toDomain(), nil
}

func (s *CodeStore) Reap(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.D{{Key: "expiresAt", Value: bson.D{{Key: "$lt", Value: before}}}})
	if err != nil {
		return 0, fmt.Errorf("verification_codes reap: %w", err)
	}
	return res.DeletedCount, nil
}
