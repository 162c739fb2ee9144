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

type accountDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Subject        string             `bson:"subject"`
	Email          string             `bson:"email"`
	FirstName      string             `bson:"firstName,omitempty"`
	LastName       string             `bson:"lastName,omitempty"`
	Role           string             `bson:"role"`
	CompanyName    string             `bson:"companyName,omitempty"`
	CompanyAddress string             `bson:"companyAddress,omitempty"`
	Status         string             `bson:"status"`
	EmailVerified  bool               `bson:"emailVerified"`
	CreatedAt      time.Time          `bson:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt"`
}

func (d *accountDoc) toDomain() *repository.Account {
	return &repository.Account{
		ID:             d.ID.Hex(),
		Subject:        d.Subject,
		Email:          d.Email,
		FirstName:      d.FirstName,
		LastName:       d.LastName,
		Role:           repository.Role(d.Role),
		CompanyName:    d.CompanyName,
		CompanyAddress: d.CompanyAddress,
		Status:         repository.AccountStatus(d.Status),
		EmailVerified:  d.EmailVerified,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func docFromInput(in repository.CreateAccountInput) accountDoc {
	role := in.Role
	if role == "" {
		role = repository.RoleBuyer
	}
	return accountDoc{
		Subject:        in.Subject,
		Email:          in.Email,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Role:           string(role),
		CompanyName:    in.CompanyName,
		CompanyAddress: in.CompanyAddress,
		Status:         string(in.Status),
		EmailVerified:  in.EmailVerified,
		CreatedAt:      in.Now,
		UpdatedAt:      in.Now,
	}
}

// AccountStore implementa repository.AccountRepository.
type AccountStore struct {
	coll *mongo.Collection
}

var _ repository.AccountRepository = (*AccountStore)(nil)

// EnsureIndexes: único por subject (la garantía real de CreateAccount) y
// secundario por email.
func (s *AccountStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "subject", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("subject_unique"),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("email"),
		},
	})
	if err != nil {
		return fmt.Errorf("accounts indexes: %w", err)
	}
	return nil
}

func (s *AccountStore) Get(ctx context.Context, subject string) (*repository.Account, error) {
	var d accountDoc
	err := s.coll.FindOne(ctx, bson.D{{Key: "subject", Value: subject}}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("accounts find: %w", err)
	}
	return d.toDomain(), nil
}

func (s *AccountStore) Create(ctx context.Context, in repository.CreateAccountInput) (*repository.Account, error) {
	d := docFromInput(in)
	d.ID = primitive.NewObjectID()
	if _, err := s.coll.InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, repository.ErrConflict
		}
		return nil, fmt.Errorf("accounts insert: %w", err)
	}
	return d.toDomain(), nil
}

func (s *AccountStore) Update(ctx context.Context, subject string, in repository.UpdateAccountInput) (*repository.Account, error) {
	set := bson.D{{Key: "updatedAt", Value: in.Now}}
	if in.FirstName != nil {
		set = append(set, bson.E{Key: "firstName", Value: *in.FirstName})
	}
	if in.LastName != nil {
		set = append(set, bson.E{Key: "lastName", Value: *in.LastName})
	}
	if in.CompanyName != nil {
		set = append(set, bson.E{Key: "companyName", Value: *in.CompanyName})
	}
	if in.CompanyAddress != nil {
		set = append(set, bson.E{Key: "companyAddress", Value: *in.CompanyAddress})
	}
	if in.Role != nil {
		set = append(set, bson.E{Key: "role", Value: string(*in.Role)})
	}

	var d accountDoc
	err := s.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "subject", Value: subject}},
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("accounts update: %w", err)
	}
	return d.toDomain(), nil
}

// UpsertOnSignIn usa $setOnInsert con un _id pregenerado: si el documento
// devuelto tiene ese _id, la operación lo insertó.
func (s *AccountStore) UpsertOnSignIn(ctx context.Context, seed repository.CreateAccountInput) (*repository.Account, bool, error) {
	var (
		d   accountDoc
		id  primitive.ObjectID
		err error
	)
	for attempt := 0; attempt < 2; attempt++ {
		id = primitive.NewObjectID()
		ins := docFromInput(seed)
		ins.ID = id

		err = s.coll.FindOneAndUpdate(ctx,
			bson.D{{Key: "subject", Value: seed.Subject}},
			bson.D{{Key: "$setOnInsert", Value: ins}},
			options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
		).Decode(&d)
		// dos upserts concurrentes pueden chocar en el índice único;
		// el reintento encuentra el documento del ganador.
		if err != nil && mongo.IsDuplicateKeyError(err) {
			continue
		}
		break
	}
	if err != nil {
		return nil, false, fmt.Errorf("accounts upsert: %w", err)
	}
	return d.toDomain(), d.ID == id, nil
}

// MarkEmailVerified es un upsert con pipeline: todos los campos se evalúan
// contra el documento previo, así que isNew refleja si existía antes.
func (s *AccountStore) MarkEmailVerified(ctx context.Context, seed repository.CreateAccountInput) (*repository.Account, bool, error) {
	role := seed.Role
	if role == "" {
		role = repository.RoleBuyer
	}

	isNew := bson.D{{Key: "$eq", Value: bson.A{bson.D{{Key: "$type", Value: "$createdAt"}}, "missing"}}}
	pick := func(field string, v any) bson.D {
		return bson.D{{Key: "$cond", Value: bson.A{isNew, bson.D{{Key: "$literal", Value: v}}, "$" + field}}}
	}
	promote := bson.D{{Key: "$cond", Value: bson.A{
		bson.D{{Key: "$or", Value: bson.A{
			isNew,
			bson.D{{Key: "$eq", Value: bson.A{"$status", string(repository.StatusPending)}}},
		}}},
		string(repository.StatusActive),
		"$status",
	}}}

	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "email", Value: pick("email", seed.Email)},
			{Key: "firstName", Value: pick("firstName", seed.FirstName)},
			{Key: "lastName", Value: pick("lastName", seed.LastName)},
			{Key: "role", Value: pick("role", string(role))},
			{Key: "createdAt", Value: pick("createdAt", seed.Now)},
			{Key: "status", Value: promote},
			{Key: "emailVerified", Value: true},
			{Key: "updatedAt", Value: bson.D{{Key: "$literal", Value: seed.Now}}},
		}}},
	}

	var (
		before accountDoc
		err    error
	)
	for attempt := 0; attempt < 2; attempt++ {
		err = s.coll.FindOneAndUpdate(ctx,
			bson.D{{Key: "subject", Value: seed.Subject}},
			pipeline,
			options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.Before),
		).Decode(&before)
		if err != nil && mongo.IsDuplicateKeyError(err) {
			continue
		}
		break
	}

	switch {
	case err == nil:
		after := before.toDomain()
		after.EmailVerified = true
		if after.Status == repository.StatusPending {
			after.Status = repository.StatusActive
		}
		after.UpdatedAt = seed.Now
		return after, false, nil
	case errors.Is(err, mongo.ErrNoDocuments):
		// upsert insertó: no había documento previo que devolver
		acc, gerr := s.Get(ctx, seed.Subject)
		if gerr != nil {
			return nil, true, gerr
		}
		return acc, true, nil
	default:
		return nil, false, fmt.Errorf("accounts mark verified: %w", err)
	}
}
