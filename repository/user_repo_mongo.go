package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"productsapi/models"
)

type MongoUserRepo struct {
	DB       *mongo.Client
	Database string
}

func NewMongoUserRepo(db *mongo.Client, database string) *MongoUserRepo {
	return &MongoUserRepo{DB: db, Database: database}
}

func (r *MongoUserRepo) coll() *mongo.Collection {
	return r.DB.Database(r.Database).Collection("users")
}

// nextID hands out integer user ids from the counters collection so users
// keep the same id shape as on the SQL backends.
func (r *MongoUserRepo) nextID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.DB.Database(r.Database).Collection("counters").FindOneAndUpdate(ctx,
		bson.M{"_id": "users"},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	return counter.Seq, err
}

func (r *MongoUserRepo) CreateUser(ctx context.Context, user *models.AppUser) error {
	user.Email = NormalizeEmail(user.Email)

	if _, err := r.GetUserByEmail(ctx, user.Email); err == nil {
		return ErrConflict
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	if user.PasswordHash == "" {
		return errors.New("password hash cannot be empty")
	}
	if user.Role == "" {
		user.Role = models.DefaultRole
	}

	id, err := r.nextID(ctx)
	if err != nil {
		return errors.Wrap(err, "allocate user id")
	}
	now := time.Now().UTC()
	user.ID, user.CreatedAt, user.UpdatedAt = id, now, now

	if _, err := r.coll().InsertOne(ctx, user); err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return errors.Wrap(err, "create user")
	}
	return nil
}

func (r *MongoUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.AppUser, error) {
	return r.findOne(ctx, bson.M{"email": NormalizeEmail(email)})
}

func (r *MongoUserRepo) GetUserByID(ctx context.Context, id int64) (*models.AppUser, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoUserRepo) findOne(ctx context.Context, f bson.M) (*models.AppUser, error) {
	user := &models.AppUser{}
	err := r.coll().FindOne(ctx, f).Decode(user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get user")
	}
	return user, nil
}
