package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoDB struct {
	Client   *mongo.Client
	Ctx      context.Context
	Cancel   context.CancelFunc
	URL      string
	Database string
}

func NewMongoDB(url, database string) *MongoDB {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	return &MongoDB{
		Ctx:      ctx,
		Cancel:   cancel,
		URL:      url,
		Database: database,
	}
}

func (m *MongoDB) Connect() error {
	client, err := mongo.Connect(m.Ctx, options.Client().ApplyURI(m.URL).SetMaxPoolSize(10))
	if err != nil {
		return err
	}
	m.Client = client
	return m.Client.Ping(m.Ctx, nil)
}

func (m *MongoDB) Disconnect() error {
	m.Cancel()
	return m.Client.Disconnect(context.Background())
}

func (m *MongoDB) GetContext() context.Context {
	return m.Ctx
}

// EnsureIndexes creates the indexes the repositories rely on for uniqueness
// and ordering. It is idempotent.
func (m *MongoDB) EnsureIndexes(ctx context.Context) error {
	db := m.Client.Database(m.Database)

	if _, err := db.Collection("users").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
		// strength 2 compares without case
		Options: options.Index().
			SetName("email_nocase").
			SetUnique(true).
			SetCollation(&options.Collation{Locale: "en", Strength: 2}),
	}); err != nil {
		return err
	}
	if _, err := db.Collection("products").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	}); err != nil {
		return err
	}
	_, err := db.Collection("sales").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "timestamp", Value: -1}},
	})
	return err
}
