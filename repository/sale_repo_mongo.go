package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"productsapi/models"
)

// saleDoc keeps items as the serialized JSON text, the same as the SQL
// backends, so arbitrary client fields survive unchanged.
type saleDoc struct {
	ID            string               `bson:"_id"`
	Timestamp     time.Time            `bson:"timestamp"`
	Items         string               `bson:"items"`
	TotalAmount   primitive.Decimal128 `bson:"total_amount"`
	PaymentMethod string               `bson:"payment_method"`
	CustomerName  *string              `bson:"customer_name"`
	Notes         *string              `bson:"notes"`
	CreatedAt     time.Time            `bson:"created_at"`
}

func (d *saleDoc) toModel() (*models.Sale, error) {
	items, err := decodeItems([]byte(d.Items))
	if err != nil {
		return nil, err
	}
	return &models.Sale{
		ID:            d.ID,
		Timestamp:     d.Timestamp,
		Items:         items,
		TotalAmount:   fromDecimal128(d.TotalAmount),
		PaymentMethod: d.PaymentMethod,
		CustomerName:  d.CustomerName,
		Notes:         d.Notes,
		CreatedAt:     d.CreatedAt,
	}, nil
}

type MongoSaleRepo struct {
	DB       *mongo.Client
	Database string
}

func NewMongoSaleRepo(db *mongo.Client, database string) *MongoSaleRepo {
	return &MongoSaleRepo{DB: db, Database: database}
}

func (r *MongoSaleRepo) coll() *mongo.Collection {
	return r.DB.Database(r.Database).Collection("sales")
}

func (r *MongoSaleRepo) List(ctx context.Context, start, end *time.Time) ([]*models.Sale, error) {
	f := bson.M{}
	if start != nil && end != nil {
		f["timestamp"] = bson.M{"$gte": start.UTC(), "$lte": end.UTC()}
	}

	cur, err := r.coll().Find(ctx, f, options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, errors.Wrap(err, "list sales")
	}
	defer cur.Close(ctx)

	sales := []*models.Sale{}
	for cur.Next(ctx) {
		var d saleDoc
		if err := cur.Decode(&d); err != nil {
			return nil, errors.Wrap(err, "list sales")
		}
		s, err := d.toModel()
		if err != nil {
			return nil, err
		}
		sales = append(sales, s)
	}
	return sales, errors.Wrap(cur.Err(), "list sales")
}

func (r *MongoSaleRepo) Get(ctx context.Context, id string) (*models.Sale, error) {
	var d saleDoc
	err := r.coll().FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get sale %s", id)
	}
	return d.toModel()
}

func (r *MongoSaleRepo) Create(ctx context.Context, s *models.Sale) error {
	items, err := encodeItems(s.Items)
	if err != nil {
		return err
	}
	s.Timestamp = s.Timestamp.UTC()
	s.CreatedAt = time.Now().UTC()

	_, err = r.coll().InsertOne(ctx, saleDoc{
		ID:            s.ID,
		Timestamp:     s.Timestamp,
		Items:         items,
		TotalAmount:   toDecimal128(s.TotalAmount),
		PaymentMethod: s.PaymentMethod,
		CustomerName:  s.CustomerName,
		Notes:         s.Notes,
		CreatedAt:     s.CreatedAt,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return errors.Wrapf(err, "create sale %s", s.ID)
	}
	return nil
}

type saleTotals struct {
	Count   int64                `bson:"count"`
	Revenue primitive.Decimal128 `bson:"revenue"`
	Average primitive.Decimal128 `bson:"average"`
}

func (r *MongoSaleRepo) totals(ctx context.Context, match bson.M) (saleTotals, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "count", Value: bson.M{"$sum": 1}},
			{Key: "revenue", Value: bson.M{"$sum": "$total_amount"}},
			{Key: "average", Value: bson.M{"$avg": "$total_amount"}},
		}}},
	}

	var t saleTotals
	cur, err := r.coll().Aggregate(ctx, pipeline)
	if err != nil {
		return t, err
	}
	defer cur.Close(ctx)

	if cur.Next(ctx) {
		err = cur.Decode(&t)
	}
	if t.Count == 0 {
		t.Revenue, t.Average = primitive.NewDecimal128(0, 0), primitive.NewDecimal128(0, 0)
	}
	if err != nil {
		return t, err
	}
	return t, cur.Err()
}

func (r *MongoSaleRepo) Summary(ctx context.Context, dayStart, dayEnd time.Time) (*models.SalesSummary, error) {
	all, err := r.totals(ctx, bson.M{})
	if err != nil {
		return nil, errors.Wrap(err, "summarise sales")
	}
	today, err := r.totals(ctx, bson.M{"timestamp": bson.M{"$gte": dayStart.UTC(), "$lt": dayEnd.UTC()}})
	if err != nil {
		return nil, errors.Wrap(err, "summarise today's sales")
	}

	return &models.SalesSummary{
		TotalSales:        all.Count,
		TotalRevenue:      fromDecimal128(all.Revenue),
		TodaySales:        today.Count,
		TodayRevenue:      fromDecimal128(today.Revenue),
		AverageSaleAmount: fromDecimal128(all.Average).Round(2),
	}, nil
}
