package repository

import (
	"context"
	"regexp"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"productsapi/models"
)

type productDoc struct {
	ID        string                `bson:"_id"`
	Name      string                `bson:"name"`
	Price     primitive.Decimal128  `bson:"price"`
	PriceIn   string                `bson:"price_in"`
	Quantity  int                   `bson:"quantity"`
	ImagePath string                `bson:"image_path"`
	PriceOut  *primitive.Decimal128 `bson:"price_out"`
	ImageURL  string                `bson:"image_url"`
	UserID    *int64                `bson:"user_id,omitempty"`
	CreatedAt time.Time             `bson:"created_at"`
	UpdatedAt time.Time             `bson:"updated_at"`
}

func toDecimal128(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.NewDecimal128(0, 0)
	}
	return v
}

func fromDecimal128(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (d *productDoc) toModel() *models.Product {
	p := &models.Product{
		ID:        d.ID,
		Name:      d.Name,
		Price:     fromDecimal128(d.Price),
		PriceIn:   d.PriceIn,
		Quantity:  d.Quantity,
		ImagePath: d.ImagePath,
		ImageURL:  d.ImageURL,
		UserID:    d.UserID,
	}
	if d.PriceOut != nil {
		p.PriceOut = decimal.NewNullDecimal(fromDecimal128(*d.PriceOut))
	}
	createdAt, updatedAt := d.CreatedAt, d.UpdatedAt
	p.CreatedAt, p.UpdatedAt = &createdAt, &updatedAt
	return p
}

// MongoProductRepo stores products with the product id as _id. Scoped turns
// on owner filtering, like the migrated SQL schema.
type MongoProductRepo struct {
	DB       *mongo.Client
	Database string
	Scoped   bool
}

func NewMongoProductRepo(db *mongo.Client, database string, scoped bool) *MongoProductRepo {
	return &MongoProductRepo{DB: db, Database: database, Scoped: scoped}
}

func (r *MongoProductRepo) coll() *mongo.Collection {
	return r.DB.Database(r.Database).Collection("products")
}

func (r *MongoProductRepo) filter(f bson.M, userID *int64) bson.M {
	if r.Scoped && userID != nil {
		f["user_id"] = *userID
	}
	return f
}

var newestFirst = options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

func (r *MongoProductRepo) find(ctx context.Context, f bson.M) ([]*models.Product, error) {
	cur, err := r.coll().Find(ctx, f, newestFirst)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	products := []*models.Product{}
	for cur.Next(ctx) {
		var d productDoc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		products = append(products, d.toModel())
	}
	return products, cur.Err()
}

func (r *MongoProductRepo) List(ctx context.Context, userID *int64) ([]*models.Product, error) {
	products, err := r.find(ctx, r.filter(bson.M{}, userID))
	return products, errors.Wrap(err, "list products")
}

func (r *MongoProductRepo) Get(ctx context.Context, id string, userID *int64) (*models.Product, error) {
	var d productDoc
	err := r.coll().FindOne(ctx, r.filter(bson.M{"_id": id}, userID)).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get product %s", id)
	}
	return d.toModel(), nil
}

func (r *MongoProductRepo) Create(ctx context.Context, p *models.Product, userID *int64) error {
	p.ApplyCreateDefaults()
	now := time.Now().UTC()

	priceOut := toDecimal128(p.PriceOut.Decimal)
	d := productDoc{
		ID:        p.ID,
		Name:      p.Name,
		Price:     toDecimal128(p.Price),
		PriceIn:   p.PriceIn,
		Quantity:  p.Quantity,
		ImagePath: p.ImagePath,
		PriceOut:  &priceOut,
		ImageURL:  p.ImageURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if r.Scoped && userID != nil {
		uid := *userID
		d.UserID = &uid
	}

	if _, err := r.coll().InsertOne(ctx, d); err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return errors.Wrapf(err, "create product %s", p.ID)
	}
	p.UserID, p.CreatedAt, p.UpdatedAt = d.UserID, &now, &now
	return nil
}

func (r *MongoProductRepo) Update(ctx context.Context, id string, p *models.Product, userID *int64) (*models.Product, error) {
	if p.PriceIn == "" {
		p.PriceIn = "0"
	}
	set := bson.M{
		"name":       p.Name,
		"price":      toDecimal128(p.Price),
		"price_in":   p.PriceIn,
		"quantity":   p.Quantity,
		"image_path": p.ImagePath,
		"price_out":  nil,
		"image_url":  p.ImageURL,
		"updated_at": time.Now().UTC(),
	}
	if p.PriceOut.Valid {
		set["price_out"] = toDecimal128(p.PriceOut.Decimal)
	}

	res, err := r.coll().UpdateOne(ctx, r.filter(bson.M{"_id": id}, userID), bson.M{"$set": set})
	if err != nil {
		return nil, errors.Wrapf(err, "update product %s", id)
	}
	if res.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, id, userID)
}

func (r *MongoProductRepo) Delete(ctx context.Context, id string, userID *int64) error {
	res, err := r.coll().DeleteOne(ctx, r.filter(bson.M{"_id": id}, userID))
	if err != nil {
		return errors.Wrapf(err, "delete product %s", id)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoProductRepo) Search(ctx context.Context, q string) ([]*models.Product, error) {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
	products, err := r.find(ctx, bson.M{"$or": bson.A{
		bson.M{"name": pattern},
		bson.M{"_id": pattern},
	}})
	return products, errors.Wrapf(err, "search products %q", q)
}

// AdjustStock updates the quantity in a single server-side operation and
// reads back the previous document.
func (r *MongoProductRepo) AdjustStock(ctx context.Context, id string, quantity int, op string) (*models.StockChange, error) {
	var update any
	switch op {
	case models.StockAdd:
		update = bson.M{"$inc": bson.M{"quantity": quantity}}
	case models.StockSubtract:
		update = mongo.Pipeline{{{Key: "$set", Value: bson.M{
			"quantity": bson.M{"$max": bson.A{0, bson.M{"$subtract": bson.A{"$quantity", quantity}}}},
		}}}}
	default:
		return nil, ErrInvalidOperation
	}

	var before productDoc
	err := r.coll().FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.Before)).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "adjust stock of %s", id)
	}

	next, _ := models.ApplyStock(before.Quantity, quantity, op)
	return &models.StockChange{ProductID: id, OldQuantity: before.Quantity, NewQuantity: next}, nil
}

func (r *MongoProductRepo) Count(ctx context.Context) (int64, error) {
	n, err := r.coll().CountDocuments(ctx, bson.M{})
	return n, errors.Wrap(err, "count products")
}
