package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// productDocument is the stored shape of a product in MongoDB. Money and
// rating use Decimal128 so values round-trip without float drift.
type productDocument struct {
	ID          string               `bson:"_id"`
	Name        string               `bson:"name"`
	Price       primitive.Decimal128 `bson:"price"`
	Discount    primitive.Decimal128 `bson:"discount"`
	Category    string               `bson:"category"`
	Rating      primitive.Decimal128 `bson:"rating"`
	IsNew       bool                 `bson:"is_new"`
	Image       string               `bson:"image"`
	Description string               `bson:"description"`
	Stock       int                  `bson:"stock"`
	Position    int                  `bson:"position"`
	CreatedAt   time.Time            `bson:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at"`
}

// MongoRepository stores products as documents in a single collection.
type MongoRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoRepository(coll *mongo.Collection) *MongoRepository {
	return &MongoRepository{coll: coll, now: time.Now}
}

var catalogOrder = bson.D{{Key: "position", Value: 1}, {Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}

func (r *MongoRepository) List(ctx context.Context) ([]Product, error) {
	cur, err := r.coll.Find(ctx, bson.D{}, options.Find().SetSort(catalogOrder))
	if err != nil {
		return nil, err
	}
	var docs []productDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]Product, 0, len(docs))
	for _, doc := range docs {
		p, err := doc.toProduct()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *MongoRepository) Get(ctx context.Context, id uuid.UUID) (Product, error) {
	var doc productDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	return doc.toProduct()
}

func (r *MongoRepository) Create(ctx context.Context, product Product) (Product, error) {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if product.Position == 0 {
		last, err := r.lastPosition(ctx)
		if err != nil {
			return Product{}, err
		}
		product.Position = last + 1
	}
	now := r.now().UTC().Truncate(time.Millisecond)
	product.CreatedAt = now
	product.UpdatedAt = now

	doc, err := newProductDocument(product)
	if err != nil {
		return Product{}, err
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return Product{}, err
	}
	return product, nil
}

func (r *MongoRepository) Update(ctx context.Context, product Product) (Product, error) {
	product.UpdatedAt = r.now().UTC().Truncate(time.Millisecond)
	doc, err := newProductDocument(product)
	if err != nil {
		return Product{}, err
	}
	set := bson.M{
		"name":        doc.Name,
		"price":       doc.Price,
		"discount":    doc.Discount,
		"category":    doc.Category,
		"rating":      doc.Rating,
		"is_new":      doc.IsNew,
		"image":       doc.Image,
		"description": doc.Description,
		"stock":       doc.Stock,
		"position":    doc.Position,
		"updated_at":  doc.UpdatedAt,
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": set})
	if err != nil {
		return Product{}, err
	}
	if res.MatchedCount == 0 {
		return Product{}, ErrNotFound
	}
	return r.Get(ctx, product.ID)
}

func (r *MongoRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) lastPosition(ctx context.Context) (int, error) {
	var doc productDocument
	opts := options.FindOne().SetSort(bson.D{{Key: "position", Value: -1}})
	err := r.coll.FindOne(ctx, bson.D{}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return doc.Position, nil
}

func newProductDocument(p Product) (productDocument, error) {
	price, err := toDecimal128(p.Price)
	if err != nil {
		return productDocument{}, err
	}
	discount, err := toDecimal128(p.Discount)
	if err != nil {
		return productDocument{}, err
	}
	rating, err := toDecimal128(p.Rating)
	if err != nil {
		return productDocument{}, err
	}
	return productDocument{
		ID:          p.ID.String(),
		Name:        p.Name,
		Price:       price,
		Discount:    discount,
		Category:    string(p.Category),
		Rating:      rating,
		IsNew:       p.IsNew,
		Image:       p.Image,
		Description: p.Description,
		Stock:       p.Stock,
		Position:    p.Position,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}, nil
}

func (d productDocument) toProduct() (Product, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return Product{}, fmt.Errorf("product document id %q: %w", d.ID, err)
	}
	price, err := fromDecimal128(d.Price)
	if err != nil {
		return Product{}, err
	}
	discount, err := fromDecimal128(d.Discount)
	if err != nil {
		return Product{}, err
	}
	rating, err := fromDecimal128(d.Rating)
	if err != nil {
		return Product{}, err
	}
	return Product{
		ID:          id,
		Name:        d.Name,
		Price:       price,
		Discount:    discount,
		Category:    enums.Category(d.Category),
		Rating:      rating,
		IsNew:       d.IsNew,
		Image:       d.Image,
		Description: d.Description,
		Stock:       d.Stock,
		Position:    d.Position,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	out, ok := primitive.ParseDecimal128FromBigInt(d.Coefficient(), int(d.Exponent()))
	if !ok {
		return primitive.Decimal128{}, fmt.Errorf("decimal %s out of Decimal128 range", d.String())
	}
	return out, nil
}

func fromDecimal128(d primitive.Decimal128) (decimal.Decimal, error) {
	bi, exp, err := d.BigInt()
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("decoding Decimal128: %w", err)
	}
	return decimal.NewFromBigInt(bi, int32(exp)), nil
}
