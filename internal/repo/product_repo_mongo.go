package repo

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bulkbuy-api/internal/domain"
)

type productDoc struct {
	ID                    primitive.ObjectID   `bson:"_id"`
	Title                 string               `bson:"title"`
	Description           string               `bson:"description"`
	Price                 float64              `bson:"price"`
	Image                 string               `bson:"image"`
	Category              string               `bson:"category"`
	EstimatedPurchaseDate time.Time            `bson:"estimatedPurchaseDate"`
	CreatedBy             primitive.ObjectID   `bson:"createdBy"`
	InterestedUsers       []primitive.ObjectID `bson:"interestedUsers"`
	Status                string               `bson:"status"`
	MinQuantity           int                  `bson:"minQuantity"`
	MaxQuantity           int                  `bson:"maxQuantity"`
	CurrentQuantity       int                  `bson:"currentQuantity"`
	Tags                  []string             `bson:"tags"`
	Location              string               `bson:"location"`
	CreatedAt             time.Time            `bson:"createdAt"`
	UpdatedAt             time.Time            `bson:"updatedAt"`
}

type MongoProductRepo struct{ c *mongo.Collection }

func NewMongoProductRepo(db *mongo.Database) *MongoProductRepo {
	return &MongoProductRepo{c: db.Collection("products")}
}

var _ domain.ProductRepository = (*MongoProductRepo)(nil)

func (r *MongoProductRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdBy", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("idx_owner_created")},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("idx_category_created")},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("idx_status_created")},
		{Keys: bson.D{{Key: "estimatedPurchaseDate", Value: 1}}, Options: options.Index().SetName("idx_purchase_date")},
		{Keys: bson.D{{Key: "interestedUsers", Value: 1}}, Options: options.Index().SetName("idx_interested_users")},
	})
	return err
}

func (r *MongoProductRepo) Create(ctx context.Context, p *domain.Product) error {
	doc, err := productToDoc(p)
	if err != nil {
		return err
	}
	_, err = r.c.InsertOne(ctx, doc)
	return mapErr(err)
}

func (r *MongoProductRepo) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	oid, err := toOID(id)
	if err != nil {
		return nil, err
	}
	var d productDoc
	if err := r.c.FindOne(ctx, bson.M{"_id": oid}).Decode(&d); err != nil {
		return nil, mapErr(err)
	}
	return docToProduct(&d), nil
}

func (r *MongoProductRepo) Save(ctx context.Context, p *domain.Product) error {
	doc, err := productToDoc(p)
	if err != nil {
		return err
	}
	res, err := r.c.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MongoProductRepo) Delete(ctx context.Context, id string) error {
	oid, err := toOID(id)
	if err != nil {
		return err
	}
	res, err := r.c.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return mapErr(err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MongoProductRepo) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int64, error) {
	f.Page = f.Page.Normalize()
	filter, err := productFilter(f)
	if err != nil {
		return nil, 0, err
	}
	total, err := r.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, mapErr(err)
	}
	opts := options.Find().
		SetSort(productSort(f.Sort)).
		SetSkip(int64(f.Offset())).
		SetLimit(int64(f.Limit))
	cur, err := r.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, mapErr(err)
	}
	defer cur.Close(ctx)

	var docs []productDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, mapErr(err)
	}
	out := make([]domain.Product, 0, len(docs))
	for i := range docs {
		out = append(out, *docToProduct(&docs[i]))
	}
	return out, total, nil
}

func (r *MongoProductRepo) Count(ctx context.Context, f domain.ProductFilter) (int64, error) {
	filter, err := productFilter(f)
	if err != nil {
		return 0, err
	}
	n, err := r.c.CountDocuments(ctx, filter)
	return n, mapErr(err)
}

func productFilter(f domain.ProductFilter) (bson.M, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.CreatedBy != "" {
		oid, err := toOID(f.CreatedBy)
		if err != nil {
			return nil, err
		}
		filter["createdBy"] = oid
	}
	if f.InterestedUser != "" {
		oid, err := toOID(f.InterestedUser)
		if err != nil {
			return nil, err
		}
		filter["interestedUsers"] = oid
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": re},
			bson.M{"description": re},
			bson.M{"tags": bson.M{"$in": bson.A{re}}},
		}
	}
	return filter, nil
}

func productSort(s domain.ProductSort) bson.D {
	switch s {
	case domain.SortOldest:
		return bson.D{{Key: "createdAt", Value: 1}}
	case domain.SortPriceLow:
		return bson.D{{Key: "price", Value: 1}, {Key: "createdAt", Value: -1}}
	case domain.SortPriceHigh:
		return bson.D{{Key: "price", Value: -1}, {Key: "createdAt", Value: -1}}
	default:
		return bson.D{{Key: "createdAt", Value: -1}}
	}
}

func productToDoc(p *domain.Product) (productDoc, error) {
	oid, err := toOID(p.ID)
	if err != nil {
		return productDoc{}, err
	}
	owner, err := toOID(p.CreatedBy)
	if err != nil {
		return productDoc{}, err
	}
	interested, err := toOIDs(p.InterestedUsers)
	if err != nil {
		return productDoc{}, err
	}
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return productDoc{
		ID:                    oid,
		Title:                 p.Title,
		Description:           p.Description,
		Price:                 p.Price,
		Image:                 p.Image,
		Category:              p.Category,
		EstimatedPurchaseDate: p.EstimatedPurchaseDate,
		CreatedBy:             owner,
		InterestedUsers:       interested,
		Status:                p.Status,
		MinQuantity:           p.MinQuantity,
		MaxQuantity:           p.MaxQuantity,
		CurrentQuantity:       len(p.InterestedUsers),
		Tags:                  tags,
		Location:              p.Location,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}, nil
}

func docToProduct(d *productDoc) *domain.Product {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return &domain.Product{
		ID:                    d.ID.Hex(),
		Title:                 d.Title,
		Description:           d.Description,
		Price:                 d.Price,
		Image:                 d.Image,
		Category:              d.Category,
		EstimatedPurchaseDate: d.EstimatedPurchaseDate,
		CreatedBy:             d.CreatedBy.Hex(),
		InterestedUsers:       hexIDs(d.InterestedUsers),
		Status:                d.Status,
		MinQuantity:           d.MinQuantity,
		MaxQuantity:           d.MaxQuantity,
		CurrentQuantity:       len(d.InterestedUsers),
		Tags:                  tags,
		Location:              d.Location,
		CreatedAt:             d.CreatedAt,
		UpdatedAt:             d.UpdatedAt,
	}
}
