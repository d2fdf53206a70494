package repo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bulkbuy-api/internal/domain"
)

type commentDoc struct {
	ID            primitive.ObjectID   `bson:"_id"`
	Text          string               `bson:"text"`
	ProductID     primitive.ObjectID   `bson:"productId"`
	UserID        primitive.ObjectID   `bson:"userId"`
	ParentComment *primitive.ObjectID  `bson:"parentComment"`
	Replies       []primitive.ObjectID `bson:"replies"`
	Likes         []primitive.ObjectID `bson:"likes"`
	IsEdited      bool                 `bson:"isEdited"`
	EditedAt      *time.Time           `bson:"editedAt,omitempty"`
	CreatedAt     time.Time            `bson:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt"`
}

type MongoCommentRepo struct{ c *mongo.Collection }

func NewMongoCommentRepo(db *mongo.Database) *MongoCommentRepo {
	return &MongoCommentRepo{c: db.Collection("comments")}
}

var _ domain.CommentRepository = (*MongoCommentRepo)(nil)

func (r *MongoCommentRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "productId", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("idx_product_created")},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("idx_user_created")},
		{Keys: bson.D{{Key: "parentComment", Value: 1}, {Key: "createdAt", Value: 1}}, Options: options.Index().SetName("idx_parent_created")},
	})
	return err
}

func (r *MongoCommentRepo) Create(ctx context.Context, c *domain.Comment) error {
	doc, err := commentToDoc(c)
	if err != nil {
		return err
	}
	_, err = r.c.InsertOne(ctx, doc)
	return mapErr(err)
}

func (r *MongoCommentRepo) FindByID(ctx context.Context, id string) (*domain.Comment, error) {
	oid, err := toOID(id)
	if err != nil {
		return nil, err
	}
	var d commentDoc
	if err := r.c.FindOne(ctx, bson.M{"_id": oid}).Decode(&d); err != nil {
		return nil, mapErr(err)
	}
	return docToComment(&d), nil
}

func (r *MongoCommentRepo) FindByIDs(ctx context.Context, ids []string) ([]domain.Comment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	oids, err := toOIDs(ids)
	if err != nil {
		return nil, err
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": oids}}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

func (r *MongoCommentRepo) Save(ctx context.Context, c *domain.Comment) error {
	doc, err := commentToDoc(c)
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

func (r *MongoCommentRepo) Delete(ctx context.Context, id string) error {
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

func (r *MongoCommentRepo) DeleteByParent(ctx context.Context, parentID string) (int64, error) {
	oid, err := toOID(parentID)
	if err != nil {
		return 0, err
	}
	res, err := r.c.DeleteMany(ctx, bson.M{"parentComment": oid})
	if err != nil {
		return 0, mapErr(err)
	}
	return res.DeletedCount, nil
}

func (r *MongoCommentRepo) DeleteByProduct(ctx context.Context, productID string) (int64, error) {
	oid, err := toOID(productID)
	if err != nil {
		return 0, err
	}
	res, err := r.c.DeleteMany(ctx, bson.M{"productId": oid})
	if err != nil {
		return 0, mapErr(err)
	}
	return res.DeletedCount, nil
}

func (r *MongoCommentRepo) PushReply(ctx context.Context, parentID, childID string) error {
	return r.updateReplies(ctx, parentID, childID, "$addToSet")
}

func (r *MongoCommentRepo) PullReply(ctx context.Context, parentID, childID string) error {
	return r.updateReplies(ctx, parentID, childID, "$pull")
}

func (r *MongoCommentRepo) updateReplies(ctx context.Context, parentID, childID, op string) error {
	pid, err := toOID(parentID)
	if err != nil {
		return err
	}
	cid, err := toOID(childID)
	if err != nil {
		return err
	}
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": pid}, bson.M{op: bson.M{"replies": cid}})
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MongoCommentRepo) List(ctx context.Context, f domain.CommentFilter) ([]domain.Comment, int64, error) {
	f.Page = f.Page.Normalize()
	filter, err := commentFilter(f)
	if err != nil {
		return nil, 0, err
	}
	total, err := r.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, mapErr(err)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(f.Offset())).
		SetLimit(int64(f.Limit))
	out, err := r.find(ctx, filter, opts)
	return out, total, err
}

func (r *MongoCommentRepo) Count(ctx context.Context, f domain.CommentFilter) (int64, error) {
	filter, err := commentFilter(f)
	if err != nil {
		return 0, err
	}
	n, err := r.c.CountDocuments(ctx, filter)
	return n, mapErr(err)
}

func (r *MongoCommentRepo) find(ctx context.Context, filter any, opts *options.FindOptions) ([]domain.Comment, error) {
	cur, err := r.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, mapErr(err)
	}
	defer cur.Close(ctx)

	var docs []commentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mapErr(err)
	}
	out := make([]domain.Comment, 0, len(docs))
	for i := range docs {
		out = append(out, *docToComment(&docs[i]))
	}
	return out, nil
}

func commentFilter(f domain.CommentFilter) (bson.M, error) {
	filter := bson.M{}
	if f.ProductID != "" {
		oid, err := toOID(f.ProductID)
		if err != nil {
			return nil, err
		}
		filter["productId"] = oid
	}
	if f.UserID != "" {
		oid, err := toOID(f.UserID)
		if err != nil {
			return nil, err
		}
		filter["userId"] = oid
	}
	if f.TopLevelOnly {
		filter["parentComment"] = nil
	}
	return filter, nil
}

func commentToDoc(c *domain.Comment) (commentDoc, error) {
	oid, err := toOID(c.ID)
	if err != nil {
		return commentDoc{}, err
	}
	pid, err := toOID(c.ProductID)
	if err != nil {
		return commentDoc{}, err
	}
	uid, err := toOID(c.UserID)
	if err != nil {
		return commentDoc{}, err
	}
	replies, err := toOIDs(c.Replies)
	if err != nil {
		return commentDoc{}, err
	}
	likes, err := toOIDs(c.Likes)
	if err != nil {
		return commentDoc{}, err
	}
	d := commentDoc{
		ID:        oid,
		Text:      c.Text,
		ProductID: pid,
		UserID:    uid,
		Replies:   replies,
		Likes:     likes,
		IsEdited:  c.IsEdited,
		EditedAt:  c.EditedAt,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if c.ParentComment != "" {
		parent, err := toOID(c.ParentComment)
		if err != nil {
			return commentDoc{}, err
		}
		d.ParentComment = &parent
	}
	return d, nil
}

func docToComment(d *commentDoc) *domain.Comment {
	c := &domain.Comment{
		ID:        d.ID.Hex(),
		Text:      d.Text,
		ProductID: d.ProductID.Hex(),
		UserID:    d.UserID.Hex(),
		Replies:   hexIDs(d.Replies),
		Likes:     hexIDs(d.Likes),
		IsEdited:  d.IsEdited,
		EditedAt:  d.EditedAt,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if d.ParentComment != nil {
		c.ParentComment = d.ParentComment.Hex()
	}
	return c
}
