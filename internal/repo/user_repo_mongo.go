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
	"bulkbuy-api/pkg/utils"
)

type userDoc struct {
	ID              primitive.ObjectID `bson:"_id"`
	Name            string             `bson:"name"`
	Email           string             `bson:"email"`
	Password        string             `bson:"password,omitempty"`
	Avatar          string             `bson:"avatar"`
	Role            string             `bson:"role"`
	IsActive        bool               `bson:"isActive"`
	IsEmailVerified bool               `bson:"isEmailVerified"`
	IsOnline        bool               `bson:"isOnline"`
	LastActivity    time.Time          `bson:"lastActivity"`
	LastLogin       *time.Time         `bson:"lastLogin,omitempty"`

	EmailVerificationOTP        *string    `bson:"emailVerificationOTP,omitempty"`
	EmailVerificationOTPExpires *time.Time `bson:"emailVerificationOTPExpires,omitempty"`
	PasswordResetOTP            *string    `bson:"passwordResetOTP,omitempty"`
	PasswordResetOTPExpires     *time.Time `bson:"passwordResetOTPExpires,omitempty"`

	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// 默认投影：排除密码和 OTP 字段
var userPublicProjection = bson.M{
	"password":                    0,
	"emailVerificationOTP":        0,
	"emailVerificationOTPExpires": 0,
	"passwordResetOTP":            0,
	"passwordResetOTPExpires":     0,
}

type MongoUserRepo struct{ c *mongo.Collection }

func NewMongoUserRepo(db *mongo.Database) *MongoUserRepo {
	return &MongoUserRepo{c: db.Collection("users")}
}

var _ domain.UserRepository = (*MongoUserRepo)(nil)

func (r *MongoUserRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("uniq_email").SetUnique(true)},
		{Keys: bson.D{{Key: "isOnline", Value: 1}, {Key: "lastActivity", Value: -1}}, Options: options.Index().SetName("idx_online_activity")},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}, Options: options.Index().SetName("idx_createdAt")},
	})
	return err
}

func (r *MongoUserRepo) Create(ctx context.Context, u *domain.User) error {
	doc, err := userToDoc(u)
	if err != nil {
		return err
	}
	_, err = r.c.InsertOne(ctx, doc)
	return mapErr(err)
}

func (r *MongoUserRepo) Delete(ctx context.Context, id string) error {
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

func (r *MongoUserRepo) findOne(ctx context.Context, filter bson.M, withSecrets bool) (*domain.User, error) {
	opts := options.FindOne()
	if !withSecrets {
		opts.SetProjection(userPublicProjection)
	}
	var d userDoc
	if err := r.c.FindOne(ctx, filter, opts).Decode(&d); err != nil {
		return nil, mapErr(err)
	}
	return docToUser(&d, withSecrets), nil
}

func (r *MongoUserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := toOID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid}, false)
}

func (r *MongoUserRepo) FindByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	oids, err := toOIDs(ids)
	if err != nil {
		return nil, err
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": oids}}, options.Find().SetProjection(userPublicProjection))
}

func (r *MongoUserRepo) Presence(ctx context.Context, id string) (*domain.Presence, error) {
	oid, err := toOID(id)
	if err != nil {
		return nil, err
	}
	var d struct {
		IsOnline     bool      `bson:"isOnline"`
		LastActivity time.Time `bson:"lastActivity"`
	}
	opts := options.FindOne().SetProjection(bson.M{"isOnline": 1, "lastActivity": 1})
	if err := r.c.FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&d); err != nil {
		return nil, mapErr(err)
	}
	return &domain.Presence{IsOnline: d.IsOnline, LastActivity: d.LastActivity}, nil
}

func (r *MongoUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": utils.NormalizeEmail(email)}, false)
}

func (r *MongoUserRepo) FindByEmailWithSecrets(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": utils.NormalizeEmail(email)}, true)
}

func (r *MongoUserRepo) EmailTakenByOther(ctx context.Context, email, excludeID string) (bool, error) {
	filter := bson.M{"email": utils.NormalizeEmail(email)}
	if oid, err := primitive.ObjectIDFromHex(excludeID); err == nil {
		filter["_id"] = bson.M{"$ne": oid}
	}
	n, err := r.c.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	return n > 0, mapErr(err)
}

func (r *MongoUserRepo) List(ctx context.Context, f domain.UserFilter) ([]domain.User, int64, error) {
	f.Page = f.Page.Normalize()
	filter := bson.M{}
	if !f.IncludeInactive {
		filter["isActive"] = true
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		filter["$or"] = bson.A{bson.M{"name": re}, bson.M{"email": re}}
	}
	total, err := r.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, mapErr(err)
	}
	opts := options.Find().
		SetProjection(userPublicProjection).
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(f.Offset())).
		SetLimit(int64(f.Limit))
	users, err := r.find(ctx, filter, opts)
	return users, total, err
}

func (r *MongoUserRepo) ListOnline(ctx context.Context, limit int) ([]domain.User, error) {
	opts := options.Find().
		SetProjection(userPublicProjection).
		SetSort(bson.D{{Key: "lastActivity", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, bson.M{"isOnline": true, "isActive": true}, opts)
}

func (r *MongoUserRepo) Count(ctx context.Context) (int64, error) {
	n, err := r.c.CountDocuments(ctx, bson.M{})
	return n, mapErr(err)
}

func (r *MongoUserRepo) UpdateProfile(ctx context.Context, id string, p domain.ProfileUpdate, now time.Time) (*domain.User, error) {
	set := bson.M{"updatedAt": now}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Email != nil {
		set["email"] = utils.NormalizeEmail(*p.Email)
	}
	if p.Avatar != nil {
		set["avatar"] = *p.Avatar
	}
	if err := r.updateByID(ctx, id, bson.M{"$set": set}); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *MongoUserRepo) SetActive(ctx context.Context, id string, active bool, now time.Time) error {
	set := bson.M{"isActive": active, "updatedAt": now}
	if !active {
		set["isOnline"] = false
	}
	return r.updateByID(ctx, id, bson.M{"$set": set})
}

func (r *MongoUserRepo) SetEmailOTP(ctx context.Context, id string, otp *domain.OTP) error {
	if otp == nil {
		return r.updateByID(ctx, id, bson.M{"$unset": bson.M{"emailVerificationOTP": "", "emailVerificationOTPExpires": ""}})
	}
	return r.updateByID(ctx, id, bson.M{"$set": bson.M{
		"emailVerificationOTP":        otp.Code,
		"emailVerificationOTPExpires": otp.ExpiresAt,
	}})
}

func (r *MongoUserRepo) MarkEmailVerified(ctx context.Context, id string, now time.Time) error {
	return r.updateByID(ctx, id, bson.M{
		"$set":   bson.M{"isEmailVerified": true, "updatedAt": now},
		"$unset": bson.M{"emailVerificationOTP": "", "emailVerificationOTPExpires": ""},
	})
}

func (r *MongoUserRepo) SetResetOTP(ctx context.Context, id string, otp *domain.OTP) error {
	if otp == nil {
		return r.updateByID(ctx, id, bson.M{"$unset": bson.M{"passwordResetOTP": "", "passwordResetOTPExpires": ""}})
	}
	return r.updateByID(ctx, id, bson.M{"$set": bson.M{
		"passwordResetOTP":        otp.Code,
		"passwordResetOTPExpires": otp.ExpiresAt,
	}})
}

func (r *MongoUserRepo) ResetPassword(ctx context.Context, id, hash string, now time.Time) error {
	return r.updateByID(ctx, id, bson.M{
		"$set":   bson.M{"password": hash, "updatedAt": now},
		"$unset": bson.M{"passwordResetOTP": "", "passwordResetOTPExpires": ""},
	})
}

func (r *MongoUserRepo) MarkLoggedIn(ctx context.Context, id string, now time.Time) error {
	return r.updateByID(ctx, id, bson.M{"$set": bson.M{"isOnline": true, "lastActivity": now, "lastLogin": now}})
}

func (r *MongoUserRepo) MarkOffline(ctx context.Context, id string) error {
	return r.updateByID(ctx, id, bson.M{"$set": bson.M{"isOnline": false}})
}

func (r *MongoUserRepo) TouchActivity(ctx context.Context, id string, now time.Time) error {
	oid, err := toOID(id)
	if err != nil {
		return err
	}
	_, err = r.c.UpdateOne(ctx,
		bson.M{"_id": oid, "isActive": true},
		bson.M{"$set": bson.M{"isOnline": true, "lastActivity": now}},
	)
	return mapErr(err)
}

func (r *MongoUserRepo) MarkIdleOffline(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.c.UpdateMany(ctx,
		bson.M{"isOnline": true, "lastActivity": bson.M{"$lt": cutoff}},
		bson.M{"$set": bson.M{"isOnline": false}},
	)
	if err != nil {
		return 0, mapErr(err)
	}
	return res.ModifiedCount, nil
}

func (r *MongoUserRepo) updateByID(ctx context.Context, id string, update bson.M) error {
	oid, err := toOID(id)
	if err != nil {
		return err
	}
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MongoUserRepo) find(ctx context.Context, filter any, opts *options.FindOptions) ([]domain.User, error) {
	cur, err := r.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, mapErr(err)
	}
	defer cur.Close(ctx)

	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mapErr(err)
	}
	out := make([]domain.User, 0, len(docs))
	for i := range docs {
		out = append(out, *docToUser(&docs[i], false))
	}
	return out, nil
}

func userToDoc(u *domain.User) (userDoc, error) {
	oid, err := toOID(u.ID)
	if err != nil {
		return userDoc{}, err
	}
	d := userDoc{
		ID:              oid,
		Name:            u.Name,
		Email:           utils.NormalizeEmail(u.Email),
		Password:        u.PasswordHash,
		Avatar:          u.Avatar,
		Role:            u.Role,
		IsActive:        u.IsActive,
		IsEmailVerified: u.IsEmailVerified,
		IsOnline:        u.IsOnline,
		LastActivity:    u.LastActivity,
		LastLogin:       u.LastLogin,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
	if o := u.EmailVerification; o != nil {
		code, exp := o.Code, o.ExpiresAt
		d.EmailVerificationOTP, d.EmailVerificationOTPExpires = &code, &exp
	}
	if o := u.PasswordReset; o != nil {
		code, exp := o.Code, o.ExpiresAt
		d.PasswordResetOTP, d.PasswordResetOTPExpires = &code, &exp
	}
	return d, nil
}

func docToUser(d *userDoc, withSecrets bool) *domain.User {
	u := &domain.User{
		ID:              d.ID.Hex(),
		Name:            d.Name,
		Email:           d.Email,
		Avatar:          d.Avatar,
		Role:            d.Role,
		IsActive:        d.IsActive,
		IsEmailVerified: d.IsEmailVerified,
		IsOnline:        d.IsOnline,
		LastActivity:    d.LastActivity,
		LastLogin:       d.LastLogin,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	if !withSecrets {
		return u
	}
	u.PasswordHash = d.Password
	if d.EmailVerificationOTP != nil && d.EmailVerificationOTPExpires != nil {
		u.EmailVerification = &domain.OTP{Code: *d.EmailVerificationOTP, ExpiresAt: *d.EmailVerificationOTPExpires}
	}
	if d.PasswordResetOTP != nil && d.PasswordResetOTPExpires != nil {
		u.PasswordReset = &domain.OTP{Code: *d.PasswordResetOTP, ExpiresAt: *d.PasswordResetOTPExpires}
	}
	return u
}

func toOID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, domain.ErrInvalidID
	}
	return oid, nil
}

func toOIDs(ids []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := toOID(id)
		if err != nil {
			return nil, err
		}
		out = append(out, oid)
	}
	return out, nil
}

func hexIDs(oids []primitive.ObjectID) []string {
	out := make([]string, 0, len(oids))
	for _, oid := range oids {
		out = append(out, oid.Hex())
	}
	return out
}
