package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/oksasatya/go-auth-otp-service/internal/domain/entity"
	"github.com/oksasatya/go-auth-otp-service/internal/domain/repository"
)

const usersCollection = "users"

var errNotFound = errors.New("not found")

type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(usersCollection)}
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if _, err := r.col.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	u := &entity.User{}
	err := r.col.FindOne(ctx, bson.M{"email": email}).Decode(u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) Save(ctx context.Context, u *entity.User) error {
	set := bson.M{
		"name":     u.Name,
		"email":    u.Email,
		"password": u.Password,
	}
	update := bson.M{}
	if u.HasPendingOTP() {
		set["otp"] = u.OTP
		set["otpExpiry"] = u.OTPExpiry
	} else {
		// otp and otpExpiry leave the document together
		update["$unset"] = bson.M{"otp": "", "otpExpiry": ""}
	}
	if u.Role != "" {
		set["role"] = u.Role
	}
	update["$set"] = set

	res, err := r.col.UpdateByID(ctx, u.ID, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicateEmail
		}
		return err
	}
	if res.MatchedCount == 0 {
		return errNotFound
	}
	return nil
}

func (r *UserRepository) CountByDay(ctx context.Context) ([]repository.DailyRegistration, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{
				{Key: "$dateToString", Value: bson.D{
					{Key: "format", Value: "%Y-%m-%d"},
					{Key: "date", Value: "$createdAt"},
				}},
			}},
			{Key: "registrations", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()

	out := make([]repository.DailyRegistration, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
