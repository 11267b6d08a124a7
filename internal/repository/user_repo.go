package repository

import (
	"context"

	"pomoroom/internal/model"
	"pomoroom/internal/plan"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository interface {
	// CreateUser inserts the profile and its FREE subscription together.
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByStripeCustomerID(ctx context.Context, customerID string) (*model.User, error)
	UpdateStripeCustomerID(ctx context.Context, userID, customerID string) error
}

type userRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) UserRepository {
	return &userRepo{pool: pool}
}

func (r *userRepo) CreateUser(ctx context.Context, u *model.User) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const insertUser = `
            INSERT INTO user_profiles (user_id, name, email)
            VALUES ($1, $2, $3)
            RETURNING created_at, updated_at`
		if err := tx.QueryRow(ctx, insertUser, u.UserID, u.Name, u.Email).Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
			return classify(err, "insert user "+u.UserID)
		}
		const insertSub = `
            INSERT INTO user_subscriptions (user_id, tier, status)
            VALUES ($1, $2, 'active')
            ON CONFLICT (user_id) DO NOTHING`
		if _, err := tx.Exec(ctx, insertSub, u.UserID, string(plan.DefaultTier)); err != nil {
			return classify(err, "insert subscription for user "+u.UserID)
		}
		return nil
	})
}

const userColumns = `user_id, name, email, stripe_customer_id, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.UserID, &u.Name, &u.Email, &u.StripeCustomerID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM user_profiles WHERE user_id = $1`, id))
	if err != nil {
		return nil, classify(err, "fetch user "+id)
	}
	return u, nil
}

func (r *userRepo) GetUserByStripeCustomerID(ctx context.Context, customerID string) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM user_profiles WHERE stripe_customer_id = $1`, customerID))
	if err != nil {
		return nil, classify(err, "fetch user by stripe customer "+customerID)
	}
	return u, nil
}

func (r *userRepo) UpdateStripeCustomerID(ctx context.Context, userID, customerID string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE user_profiles SET stripe_customer_id = $2, updated_at = NOW() WHERE user_id = $1`, userID, customerID)
	if err != nil {
		return classify(err, "update stripe customer for user "+userID)
	}
	if tag.RowsAffected() == 0 {
		return classify(pgx.ErrNoRows, "update stripe customer for user "+userID)
	}
	return nil
}
