package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/coursereg/registration-system/internal/core/domain"
	"github.com/coursereg/registration-system/internal/core/ports"
)

const userColumns = `id, username, email, password_hash, full_name, role, created_at, updated_at`

// UserRepository implements ports.UserRepository on SQLite.
type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) ports.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	const q = `
		INSERT INTO users (username, email, password_hash, full_name, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	res, err := r.db.x.ExecContext(ctx, q,
		user.Username, user.Email, user.PasswordHash, user.FullName, user.Role,
		toMillis(user.CreatedAt), toMillis(user.UpdatedAt),
	)
	if err != nil {
		return nil, mapUserError(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("user id: %w", err)
	}
	created := *user
	created.ID = id
	return &created, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	var rows []userRow
	if err := r.db.x.SelectContext(ctx, &rows, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`); err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}

	users := make([]*domain.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toDomain())
	}
	return users, nil
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	const q = `UPDATE users SET full_name = ?, email = ?, role = ?, updated_at = ? WHERE id = ?`

	res, err := r.db.x.ExecContext(ctx, q, user.FullName, user.Email, user.Role, toMillis(user.UpdatedAt), user.ID)
	if err != nil {
		return mapUserError(err)
	}
	return requireAffected(res, domain.ErrUserNotFound)
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.x.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireAffected(res, domain.ErrUserNotFound)
}

func (r *UserRepository) findOne(ctx context.Context, q string, arg any) (*domain.User, error) {
	var row userRow
	if err := r.db.x.GetContext(ctx, &row, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return row.toDomain(), nil
}

func mapUserError(err error) error {
	switch {
	case isUniqueViolation(err, "users.email"):
		return domain.ErrDuplicateEmail
	case isUniqueViolation(err, "users.username"):
		return domain.ErrDuplicateUsername
	}
	return fmt.Errorf("write user: %w", err)
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
