package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"globetrackr/api/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

const uniqueViolation = "23505"

// userColumns omits password_hash; the hash is only selected on the
// explicit withHash paths, mirroring a select-protected field.
const userColumns = `
	id, name, email, role, active, phone,
	card_holder, card_expiry, card_number_ciphertext, card_number_iv,
	card_cvv_ciphertext, card_cvv_iv,
	password_changed_at, password_reset_token_hash, password_reset_expires_at,
	created_at, updated_at
`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.Active,
		&user.Phone,
		&user.CreditCard.CardHolder,
		&user.CreditCard.ExpiryDate,
		&user.CreditCard.NumberCiphertext,
		&user.CreditCard.NumberIV,
		&user.CreditCard.CVVCiphertext,
		&user.CreditCard.CVVIV,
		&user.PasswordChangedAt,
		&user.PasswordResetTokenHash,
		&user.PasswordResetExpiresAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func scanUserWithHash(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.Active,
		&user.Phone,
		&user.CreditCard.CardHolder,
		&user.CreditCard.ExpiryDate,
		&user.CreditCard.NumberCiphertext,
		&user.CreditCard.NumberIV,
		&user.CreditCard.CVVCiphertext,
		&user.CreditCard.CVVIV,
		&user.PasswordChangedAt,
		&user.PasswordResetTokenHash,
		&user.PasswordResetExpiresAt,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.PasswordHash,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user models.User) error {
	const query = `
		INSERT INTO users (
			id, name, email, password_hash, role, active, phone,
			card_holder, card_expiry, card_number_ciphertext, card_number_iv,
			card_cvv_ciphertext, card_cvv_iv, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.Active,
		user.Phone,
		user.CreditCard.CardHolder,
		user.CreditCard.ExpiryDate,
		user.CreditCard.NumberCiphertext,
		user.CreditCard.NumberIV,
		user.CreditCard.CVVCiphertext,
		user.CreditCard.CVVIV,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

// FindByEmail looks a user up by normalized email. The password hash is
// included only when withHash is set; login is the sole caller that needs it.
func (r *UserRepository) FindByEmail(ctx context.Context, email string, withHash bool) (models.User, error) {
	if withHash {
		const query = `SELECT ` + userColumns + `, password_hash FROM users WHERE email = $1`
		return scanUserWithHash(r.pool.QueryRow(ctx, query, email))
	}
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

// GetByIDWithHash is used by the password-change flow, which must verify
// the current password before accepting a new one.
func (r *UserRepository) GetByIDWithHash(ctx context.Context, id string) (models.User, error) {
	const query = `SELECT ` + userColumns + `, password_hash FROM users WHERE id = $1`
	return scanUserWithHash(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Update writes the mutable profile attributes. Password and reset-token
// columns have their own dedicated operations and are never touched here.
func (r *UserRepository) Update(ctx context.Context, user models.User) error {
	const query = `
		UPDATE users SET
			name = $2, email = $3, role = $4, active = $5, phone = $6,
			card_holder = $7, card_expiry = $8,
			card_number_ciphertext = $9, card_number_iv = $10,
			card_cvv_ciphertext = $11, card_cvv_iv = $12,
			updated_at = NOW()
		WHERE id = $1
	`

	cmd, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.Role,
		user.Active,
		user.Phone,
		user.CreditCard.CardHolder,
		user.CreditCard.ExpiryDate,
		user.CreditCard.NumberCiphertext,
		user.CreditCard.NumberIV,
		user.CreditCard.CVVCiphertext,
		user.CreditCard.CVVIV,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrEmailTaken
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdatePassword sets the new hash and password_changed_at in one
// statement so the pair can never be observed half-applied. Any pending
// reset token is cleared at the same time.
func (r *UserRepository) UpdatePassword(ctx context.Context, id string, hash []byte, changedAt time.Time) error {
	const query = `
		UPDATE users SET
			password_hash = $2,
			password_changed_at = $3,
			password_reset_token_hash = NULL,
			password_reset_expires_at = NULL,
			updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id, hash, changedAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetResetToken stores the reset token digest and expiry as a pair.
func (r *UserRepository) SetResetToken(ctx context.Context, id string, tokenHash []byte, expiresAt time.Time) error {
	const query = `
		UPDATE users SET
			password_reset_token_hash = $2,
			password_reset_expires_at = $3,
			updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id, tokenHash, expiresAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ClearResetToken removes a pending reset token, e.g. after a failed
// delivery attempt.
func (r *UserRepository) ClearResetToken(ctx context.Context, id string) error {
	const query = `
		UPDATE users SET
			password_reset_token_hash = NULL,
			password_reset_expires_at = NULL,
			updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

// ConsumeResetToken atomically redeems an unexpired reset token: it sets
// the new password hash, stamps password_changed_at and clears the token
// pair in a single conditional UPDATE. The row predicate is the
// compare-and-set that makes the token single-use under concurrent
// attempts; the loser sees zero rows and gets ErrUserNotFound.
func (r *UserRepository) ConsumeResetToken(ctx context.Context, tokenHash []byte, newHash []byte, changedAt time.Time) (models.User, error) {
	const query = `
		UPDATE users SET
			password_hash = $2,
			password_changed_at = $3,
			password_reset_token_hash = NULL,
			password_reset_expires_at = NULL,
			updated_at = NOW()
		WHERE password_reset_token_hash = $1
		  AND password_reset_expires_at > NOW()
		RETURNING ` + userColumns

	return scanUser(r.pool.QueryRow(ctx, query, tokenHash, newHash, changedAt))
}

func (r *UserRepository) DeleteByID(ctx context.Context, id string) error {
	const query = `DELETE FROM users WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// PurgeExpiredResetTokens clears token pairs whose window has long passed.
// Verification never trusts a stored pair without checking expiry, so this
// is hygiene rather than a correctness requirement.
func (r *UserRepository) PurgeExpiredResetTokens(ctx context.Context) (int64, error) {
	const query = `
		UPDATE users SET
			password_reset_token_hash = NULL,
			password_reset_expires_at = NULL,
			updated_at = NOW()
		WHERE password_reset_expires_at IS NOT NULL
		  AND password_reset_expires_at < NOW()
	`
	cmd, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
