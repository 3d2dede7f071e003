package repositories

import (
	"context"
	"time"

	"cmm-stock/internal/adapters/persistence/models"
	"cmm-stock/internal/core/domain"
)

// UserRepository defines user repository interface
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	CountByRole(ctx context.Context, role domain.Role) (int64, error)
	UpdateRole(ctx context.Context, id uint, role domain.Role) (int64, error)
	Delete(ctx context.Context, id uint) (int64, error)
}

// RefreshTokenRepository defines refresh token repository interface
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	RevokeByTokenHash(ctx context.Context, tokenHash string, now time.Time) (int64, error)
	RevokeAllByUserID(ctx context.Context, userID uint, now time.Time) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// TransactionFilter narrows a transaction listing. Limit 0 returns every row.
type TransactionFilter struct {
	Search string
	Sort   string
	Desc   bool
	// From keeps pickup dates at or after it, Before those strictly before it.
	// Zero values leave that side open.
	From   time.Time
	Before time.Time
	Offset int
	Limit  int
}

// TransactionRepository stores inbound and outbound transactions. Every
// method takes the class, which selects the table.
type TransactionRepository interface {
	List(ctx context.Context, class domain.TransactionClass, filter TransactionFilter) ([]*models.Transaction, int64, error)
	GetByHumanID(ctx context.Context, class domain.TransactionClass, humanID string) (*models.Transaction, error)
	// Create allocates the next id under prefix and inserts rec in one
	// database transaction. rec.HumanID is set on success.
	Create(ctx context.Context, class domain.TransactionClass, prefix string, rec *models.Transaction) error
	// PeekNextSequence returns the sequence Create would use next, without consuming it.
	PeekNextSequence(ctx context.Context, class domain.TransactionClass, prefix string) (int, error)
	// SyncSequence moves the sequence past the greatest stored id under prefix.
	SyncSequence(ctx context.Context, class domain.TransactionClass, prefix string) error
	Update(ctx context.Context, class domain.TransactionClass, humanID string, rec *models.Transaction) (*models.Transaction, error)
	Delete(ctx context.Context, class domain.TransactionClass, humanID string) (int64, error)
}
