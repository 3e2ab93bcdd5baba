package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/qualitrack/qc-api/internal/model"
	"github.com/qualitrack/qc-api/internal/repository"
)

type accountRepository struct {
	BaseRepository
}

// NewAccountRepository creates the caller account store.
func NewAccountRepository(base BaseRepository) repository.AccountRepository {
	return &accountRepository{base}
}

const accountColumns = "id, email, password_hash, role, created_at, updated_at"

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	query := fmt.Sprintf("SELECT %s FROM accounts WHERE LOWER(email) = LOWER($1)", accountColumns)

	var account model.Account
	err := r.db.GetContext(ctx, &account, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

func (r *accountRepository) Get(ctx context.Context, id int64) (*model.Account, error) {
	query := fmt.Sprintf("SELECT %s FROM accounts WHERE id = $1", accountColumns)

	var account model.Account
	err := r.db.GetContext(ctx, &account, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}
