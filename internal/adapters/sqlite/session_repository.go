package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/atvirokodosprendimai/envadmin/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/envadmin/internal/core/domain"
)

type sessionModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	TokenHash string    `gorm:"column:token_hash;not null"`
	UserID    string    `gorm:"column:user_id;not null"`
	Email     string    `gorm:"column:email;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime:false"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null"`
}

func (sessionModel) TableName() string {
	return "admin_sessions"
}

type SessionRepository struct {
	db *gormsqlite.DB
}

func NewSessionRepository(db *gormsqlite.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, s domain.Session) error {
	model := sessionModel{
		ID:        s.ID,
		TokenHash: s.TokenHash,
		UserID:    s.UserID,
		Email:     s.Email,
		CreatedAt: s.CreatedAt.UTC(),
		ExpiresAt: s.ExpiresAt.UTC(),
	}
	if err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Create(&model).Error
	}); err != nil {
		return fmt.Errorf("insert session: %w", translateWriteError(err))
	}
	return nil
}

func (r *SessionRepository) FindByTokenHash(ctx context.Context, tokenHash string) (domain.Session, error) {
	var model sessionModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where("token_hash = ?", tokenHash).First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Session{}, domain.ErrNotFound
		}
		return domain.Session{}, fmt.Errorf("find session: %w", err)
	}
	return domain.Session{
		ID:        model.ID,
		TokenHash: model.TokenHash,
		UserID:    model.UserID,
		Email:     model.Email,
		CreatedAt: model.CreatedAt.UTC(),
		ExpiresAt: model.ExpiresAt.UTC(),
	}, nil
}

func (r *SessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) (bool, error) {
	var affected int64
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		res := tx.Where("token_hash = ?", tokenHash).Delete(&sessionModel{})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	return affected > 0, nil
}

// DeleteExpired removes sessions that expired before now.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var affected int64
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		res := tx.Where("expires_at <= ?", now.UTC()).Delete(&sessionModel{})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return affected, nil
}
