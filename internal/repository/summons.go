package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/JustJay7/gosomi-court/internal/database"
	"github.com/JustJay7/gosomi-court/pkg/logger"
)

type SummonsRepo interface {
	GetByCase(ctx context.Context, tx *gorm.DB, caseID uint) (*database.Summons, error)
	GetByToken(ctx context.Context, tx *gorm.DB, token string) (*database.Summons, error)
	// Replace stores a new token for the case, superseding any previous one.
	Replace(ctx context.Context, tx *gorm.DB, caseID uint, token string, expiresAt time.Time) (*database.Summons, error)
}

type summonsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSummonsRepo(db *gorm.DB, baseLog *logger.Logger) SummonsRepo {
	return &summonsRepo{db: db, log: baseLog.With("repo", "SummonsRepo")}
}

func (r *summonsRepo) GetByCase(ctx context.Context, tx *gorm.DB, caseID uint) (*database.Summons, error) {
	var s database.Summons
	if err := pick(r.db, tx).WithContext(ctx).Where("case_id = ?", caseID).First(&s).Error; err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *summonsRepo) GetByToken(ctx context.Context, tx *gorm.DB, token string) (*database.Summons, error) {
	var s database.Summons
	if err := pick(r.db, tx).WithContext(ctx).Where("token = ?", token).First(&s).Error; err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *summonsRepo) Replace(ctx context.Context, tx *gorm.DB, caseID uint, token string, expiresAt time.Time) (*database.Summons, error) {
	db := pick(r.db, tx).WithContext(ctx)

	var s database.Summons
	err := db.Where("case_id = ?", caseID).First(&s).Error
	switch {
	case err == nil:
		s.Token = token
		s.ExpiresAt = expiresAt
		if err := db.Save(&s).Error; err != nil {
			return nil, err
		}
		return &s, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		s = database.Summons{CaseID: caseID, Token: token, ExpiresAt: expiresAt}
		if err := db.Create(&s).Error; err != nil {
			return nil, err
		}
		return &s, nil
	default:
		return nil, err
	}
}
