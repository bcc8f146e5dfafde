package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/JustJay7/gosomi-court/internal/database"
	"github.com/JustJay7/gosomi-court/pkg/logger"
)

type DefenseRepo interface {
	Create(ctx context.Context, tx *gorm.DB, d *database.Defense) error
	// GetByCase returns ErrNotFound when the case has no defense yet.
	GetByCase(ctx context.Context, tx *gorm.DB, caseID uint) (*database.Defense, error)
}

type defenseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDefenseRepo(db *gorm.DB, baseLog *logger.Logger) DefenseRepo {
	return &defenseRepo{db: db, log: baseLog.With("repo", "DefenseRepo")}
}

func (r *defenseRepo) Create(ctx context.Context, tx *gorm.DB, d *database.Defense) error {
	return pick(r.db, tx).WithContext(ctx).Create(d).Error
}

func (r *defenseRepo) GetByCase(ctx context.Context, tx *gorm.DB, caseID uint) (*database.Defense, error) {
	var d database.Defense
	if err := pick(r.db, tx).WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("id ASC").
		First(&d).Error; err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}
