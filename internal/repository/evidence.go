package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/JustJay7/gosomi-court/internal/database"
	"github.com/JustJay7/gosomi-court/pkg/logger"
)

type EvidenceRepo interface {
	Create(ctx context.Context, tx *gorm.DB, items []*database.Evidence) error
	ListByCase(ctx context.Context, tx *gorm.DB, caseID uint) ([]*database.Evidence, error)
}

type evidenceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEvidenceRepo(db *gorm.DB, baseLog *logger.Logger) EvidenceRepo {
	return &evidenceRepo{db: db, log: baseLog.With("repo", "EvidenceRepo")}
}

func (r *evidenceRepo) Create(ctx context.Context, tx *gorm.DB, items []*database.Evidence) error {
	if len(items) == 0 {
		return nil
	}
	return pick(r.db, tx).WithContext(ctx).Create(&items).Error
}

// ListByCase returns evidence in submission order. The result is never nil.
func (r *evidenceRepo) ListByCase(ctx context.Context, tx *gorm.DB, caseID uint) ([]*database.Evidence, error) {
	items := []*database.Evidence{}
	if err := pick(r.db, tx).WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
