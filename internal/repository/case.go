package repository

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JustJay7/gosomi-court/internal/database"
	"github.com/JustJay7/gosomi-court/pkg/logger"
)

type CaseRepo interface {
	Create(ctx context.Context, tx *gorm.DB, c *database.Case) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*database.Case, error)
	// Update writes the named columns of c.
	Update(ctx context.Context, tx *gorm.DB, c *database.Case, columns ...string) error
	// UpdateIf writes the named columns of c only while the stored row still
	// matches cond. A row that no longer matches yields ErrStale.
	UpdateIf(ctx context.Context, tx *gorm.DB, c *database.Case, cond map[string]any, columns ...string) error
	// NextCaseNumber atomically reserves the next number for year.
	NextCaseNumber(ctx context.Context, tx *gorm.DB, year int) (string, error)
	ListByParty(ctx context.Context, tx *gorm.DB, userID uint) ([]*database.Case, error)
	ListCompletedByParty(ctx context.Context, tx *gorm.DB, userID uint) ([]*database.Case, error)
}

type caseRepo struct {
	db  *gorm.DB
	log *logger.Logger
	// serialises sequence bumps within the process; the row update
	// serialises across processes.
	seqMu sync.Mutex
}

func NewCaseRepo(db *gorm.DB, baseLog *logger.Logger) CaseRepo {
	return &caseRepo{db: db, log: baseLog.With("repo", "CaseRepo")}
}

// FormatCaseNumber renders the public case number.
func FormatCaseNumber(year, seq int) string {
	return fmt.Sprintf("%d-GOSOMI-%04d", year, seq)
}

func (r *caseRepo) Create(ctx context.Context, tx *gorm.DB, c *database.Case) error {
	return pick(r.db, tx).WithContext(ctx).Create(c).Error
}

func (r *caseRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*database.Case, error) {
	var c database.Case
	if err := pick(r.db, tx).WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *caseRepo) Update(ctx context.Context, tx *gorm.DB, c *database.Case, columns ...string) error {
	if len(columns) == 0 {
		return fmt.Errorf("no columns to update")
	}
	res := pick(r.db, tx).WithContext(ctx).
		Model(c).
		Select(columns).
		Updates(c)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *caseRepo) UpdateIf(ctx context.Context, tx *gorm.DB, c *database.Case, cond map[string]any, columns ...string) error {
	if len(columns) == 0 {
		return fmt.Errorf("no columns to update")
	}
	res := pick(r.db, tx).WithContext(ctx).
		Model(c).
		Where(cond).
		Select(columns).
		Updates(c)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		r.log.Debug("Conditional update matched no row", "case_id", c.ID, "cond", cond)
		return ErrStale
	}
	return nil
}

func (r *caseRepo) NextCaseNumber(ctx context.Context, tx *gorm.DB, year int) (string, error) {
	r.seqMu.Lock()
	defer r.seqMu.Unlock()

	db := pick(r.db, tx).WithContext(ctx)

	if err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&database.CaseSequence{Year: year}).Error; err != nil {
		return "", fmt.Errorf("failed to seed case sequence: %w", err)
	}

	if err := db.Model(&database.CaseSequence{}).
		Where("year = ?", year).
		UpdateColumn("value", gorm.Expr("value + ?", 1)).Error; err != nil {
		return "", fmt.Errorf("failed to bump case sequence: %w", err)
	}

	var seq database.CaseSequence
	if err := db.Where("year = ?", year).First(&seq).Error; err != nil {
		return "", fmt.Errorf("failed to read case sequence: %w", err)
	}

	return FormatCaseNumber(year, seq.Value), nil
}

func (r *caseRepo) ListByParty(ctx context.Context, tx *gorm.DB, userID uint) ([]*database.Case, error) {
	var cases []*database.Case
	if err := pick(r.db, tx).WithContext(ctx).
		Where("plaintiff_id = ? OR defendant_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&cases).Error; err != nil {
		return nil, err
	}
	return cases, nil
}

func (r *caseRepo) ListCompletedByParty(ctx context.Context, tx *gorm.DB, userID uint) ([]*database.Case, error) {
	var cases []*database.Case
	if err := pick(r.db, tx).WithContext(ctx).
		Where("status = ?", database.StatusCompleted).
		Where("plaintiff_id = ? OR defendant_id = ?", userID, userID).
		Find(&cases).Error; err != nil {
		return nil, err
	}
	return cases, nil
}
