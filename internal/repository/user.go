package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/JustJay7/gosomi-court/internal/database"
	"github.com/JustJay7/gosomi-court/pkg/logger"
)

type UserRepo interface {
	Create(ctx context.Context, tx *gorm.DB, user *database.User) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*database.User, error)
	// Missing returns the ids from ids that have no user row.
	Missing(ctx context.Context, tx *gorm.DB, ids []uint) ([]uint, error)
	RandomExcluding(ctx context.Context, tx *gorm.DB, exclude []uint, limit int) ([]uint, error)
	UpdateWinRate(ctx context.Context, tx *gorm.DB, id uint, rate float64) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (r *userRepo) Create(ctx context.Context, tx *gorm.DB, user *database.User) error {
	return pick(r.db, tx).WithContext(ctx).Create(user).Error
}

func (r *userRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*database.User, error) {
	var user database.User
	if err := pick(r.db, tx).WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *userRepo) Missing(ctx context.Context, tx *gorm.DB, ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var found []uint
	if err := pick(r.db, tx).WithContext(ctx).
		Model(&database.User{}).
		Where("id IN ?", ids).
		Pluck("id", &found).Error; err != nil {
		return nil, err
	}

	have := make(map[uint]bool, len(found))
	for _, id := range found {
		have[id] = true
	}
	var missing []uint
	for _, id := range ids {
		if !have[id] {
			missing = append(missing, id)
			have[id] = true
		}
	}
	return missing, nil
}

func (r *userRepo) RandomExcluding(ctx context.Context, tx *gorm.DB, exclude []uint, limit int) ([]uint, error) {
	if limit <= 0 {
		return nil, nil
	}

	q := pick(r.db, tx).WithContext(ctx).Model(&database.User{})
	if len(exclude) > 0 {
		q = q.Where("id NOT IN ?", exclude)
	}

	var ids []uint
	if err := q.Order("RANDOM()").Limit(limit).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *userRepo) UpdateWinRate(ctx context.Context, tx *gorm.DB, id uint, rate float64) error {
	res := pick(r.db, tx).WithContext(ctx).
		Model(&database.User{}).
		Where("id = ?", id).
		Update("win_rate", rate)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
