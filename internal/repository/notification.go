package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/JustJay7/gosomi-court/internal/database"
	"github.com/JustJay7/gosomi-court/pkg/logger"
)

type NotificationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, n *database.Notification) error
	ListByUser(ctx context.Context, tx *gorm.DB, userID uint, limit int) ([]*database.Notification, error)
	ListUnpublished(ctx context.Context, tx *gorm.DB, limit int) ([]*database.Notification, error)
	MarkPublished(ctx context.Context, tx *gorm.DB, id uint) error
}

type notificationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNotificationRepo(db *gorm.DB, baseLog *logger.Logger) NotificationRepo {
	return &notificationRepo{db: db, log: baseLog.With("repo", "NotificationRepo")}
}

func (r *notificationRepo) Create(ctx context.Context, tx *gorm.DB, n *database.Notification) error {
	return pick(r.db, tx).WithContext(ctx).Create(n).Error
}

func (r *notificationRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uint, limit int) ([]*database.Notification, error) {
	out := []*database.Notification{}
	q := pick(r.db, tx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *notificationRepo) ListUnpublished(ctx context.Context, tx *gorm.DB, limit int) ([]*database.Notification, error) {
	out := []*database.Notification{}
	q := pick(r.db, tx).WithContext(ctx).
		Where("published = ?", false).
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *notificationRepo) MarkPublished(ctx context.Context, tx *gorm.DB, id uint) error {
	return pick(r.db, tx).WithContext(ctx).
		Model(&database.Notification{}).
		Where("id = ?", id).
		Update("published", true).Error
}
