// Package repository holds the gorm-backed stores for cases, evidence,
// defenses, jurors, summonses, users and notifications.
//
// Every method takes an optional *gorm.DB transaction; nil means the
// repository's own handle.
package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/JustJay7/gosomi-court/pkg/logger"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrAlreadyVoted = errors.New("juror has already voted")
	// ErrStale is returned by conditional updates whose row no longer
	// matches the expected state.
	ErrStale = errors.New("record changed concurrently")
)

// Repositories bundles every store over one database handle.
type Repositories struct {
	DB            *gorm.DB
	Users         UserRepo
	Cases         CaseRepo
	Evidence      EvidenceRepo
	Defenses      DefenseRepo
	Jurors        JuryRepo
	Summons       SummonsRepo
	Notifications NotificationRepo
}

func New(db *gorm.DB, log *logger.Logger) *Repositories {
	return &Repositories{
		DB:            db,
		Users:         NewUserRepo(db, log),
		Cases:         NewCaseRepo(db, log),
		Evidence:      NewEvidenceRepo(db, log),
		Defenses:      NewDefenseRepo(db, log),
		Jurors:        NewJuryRepo(db, log),
		Summons:       NewSummonsRepo(db, log),
		Notifications: NewNotificationRepo(db, log),
	}
}

func pick(db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
