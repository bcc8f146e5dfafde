package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JustJay7/gosomi-court/internal/database"
	"github.com/JustJay7/gosomi-court/pkg/logger"
)

// Tally counts cast jury votes for a case.
type Tally struct {
	Plaintiff int `json:"plaintiff"`
	Defendant int `json:"defendant"`
	Total     int `json:"total"`
}

type JuryRepo interface {
	// Register adds INVITED jurors, ignoring users already on the jury.
	Register(ctx context.Context, tx *gorm.DB, caseID uint, userIDs []uint) ([]*database.Juror, error)
	Get(ctx context.Context, tx *gorm.DB, caseID, userID uint) (*database.Juror, error)
	// RecordVote moves an INVITED juror to VOTED. A juror who already voted
	// yields ErrAlreadyVoted.
	RecordVote(ctx context.Context, tx *gorm.DB, juror *database.Juror, vote database.PartyRole) error
	ListByCase(ctx context.Context, tx *gorm.DB, caseID uint) ([]*database.Juror, error)
	Tally(ctx context.Context, tx *gorm.DB, caseID uint) (Tally, error)
}

type juryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJuryRepo(db *gorm.DB, baseLog *logger.Logger) JuryRepo {
	return &juryRepo{db: db, log: baseLog.With("repo", "JuryRepo")}
}

func (r *juryRepo) Register(ctx context.Context, tx *gorm.DB, caseID uint, userIDs []uint) ([]*database.Juror, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	jurors := make([]*database.Juror, 0, len(userIDs))
	for _, id := range userIDs {
		jurors = append(jurors, &database.Juror{CaseID: caseID, UserID: id, Status: database.JurorInvited})
	}
	if err := pick(r.db, tx).WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&jurors).Error; err != nil {
		return nil, err
	}
	return jurors, nil
}

func (r *juryRepo) Get(ctx context.Context, tx *gorm.DB, caseID, userID uint) (*database.Juror, error) {
	var j database.Juror
	if err := pick(r.db, tx).WithContext(ctx).
		Where("case_id = ? AND user_id = ?", caseID, userID).
		First(&j).Error; err != nil {
		return nil, notFound(err)
	}
	return &j, nil
}

func (r *juryRepo) RecordVote(ctx context.Context, tx *gorm.DB, juror *database.Juror, vote database.PartyRole) error {
	res := pick(r.db, tx).WithContext(ctx).
		Model(&database.Juror{}).
		Where("id = ? AND status = ?", juror.ID, database.JurorInvited).
		Updates(map[string]any{
			"status": database.JurorVoted,
			"vote":   vote,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyVoted
	}
	juror.Status = database.JurorVoted
	juror.Vote = &vote
	return nil
}

func (r *juryRepo) ListByCase(ctx context.Context, tx *gorm.DB, caseID uint) ([]*database.Juror, error) {
	jurors := []*database.Juror{}
	if err := pick(r.db, tx).WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("id ASC").
		Find(&jurors).Error; err != nil {
		return nil, err
	}
	return jurors, nil
}

func (r *juryRepo) Tally(ctx context.Context, tx *gorm.DB, caseID uint) (Tally, error) {
	var rows []struct {
		Vote  database.PartyRole
		Count int
	}
	if err := pick(r.db, tx).WithContext(ctx).
		Model(&database.Juror{}).
		Select("vote, COUNT(*) AS count").
		Where("case_id = ? AND status = ?", caseID, database.JurorVoted).
		Group("vote").
		Scan(&rows).Error; err != nil {
		return Tally{}, err
	}

	var t Tally
	for _, row := range rows {
		switch row.Vote {
		case database.RolePlaintiff:
			t.Plaintiff += row.Count
		case database.RoleDefendant:
			t.Defendant += row.Count
		}
	}
	t.Total = t.Plaintiff + t.Defendant
	return t, nil
}
