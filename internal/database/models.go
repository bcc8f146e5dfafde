package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Nickname string  `json:"nickname" gorm:"type:varchar(64);not null"`
	WinRate  float64 `json:"win_rate" gorm:"type:decimal(5,2);not null;default:50"`
}

// Case is the dispute aggregate. Verdict columns stay NULL until a verdict
// has been generated.
type Case struct {
	gorm.Model
	CaseNumber  string     `json:"case_number" gorm:"type:varchar(32);uniqueIndex;not null"`
	PlaintiffID uint       `json:"plaintiff_id" gorm:"not null;index"`
	DefendantID uint       `json:"defendant_id" gorm:"not null;index"`
	Title       string     `json:"title" gorm:"type:varchar(200);not null"`
	Content     string     `json:"content" gorm:"type:text;not null"`
	LawType     string     `json:"law_type" gorm:"type:varchar(32)"`
	Status      CaseStatus `json:"status" gorm:"type:varchar(32);not null;default:'SUMMONED'"`

	VerdictText     *string        `json:"verdict_text" gorm:"type:text"`
	FirstVerdict    *string        `json:"first_verdict" gorm:"type:text"`
	VerdictJSON     datatypes.JSON `json:"verdict_json"`
	FaultRatio      *FaultRatio    `json:"fault_ratio" gorm:"type:text;serializer:json"`
	Penalties       *Penalties     `json:"penalties" gorm:"type:text;serializer:json"`
	PenaltyChoice   *PenaltyChoice `json:"penalty_choice" gorm:"type:varchar(16)"`
	PenaltySelected *string        `json:"penalty_selected" gorm:"type:text"`

	AppealStatus   AppealStatus `json:"appeal_status" gorm:"type:varchar(16);not null;default:'NONE'"`
	AppellantID    *uint        `json:"appellant_id"`
	AppealReason   *string      `json:"appeal_reason" gorm:"type:text"`
	AppealResponse *string      `json:"appeal_response" gorm:"type:text"`

	JuryEnabled bool     `json:"jury_enabled" gorm:"not null;default:false"`
	JuryMode    JuryMode `json:"jury_mode" gorm:"type:varchar(16)"`
	InviteToken *string  `json:"invite_token" gorm:"type:varchar(64)"`
}

// BeforeSave keeps the stored verdict columns consistent.
func (c *Case) BeforeSave(tx *gorm.DB) error {
	return c.Validate()
}

type Evidence struct {
	gorm.Model
	CaseID      uint          `json:"case_id" gorm:"not null;index"`
	Type        EvidenceType  `json:"type" gorm:"type:varchar(8);not null"`
	Content     string        `json:"content" gorm:"type:text;not null"`
	SubmittedBy PartyRole     `json:"submitted_by" gorm:"type:varchar(16);not null"`
	Stage       EvidenceStage `json:"stage" gorm:"type:varchar(16);not null;default:'INITIAL'"`
}

type Defense struct {
	gorm.Model
	CaseID  uint   `json:"case_id" gorm:"not null;index"`
	Content string `json:"content" gorm:"type:text;not null"`
}

type Juror struct {
	gorm.Model
	CaseID uint        `json:"case_id" gorm:"not null;uniqueIndex:idx_jurors_case_user"`
	UserID uint        `json:"user_id" gorm:"not null;uniqueIndex:idx_jurors_case_user"`
	Status JurorStatus `json:"status" gorm:"type:varchar(16);not null;default:'INVITED'"`
	Vote   *PartyRole  `json:"vote" gorm:"type:varchar(16)"`
}

type Summons struct {
	gorm.Model
	CaseID    uint      `json:"case_id" gorm:"not null;uniqueIndex"`
	Token     string    `json:"token" gorm:"type:varchar(64);not null;uniqueIndex"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null"`
}

// Expired reports whether the summons is no longer usable at now.
func (s *Summons) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Notification is an outbox row. Published flips once the fan-out channel
// has accepted it.
type Notification struct {
	gorm.Model
	UserID    uint   `json:"user_id" gorm:"not null;index"`
	CaseID    uint   `json:"case_id" gorm:"index"`
	Type      string `json:"type" gorm:"type:varchar(32);not null"`
	Title     string `json:"title" gorm:"type:varchar(200);not null"`
	Message   string `json:"message" gorm:"type:text;not null"`
	Read      bool   `json:"read" gorm:"not null;default:false"`
	Published bool   `json:"published" gorm:"not null;default:false"`
}

// CaseSequence holds the last case number issued for a year.
type CaseSequence struct {
	Year  int `gorm:"primaryKey;autoIncrement:false"`
	Value int `gorm:"not null;default:0"`
}

func (User) TableName() string {
	return "users"
}

func (Case) TableName() string {
	return "cases"
}

func (Evidence) TableName() string {
	return "evidences"
}

func (Defense) TableName() string {
	return "defenses"
}

func (Juror) TableName() string {
	return "jurors"
}

func (Summons) TableName() string {
	return "summons"
}

func (Notification) TableName() string {
	return "notifications"
}

func (CaseSequence) TableName() string {
	return "case_sequences"
}
