package database

import (
	"errors"
	"fmt"
)

type CaseStatus string

const (
	StatusSummoned         CaseStatus = "SUMMONED"
	StatusDefenseSubmitted CaseStatus = "DEFENSE_SUBMITTED"
	StatusVerdictReady     CaseStatus = "VERDICT_READY"
	StatusCompleted        CaseStatus = "COMPLETED"
	StatusExpired          CaseStatus = "EXPIRED"
	StatusUnderAppeal      CaseStatus = "UNDER_APPEAL"
)

func (s CaseStatus) Valid() bool {
	switch s {
	case StatusSummoned, StatusDefenseSubmitted, StatusVerdictReady,
		StatusCompleted, StatusExpired, StatusUnderAppeal:
		return true
	}
	return false
}

type AppealStatus string

const (
	AppealNone      AppealStatus = "NONE"
	AppealRequested AppealStatus = "REQUESTED"
	AppealResponded AppealStatus = "RESPONDED"
	AppealDone      AppealStatus = "DONE"
)

func (s AppealStatus) Valid() bool {
	switch s {
	case AppealNone, AppealRequested, AppealResponded, AppealDone:
		return true
	}
	return false
}

type JuryMode string

const (
	JuryRandom JuryMode = "RANDOM"
	JuryInvite JuryMode = "INVITE"
)

type PenaltyChoice string

const (
	PenaltySerious PenaltyChoice = "SERIOUS"
	PenaltyFunny   PenaltyChoice = "FUNNY"
)

func (p PenaltyChoice) Valid() bool {
	return p == PenaltySerious || p == PenaltyFunny
}

// PartyRole names a side of the dispute. Used both for evidence submitters
// and jury votes.
type PartyRole string

const (
	RolePlaintiff PartyRole = "PLAINTIFF"
	RoleDefendant PartyRole = "DEFENDANT"
)

func (r PartyRole) Valid() bool {
	return r == RolePlaintiff || r == RoleDefendant
}

type EvidenceType string

const (
	EvidenceText  EvidenceType = "text"
	EvidenceImage EvidenceType = "image"
)

func (t EvidenceType) Valid() bool {
	return t == EvidenceText || t == EvidenceImage
}

type EvidenceStage string

const (
	StageInitial EvidenceStage = "INITIAL"
	StageAppeal  EvidenceStage = "APPEAL"
)

type JurorStatus string

const (
	JurorInvited JurorStatus = "INVITED"
	JurorVoted   JurorStatus = "VOTED"
)

// Penalties is the option bundle returned with a verdict.
type Penalties struct {
	Serious []string `json:"serious"`
	Funny   []string `json:"funny"`
}

// Options returns the option list for a category.
func (p Penalties) Options(choice PenaltyChoice) []string {
	switch choice {
	case PenaltySerious:
		return p.Serious
	case PenaltyFunny:
		return p.Funny
	}
	return nil
}

// FaultRatio splits blame between the parties in percent.
type FaultRatio struct {
	Plaintiff int `json:"plaintiff"`
	Defendant int `json:"defendant"`
}

var (
	ErrFaultRatioRange = errors.New("fault ratio values must be within 0..100")
	ErrFaultRatioSum   = errors.New("fault ratio must sum to 100")
	ErrPenaltyPair     = errors.New("penalty choice and penalty selected must be set together")
)

func (f FaultRatio) Validate() error {
	if f.Plaintiff < 0 || f.Plaintiff > 100 || f.Defendant < 0 || f.Defendant > 100 {
		return ErrFaultRatioRange
	}
	if f.Plaintiff+f.Defendant != 100 {
		return ErrFaultRatioSum
	}
	return nil
}

// Validate checks the cross-column invariants of a case row.
func (c *Case) Validate() error {
	if c.Status != "" && !c.Status.Valid() {
		return fmt.Errorf("invalid case status %q", c.Status)
	}
	if c.AppealStatus != "" && !c.AppealStatus.Valid() {
		return fmt.Errorf("invalid appeal status %q", c.AppealStatus)
	}
	if c.FaultRatio != nil {
		if err := c.FaultRatio.Validate(); err != nil {
			return err
		}
	}
	if (c.PenaltyChoice == nil) != (c.PenaltySelected == nil) {
		return ErrPenaltyPair
	}
	if c.PenaltyChoice != nil && !c.PenaltyChoice.Valid() {
		return fmt.Errorf("invalid penalty choice %q", *c.PenaltyChoice)
	}
	return nil
}

// RoleOf reports which side userID is on, if any.
func (c *Case) RoleOf(userID uint) (PartyRole, bool) {
	switch userID {
	case c.PlaintiffID:
		return RolePlaintiff, true
	case c.DefendantID:
		return RoleDefendant, true
	}
	return "", false
}

// Opponent returns the other party's id.
func (c *Case) Opponent(userID uint) uint {
	if userID == c.PlaintiffID {
		return c.DefendantID
	}
	return c.PlaintiffID
}
