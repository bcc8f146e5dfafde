package api

import (
	"github.com/JustJay7/gosomi-court/internal/court"
	"github.com/JustJay7/gosomi-court/internal/database"
)

type evidenceRequest struct {
	Type    database.EvidenceType `json:"type" binding:"required,oneof=text image"`
	Content string                `json:"content" binding:"required"`
}

func toEvidenceInputs(items []evidenceRequest) []court.EvidenceInput {
	out := make([]court.EvidenceInput, 0, len(items))
	for _, ev := range items {
		out = append(out, court.EvidenceInput{Type: ev.Type, Content: ev.Content})
	}
	return out
}

type createUserRequest struct {
	Nickname string `json:"nickname" binding:"required,max=64"`
}

type createCaseRequest struct {
	Title              string            `json:"title" binding:"required,max=200"`
	Content            string            `json:"content" binding:"required"`
	PlaintiffID        uint              `json:"plaintiffId" binding:"required"`
	DefendantID        uint              `json:"defendantId" binding:"required"`
	LawType            string            `json:"lawType"`
	JuryEnabled        bool              `json:"juryEnabled"`
	JuryMode           database.JuryMode `json:"juryMode"`
	JuryInvitedUserIDs []uint            `json:"juryInvitedUserIds"`
	Evidences          []evidenceRequest `json:"evidences" binding:"dive"`
}

func (r createCaseRequest) input() court.CreateCaseInput {
	return court.CreateCaseInput{
		Title:              r.Title,
		Content:            r.Content,
		PlaintiffID:        r.PlaintiffID,
		DefendantID:        r.DefendantID,
		LawType:            r.LawType,
		JuryEnabled:        r.JuryEnabled,
		JuryMode:           r.JuryMode,
		JuryInvitedUserIDs: r.JuryInvitedUserIDs,
		Evidences:          toEvidenceInputs(r.Evidences),
	}
}

type defenseRequest struct {
	Content   string            `json:"content" binding:"required"`
	Evidences []evidenceRequest `json:"evidences" binding:"dive"`
}

func (r defenseRequest) input() court.DefenseInput {
	return court.DefenseInput{Content: r.Content, Evidences: toEvidenceInputs(r.Evidences)}
}

func (r defenseRequest) appealInput() court.AppealDefenseInput {
	return court.AppealDefenseInput{Content: r.Content, Evidences: toEvidenceInputs(r.Evidences)}
}

type voteRequest struct {
	UserID uint               `json:"userId" binding:"required"`
	Vote   database.PartyRole `json:"vote" binding:"required"`
}

func (r voteRequest) input() court.VoteInput {
	return court.VoteInput{UserID: r.UserID, Vote: r.Vote}
}

type penaltyRequest struct {
	Choice database.PenaltyChoice `json:"choice" binding:"required"`
}

type appealRequest struct {
	AppellantID uint              `json:"appellantId" binding:"required"`
	Reason      string            `json:"reason" binding:"required"`
	Evidences   []evidenceRequest `json:"evidences" binding:"dive"`
}

func (r appealRequest) input() court.AppealInput {
	return court.AppealInput{
		AppellantID: r.AppellantID,
		Reason:      r.Reason,
		Evidences:   toEvidenceInputs(r.Evidences),
	}
}
