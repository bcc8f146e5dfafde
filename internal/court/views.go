package court

import (
	"time"

	"github.com/JustJay7/gosomi-court/internal/database"
)

// CaseView is the public shape of a case. Stored-only columns such as the
// raw verdict JSON and the jury invite token are left out.
type CaseView struct {
	CaseID          uint                    `json:"caseId"`
	CaseNumber      string                  `json:"caseNumber"`
	Title           string                  `json:"title"`
	Content         string                  `json:"content"`
	LawType         string                  `json:"lawType"`
	PlaintiffID     uint                    `json:"plaintiffId"`
	DefendantID     uint                    `json:"defendantId"`
	Status          database.CaseStatus     `json:"status"`
	VerdictText     *string                 `json:"verdictText"`
	FirstVerdict    *string                 `json:"firstVerdict"`
	FaultRatio      *database.FaultRatio    `json:"faultRatio"`
	Penalties       *database.Penalties     `json:"penalties"`
	PenaltyChoice   *database.PenaltyChoice `json:"penaltyChoice"`
	PenaltySelected *string                 `json:"penaltySelected"`
	AppealStatus    database.AppealStatus   `json:"appealStatus"`
	AppellantID     *uint                   `json:"appellantId"`
	AppealReason    *string                 `json:"appealReason"`
	AppealResponse  *string                 `json:"appealResponse"`
	JuryEnabled     bool                    `json:"juryEnabled"`
	JuryMode        database.JuryMode       `json:"juryMode,omitempty"`
	CreatedAt       time.Time               `json:"createdAt"`
	UpdatedAt       time.Time               `json:"updatedAt"`
}

type EvidenceView struct {
	ID          uint                   `json:"id"`
	Type        database.EvidenceType  `json:"type"`
	Content     string                 `json:"content"`
	SubmittedBy database.PartyRole     `json:"submittedBy"`
	Stage       database.EvidenceStage `json:"stage"`
	CreatedAt   time.Time              `json:"createdAt"`
}

func newCaseView(c *database.Case) CaseView {
	return CaseView{
		CaseID:          c.ID,
		CaseNumber:      c.CaseNumber,
		Title:           c.Title,
		Content:         c.Content,
		LawType:         c.LawType,
		PlaintiffID:     c.PlaintiffID,
		DefendantID:     c.DefendantID,
		Status:          c.Status,
		VerdictText:     c.VerdictText,
		FirstVerdict:    c.FirstVerdict,
		FaultRatio:      c.FaultRatio,
		Penalties:       c.Penalties,
		PenaltyChoice:   c.PenaltyChoice,
		PenaltySelected: c.PenaltySelected,
		AppealStatus:    c.AppealStatus,
		AppellantID:     c.AppellantID,
		AppealReason:    c.AppealReason,
		AppealResponse:  c.AppealResponse,
		JuryEnabled:     c.JuryEnabled,
		JuryMode:        c.JuryMode,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func newCaseViews(cases []*database.Case) []CaseView {
	out := make([]CaseView, 0, len(cases))
	for _, c := range cases {
		out = append(out, newCaseView(c))
	}
	return out
}

func newEvidenceViews(items []*database.Evidence) []EvidenceView {
	out := make([]EvidenceView, 0, len(items))
	for _, ev := range items {
		out = append(out, EvidenceView{
			ID:          ev.ID,
			Type:        ev.Type,
			Content:     ev.Content,
			SubmittedBy: ev.SubmittedBy,
			Stage:       ev.Stage,
			CreatedAt:   ev.CreatedAt,
		})
	}
	return out
}
