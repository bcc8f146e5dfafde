package verdict

import (
	"fmt"
	"strings"

	"github.com/JustJay7/gosomi-court/internal/database"
)

type Outcome string

const (
	Guilty      Outcome = "GUILTY"
	NotGuilty   Outcome = "NOT_GUILTY"
	BothAtFault Outcome = "BOTH_AT_FAULT"
	Settlement  Outcome = "SETTLEMENT"
)

type Intensity string

const (
	IntensityLow  Intensity = "low"
	IntensityMid  Intensity = "mid"
	IntensityHigh Intensity = "high"
)

const (
	maxLawRefs         = 3
	maxPenaltyOptions  = 3
	maxImagesPerParty  = 3
	minImageSizeBytes  = 5 * 1024
	verdictTextDivider = "\n"
)

type LawRef struct {
	ID       string `json:"id"`
	Category string `json:"category"`
}

// Verdict is the structured judgment, stored verbatim as the case's verdict
// JSON.
type Verdict struct {
	Result     Outcome             `json:"result"`
	Intensity  Intensity           `json:"intensity"`
	LawRefs    []LawRef            `json:"lawRefs"`
	OneLine    string              `json:"oneLine"`
	Reasoning  string              `json:"reasoning"`
	Penalties  database.Penalties  `json:"penalties"`
	FaultRatio database.FaultRatio `json:"faultRatio"`
}

// Text is the narrative stored in the case's verdict text column.
func (v *Verdict) Text() string {
	return v.OneLine + verdictTextDivider + v.Reasoning
}

// SkippedImage records an image evidence item left out of the judge call.
type SkippedImage struct {
	EvidenceID uint               `json:"evidenceId"`
	Party      database.PartyRole `json:"party"`
	Reason     string             `json:"reason"`
}

// Result is what a verdict request returns to the caller.
type Result struct {
	CaseID uint `json:"caseId"`
	Verdict
	Cached        bool           `json:"cached"`
	ImagesIgnored bool           `json:"imagesIgnored"`
	SkippedImages []SkippedImage `json:"skippedImages"`
}

// SchemaError reports a judge response that parsed but broke the contract.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("verdict schema violation at %s: %s", e.Field, e.Reason)
}

func schemaErr(field, format string, args ...any) error {
	return &SchemaError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks v against the verdict contract.
func (v *Verdict) Validate() error {
	switch v.Result {
	case Guilty, NotGuilty, BothAtFault, Settlement:
	default:
		return schemaErr("result", "unknown value %q", v.Result)
	}

	switch v.Intensity {
	case IntensityLow, IntensityMid, IntensityHigh:
	default:
		return schemaErr("intensity", "unknown value %q", v.Intensity)
	}

	if len(v.LawRefs) < 1 || len(v.LawRefs) > maxLawRefs {
		return schemaErr("lawRefs", "expected 1-%d items, got %d", maxLawRefs, len(v.LawRefs))
	}
	for i, ref := range v.LawRefs {
		if strings.TrimSpace(ref.ID) == "" {
			return schemaErr(fmt.Sprintf("lawRefs[%d].id", i), "empty")
		}
		if strings.TrimSpace(ref.Category) == "" {
			return schemaErr(fmt.Sprintf("lawRefs[%d].category", i), "empty")
		}
	}

	if strings.TrimSpace(v.OneLine) == "" {
		return schemaErr("oneLine", "empty")
	}
	if strings.TrimSpace(v.Reasoning) == "" {
		return schemaErr("reasoning", "empty")
	}

	if err := validateOptions("penalties.serious", v.Penalties.Serious); err != nil {
		return err
	}
	if err := validateOptions("penalties.funny", v.Penalties.Funny); err != nil {
		return err
	}

	if err := v.FaultRatio.Validate(); err != nil {
		return schemaErr("faultRatio", "%v", err)
	}
	return nil
}

func validateOptions(field string, opts []string) error {
	if opts == nil {
		return schemaErr(field, "missing")
	}
	if len(opts) > maxPenaltyOptions {
		return schemaErr(field, "expected at most %d items, got %d", maxPenaltyOptions, len(opts))
	}
	for i, o := range opts {
		if strings.TrimSpace(o) == "" {
			return schemaErr(fmt.Sprintf("%s[%d]", field, i), "empty")
		}
	}
	return nil
}
