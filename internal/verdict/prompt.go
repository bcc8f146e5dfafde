package verdict

import (
	"fmt"
	"strings"

	"github.com/JustJay7/gosomi-court/internal/repository"
)

// PromptInput is everything the judge sees about a case.
type PromptInput struct {
	Title    string
	Content  string
	LawType  string
	RuleText string

	PlaintiffEvidence []string
	Defense           string
	DefendantEvidence []string

	// Appeal is nil for first-instance requests.
	Appeal *AppealInput
	// Jury is nil when no juror has voted or the request is an appeal.
	Jury *repository.Tally
}

type AppealInput struct {
	AppellantID       uint
	AppellantRole     string
	Reason            string
	FirstVerdict      string
	PlaintiffEvidence []string
	DefendantEvidence []string
	Response          string
}

const judgePersona = `You are the presiding judge of GOSOMI, a light-hearted court where friends settle everyday disputes.
Weigh both sides fairly, cite the law articles you rely on, and keep the tone warm and witty without mocking anyone.`

const outputContract = `Respond with a single JSON object and nothing else. No markdown, no code fences, no commentary.
The object must have exactly these fields:
{
  "result": "GUILTY" | "NOT_GUILTY" | "BOTH_AT_FAULT" | "SETTLEMENT",
  "intensity": "low" | "mid" | "high",
  "lawRefs": [{"id": string, "category": string}],          // 1 to 3 items
  "oneLine": string,                                         // one-sentence verdict
  "reasoning": string,                                       // one paragraph
  "penalties": {"serious": [string], "funny": [string]},     // 0 to 3 items each
  "faultRatio": {"plaintiff": integer, "defendant": integer} // 0-100 each, summing to 100
}
If the result is BOTH_AT_FAULT, both penalty lists must be empty.`

// BuildPrompt renders the system instructions and the case prompt. The
// output depends only on in.
func BuildPrompt(in PromptInput) (system string, prompt string) {
	var sys strings.Builder
	sys.WriteString(judgePersona)
	sys.WriteString("\n\n")
	sys.WriteString(outputContract)
	sys.WriteString("\n\nApplicable law:\n")
	sys.WriteString(in.RuleText)

	var b strings.Builder
	fmt.Fprintf(&b, "## Case\nTitle: %s\nLaw category: %s\n\n%s\n", in.Title, orNone(in.LawType), in.Content)

	b.WriteString("\n## Plaintiff evidence\n")
	writeNumbered(&b, in.PlaintiffEvidence)

	b.WriteString("\n## Defense\n")
	if strings.TrimSpace(in.Defense) == "" {
		b.WriteString("(no defense submitted)\n")
	} else {
		b.WriteString(in.Defense)
		b.WriteString("\n")
	}

	b.WriteString("\n## Defendant evidence\n")
	writeNumbered(&b, in.DefendantEvidence)

	if a := in.Appeal; a != nil {
		b.WriteString("\n## Appeal\n")
		b.WriteString("This is the final, second-instance review. Reconsider the whole case in light of the appeal.\n")
		fmt.Fprintf(&b, "Appellant: user %d (%s)\n", a.AppellantID, a.AppellantRole)
		fmt.Fprintf(&b, "Reason: %s\n", a.Reason)
		if strings.TrimSpace(a.FirstVerdict) != "" {
			fmt.Fprintf(&b, "First-instance verdict:\n%s\n", a.FirstVerdict)
		}
		b.WriteString("\n### Plaintiff appeal evidence\n")
		writeNumbered(&b, a.PlaintiffEvidence)
		b.WriteString("\n### Defendant appeal evidence\n")
		writeNumbered(&b, a.DefendantEvidence)
		b.WriteString("\n### Opponent's response\n")
		if strings.TrimSpace(a.Response) == "" {
			b.WriteString("(no response)\n")
		} else {
			b.WriteString(a.Response)
			b.WriteString("\n")
		}
	}

	if in.Appeal == nil && in.Jury != nil && in.Jury.Total > 0 {
		b.WriteString("\n## Jury (advisory, not binding)\n")
		fmt.Fprintf(&b, "Votes for plaintiff: %d\nVotes for defendant: %d\nTotal votes: %d\n",
			in.Jury.Plaintiff, in.Jury.Defendant, in.Jury.Total)
	}

	return sys.String(), strings.TrimRight(b.String(), "\n")
}

func writeNumbered(b *strings.Builder, items []string) {
	if len(items) == 0 {
		b.WriteString("(none)\n")
		return
	}
	for i, item := range items {
		fmt.Fprintf(b, "%d. %s\n", i+1, item)
	}
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}
