package verdict

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrNoJSON = errors.New("judge response contains no JSON object")

type rawVerdict struct {
	Result     *Outcome       `json:"result"`
	Intensity  *Intensity     `json:"intensity"`
	LawRefs    []LawRef       `json:"lawRefs"`
	OneLine    *string        `json:"oneLine"`
	Reasoning  *string        `json:"reasoning"`
	Penalties  *rawPenalties  `json:"penalties"`
	FaultRatio *rawFaultRatio `json:"faultRatio"`
}

type rawPenalties struct {
	Serious []string `json:"serious"`
	Funny   []string `json:"funny"`
}

type rawFaultRatio struct {
	Plaintiff *int `json:"plaintiff"`
	Defendant *int `json:"defendant"`
}

// Parse extracts, decodes and validates a verdict from raw judge output.
func Parse(raw string) (*Verdict, error) {
	body, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.DisallowUnknownFields()

	var rv rawVerdict
	if err := dec.Decode(&rv); err != nil {
		return nil, fmt.Errorf("failed to decode verdict JSON: %w", err)
	}

	switch {
	case rv.Result == nil:
		return nil, schemaErr("result", "missing")
	case rv.Intensity == nil:
		return nil, schemaErr("intensity", "missing")
	case rv.OneLine == nil:
		return nil, schemaErr("oneLine", "missing")
	case rv.Reasoning == nil:
		return nil, schemaErr("reasoning", "missing")
	case rv.Penalties == nil:
		return nil, schemaErr("penalties", "missing")
	case rv.FaultRatio == nil:
		return nil, schemaErr("faultRatio", "missing")
	case rv.FaultRatio.Plaintiff == nil:
		return nil, schemaErr("faultRatio.plaintiff", "missing")
	case rv.FaultRatio.Defendant == nil:
		return nil, schemaErr("faultRatio.defendant", "missing")
	}

	v := &Verdict{
		Result:    *rv.Result,
		Intensity: *rv.Intensity,
		LawRefs:   rv.LawRefs,
		OneLine:   strings.TrimSpace(*rv.OneLine),
		Reasoning: strings.TrimSpace(*rv.Reasoning),
	}
	v.Penalties.Serious = rv.Penalties.Serious
	v.Penalties.Funny = rv.Penalties.Funny
	v.FaultRatio.Plaintiff = *rv.FaultRatio.Plaintiff
	v.FaultRatio.Defendant = *rv.FaultRatio.Defendant

	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

// ExtractJSON strips markdown code fences and returns the first balanced
// {...} span of raw. Braces inside JSON strings are ignored.
func ExtractJSON(raw string) (string, error) {
	s := stripFences(raw)

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", ErrNoJSON
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", ErrNoJSON
}

var fenceReplacer = strings.NewReplacer("```json", "", "```JSON", "", "```", "")

func stripFences(raw string) string {
	return strings.TrimSpace(fenceReplacer.Replace(raw))
}
