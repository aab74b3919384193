package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/olusayo/zendesk-sme-finder/internal/model"
)

type rawExpert struct {
	Name               *string                   `json:"name"`
	ContactIdentifiers *model.ContactIdentifiers `json:"contact_identifiers"`
	ExpertiseTags      []string                  `json:"expertise_tags"`
	Confidence         *float64                  `json:"confidence"`
	Rationale          string                    `json:"rationale"`
}

type rawCase struct {
	CaseIdentifier    *string  `json:"case_identifier"`
	Summary           string   `json:"summary"`
	ResolutionSummary string   `json:"resolution_summary"`
	SimilarityScore   *float64 `json:"similarity_score"`
}

type rawSet struct {
	RecommendedExperts *[]rawExpert `json:"recommended_experts"`
	SimilarCases       *[]rawCase   `json:"similar_cases"`
}

// ParseRecommendations extracts the JSON object from a completion and
// validates it against the recommendation schema. Missing keys, non-numeric
// or out-of-range scores and empty expert names fail with
// ErrMalformedOutput; they are never defaulted. Lists longer than
// model.MaxRecommendations are truncated in rank order.
func ParseRecommendations(completion string) (*model.RecommendationSet, error) {
	object, err := extractObject(completion)
	if err != nil {
		return nil, err
	}

	var raw rawSet
	if err := json.Unmarshal(jsonc.ToJSON(object), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	if raw.RecommendedExperts == nil {
		return nil, fmt.Errorf("%w: missing recommended_experts", ErrMalformedOutput)
	}
	if raw.SimilarCases == nil {
		return nil, fmt.Errorf("%w: missing similar_cases", ErrMalformedOutput)
	}

	set := &model.RecommendationSet{
		RecommendedExperts: make([]model.ExpertMatch, 0, model.MaxRecommendations),
		SimilarCases:       make([]model.CaseMatch, 0, model.MaxRecommendations),
	}

	for i, e := range *raw.RecommendedExperts {
		if i == model.MaxRecommendations {
			break
		}
		if e.Name == nil || strings.TrimSpace(*e.Name) == "" {
			return nil, fmt.Errorf("%w: recommended_experts[%d]: missing name", ErrMalformedOutput, i)
		}
		if e.Confidence == nil {
			return nil, fmt.Errorf("%w: recommended_experts[%d]: missing confidence", ErrMalformedOutput, i)
		}
		if !unitInterval(*e.Confidence) {
			return nil, fmt.Errorf("%w: recommended_experts[%d]: confidence %v outside [0,1]", ErrMalformedOutput, i, *e.Confidence)
		}

		match := model.ExpertMatch{
			Name:          strings.TrimSpace(*e.Name),
			ExpertiseTags: e.ExpertiseTags,
			Confidence:    *e.Confidence,
			Rationale:     e.Rationale,
		}
		if match.ExpertiseTags == nil {
			match.ExpertiseTags = []string{}
		}
		if e.ContactIdentifiers != nil {
			match.ContactIdentifiers = *e.ContactIdentifiers
		}
		set.RecommendedExperts = append(set.RecommendedExperts, match)
	}

	for i, c := range *raw.SimilarCases {
		if i == model.MaxRecommendations {
			break
		}
		if c.CaseIdentifier == nil {
			return nil, fmt.Errorf("%w: similar_cases[%d]: missing case_identifier", ErrMalformedOutput, i)
		}
		if c.SimilarityScore == nil {
			return nil, fmt.Errorf("%w: similar_cases[%d]: missing similarity_score", ErrMalformedOutput, i)
		}
		if !unitInterval(*c.SimilarityScore) {
			return nil, fmt.Errorf("%w: similar_cases[%d]: similarity_score %v outside [0,1]", ErrMalformedOutput, i, *c.SimilarityScore)
		}
		set.SimilarCases = append(set.SimilarCases, model.CaseMatch{
			CaseIdentifier:    *c.CaseIdentifier,
			Summary:           c.Summary,
			ResolutionSummary: c.ResolutionSummary,
			SimilarityScore:   *c.SimilarityScore,
		})
	}

	return set, nil
}

// extractObject returns the span from the first '{' to the last '}' of the
// completion, which drops markdown fences and any prose around the JSON.
func extractObject(completion string) ([]byte, error) {
	start := strings.Index(completion, "{")
	end := strings.LastIndex(completion, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in completion", ErrMalformedOutput)
	}
	return []byte(completion[start : end+1]), nil
}

func unitInterval(v float64) bool {
	return v >= 0 && v <= 1
}
