package model

// MaxRecommendations caps both the expert and the similar-case lists.
const MaxRecommendations = 3

// ContactIdentifiers holds the ways an expert can be reached.
type ContactIdentifiers struct {
	Email   string `json:"email,omitempty"`
	SlackID string `json:"slack_id,omitempty"`
}

// ExpertMatch is a ranked expert recommendation.
type ExpertMatch struct {
	Name               string             `json:"name"`
	ContactIdentifiers ContactIdentifiers `json:"contact_identifiers"`
	ExpertiseTags      []string           `json:"expertise_tags"`
	Confidence         float64            `json:"confidence"`
	Rationale          string             `json:"rationale"`
}

// CaseMatch is a ranked similar historical case.
type CaseMatch struct {
	CaseIdentifier    string  `json:"case_identifier"`
	Summary           string  `json:"summary"`
	ResolutionSummary string  `json:"resolution_summary"`
	SimilarityScore   float64 `json:"similarity_score"`
}

// RecommendationSet is the parsed output of the reasoning collaborator.
type RecommendationSet struct {
	RecommendedExperts []ExpertMatch `json:"recommended_experts"`
	SimilarCases       []CaseMatch   `json:"similar_cases"`
}

// Capped returns a copy holding at most MaxRecommendations entries per
// list, preserving rank order. Nil lists become empty lists.
func (s *RecommendationSet) Capped() RecommendationSet {
	out := RecommendationSet{
		RecommendedExperts: []ExpertMatch{},
		SimilarCases:       []CaseMatch{},
	}
	if s == nil {
		return out
	}

	experts := s.RecommendedExperts
	if len(experts) > MaxRecommendations {
		experts = experts[:MaxRecommendations]
	}
	out.RecommendedExperts = append(out.RecommendedExperts, experts...)

	cases := s.SimilarCases
	if len(cases) > MaxRecommendations {
		cases = cases[:MaxRecommendations]
	}
	out.SimilarCases = append(out.SimilarCases, cases...)

	return out
}

// ExpertContacts returns the contact identifiers of the top experts, in
// rank order.
func (s *RecommendationSet) ExpertContacts() []ContactIdentifiers {
	if s == nil {
		return nil
	}
	experts := s.RecommendedExperts
	if len(experts) > MaxRecommendations {
		experts = experts[:MaxRecommendations]
	}
	contacts := make([]ContactIdentifiers, 0, len(experts))
	for _, e := range experts {
		contacts = append(contacts, e.ContactIdentifiers)
	}
	return contacts
}
