package agent

import (
	"fmt"
	"strings"

	"github.com/olusayo/zendesk-sme-finder/internal/model"
)

// SystemPrompt describes the task and the exact output schema. The parser
// in this package accepts nothing else.
const SystemPrompt = `You route support tickets to subject-matter experts.
Search the expert profiles knowledge base and the resolved tickets knowledge base,
then answer with a single JSON object and no other text:

{
  "recommended_experts": [
    {
      "name": "string",
      "contact_identifiers": {"email": "string", "slack_id": "string"},
      "expertise_tags": ["string"],
      "confidence": 0.0,
      "rationale": "string"
    }
  ],
  "similar_cases": [
    {
      "case_identifier": "string",
      "summary": "string",
      "resolution_summary": "string",
      "similarity_score": 0.0
    }
  ]
}

Rules:
- At most 3 experts and at most 3 similar cases, best match first.
- confidence and similarity_score are numbers between 0 and 1.
- Use empty lists when nothing relevant is found.
- Never fetch or update tickets and never create chat conversations; the caller does that.`

// BuildInstruction renders the per-request instruction for the given mode.
func BuildInstruction(req *model.ReasoningRequest) string {
	var b strings.Builder

	switch req.Mode {
	case model.ModeFull:
		fmt.Fprintf(&b, "Find experts for support ticket %s.\n\n", req.TicketID)
		if t := req.Ticket; t != nil {
			fmt.Fprintf(&b, "Subject: %s\n", t.Subject)
			if t.Priority != "" {
				fmt.Fprintf(&b, "Priority: %s\n", t.Priority)
			}
			if len(t.Tags) > 0 {
				fmt.Fprintf(&b, "Tags: %s\n", strings.Join(t.Tags, ", "))
			}
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Ticket details:\n%s\n\n", req.Query)
		b.WriteString("Analyze the requirements, search for similar resolved tickets and recommend 3 experts with reasoning for each.")

	case model.ModeFallback:
		fmt.Fprintf(&b, "Find experts for support ticket %s. The ticket could not be retrieved, so rely on this description only.\n\n", req.TicketID)
		fmt.Fprintf(&b, "Description:\n%s\n\n", req.Query)
		b.WriteString("Search for similar resolved tickets and recommend 3 experts whose expertise best matches this issue, with reasoning for each.")

	default:
		fmt.Fprintf(&b, "Find experts based on this ticket description:\n%s\n\n", req.Query)
		b.WriteString("Search for similar resolved tickets and recommend 3 experts whose expertise best matches this issue, with reasoning for each.")
	}

	return b.String()
}
