package zendesk

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/olusayo/zendesk-sme-finder/internal/model"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Linkify))

// renderComment builds the internal note as markdown (the plain body) and
// its HTML rendering (the html_body Zendesk displays to agents).
func renderComment(recs *model.RecommendationSet, conversationURL string) (string, string, error) {
	var b strings.Builder

	b.WriteString("**Expert Recommendations (AI-Generated)**\n\n")

	var experts []model.ExpertMatch
	var cases []model.CaseMatch
	if recs != nil {
		experts = recs.RecommendedExperts
		cases = recs.SimilarCases
	}

	if len(experts) == 0 {
		b.WriteString("- No matching experts were found.\n")
	}
	for _, e := range experts {
		fmt.Fprintf(&b, "- %s", e.Name)
		if e.ContactIdentifiers.Email != "" {
			fmt.Fprintf(&b, " (%s)", e.ContactIdentifiers.Email)
		}
		fmt.Fprintf(&b, " - %d%% match\n", percent(e.Confidence))
	}

	if len(cases) > 0 {
		b.WriteString("\n**Similar resolved tickets**\n\n")
		for _, c := range cases {
			fmt.Fprintf(&b, "- #%s %s (%d%% similar)\n", c.CaseIdentifier, c.Summary, percent(c.SimilarityScore))
		}
	}

	if conversationURL != "" {
		fmt.Fprintf(&b, "\nChat conversation: %s\n\n", conversationURL)
		b.WriteString("The assigned engineer and recommended experts have been added to the conversation.\n")
	}

	body := b.String()

	var html bytes.Buffer
	if err := markdown.Convert([]byte(body), &html); err != nil {
		return "", "", fmt.Errorf("zendesk: rendering comment: %w", err)
	}

	return body, html.String(), nil
}

func percent(score float64) int {
	return int(math.Round(score * 100))
}
