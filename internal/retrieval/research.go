package retrieval

import (
	"fmt"
	"sort"
	"strings"
)

// EnhancePrompt appends a research block to a system prompt when the
// retrieval bundle has strong content: up to three items at relevance
// 0.7 or higher, each attributed to its source, plus usage instructions.
// Weak bundles add only a short note.
func EnhancePrompt(basePrompt string, result Result, query string) string {
	if len(result.Content) == 0 {
		return basePrompt
	}

	sorted := append([]Content(nil), result.Content...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Relevance > sorted[j].Relevance })
	if len(sorted) > 3 {
		sorted = sorted[:3]
	}

	var strong []Content
	for _, c := range sorted {
		if c.Relevance >= 0.7 {
			strong = append(strong, c)
		}
	}
	if len(strong) == 0 {
		return fmt.Sprintf("%s\n\nNote: I couldn't find specific research on %q but will use my general knowledge.", basePrompt, query)
	}

	var b strings.Builder
	b.WriteString(basePrompt)
	b.WriteString("\n\nRELEVANT RESEARCH INFORMATION FOR THIS QUERY:\n")
	for i, c := range strong {
		source := matchSource(result, c)
		fmt.Fprintf(&b, "[%d] %s: %s\n%s\n\n", i+1, source.Type, source.Title, c.Text)
	}
	b.WriteString("INSTRUCTIONS FOR USING THIS RESEARCH:\n")
	b.WriteString("- Incorporate this research naturally into your response\n")
	b.WriteString("- Do not copy the research text verbatim\n")
	b.WriteString("- Use your own words to explain the research findings\n")
	b.WriteString("- Only reference research that is directly relevant to the query\n")
	b.WriteString("- If the research conflicts with your knowledge, prioritize the research\n")

	return b.String()
}

// matchSource finds the source backing a piece of content, by entity ID
// or title echo.
func matchSource(result Result, c Content) Source {
	for _, s := range result.Sources {
		if c.EntityID != "" && s.EntityID == c.EntityID {
			return s
		}
		if s.Title != "" && strings.Contains(c.Text, s.Title) {
			return s
		}
	}
	return Source{Type: "unknown", Title: "source"}
}

// AddCitations appends a sources section to a generated response when
// the retrieval was confident, a source title is echoed in the response,
// and the response has more than one paragraph.
func AddCitations(response string, result Result) string {
	if len(result.Sources) == 0 || result.Confidence < 0.4 {
		return response
	}

	echoed := false
	for _, s := range result.Sources {
		if s.Title != "" && strings.Contains(response, s.Title) {
			echoed = true
			break
		}
	}
	if !echoed {
		return response
	}

	if len(strings.Split(response, "\n\n")) <= 1 {
		return response
	}

	var b strings.Builder
	b.WriteString(response)
	b.WriteString("\n\nSources:")
	for i, s := range result.Sources {
		if i >= 3 {
			break
		}
		fmt.Fprintf(&b, "\n[%d] %s (%s)", i+1, s.Title, s.Type)
	}
	return b.String()
}
