package retrieval

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/allie-ai/allie-core/internal/conversation"
	"github.com/allie-ai/allie-core/internal/core"
	"github.com/allie-ai/allie-core/internal/family"
	"github.com/allie-ai/allie-core/internal/graph"
	logx "github.com/allie-ai/allie-core/pkg/logger"
)

const cacheTTL = 5 * time.Minute

// Content is one retrieved piece of text with its relevance to the query.
type Content struct {
	Text      string  `json:"text"`
	Relevance float64 `json:"relevance"`
	Type      string  `json:"type"`
	EntityID  string  `json:"entityId,omitempty"`
}

// Source describes where a piece of content came from.
type Source struct {
	Type       string  `json:"type"`
	Title      string  `json:"title"`
	EntityID   string  `json:"entityId,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Result is the aggregated retrieval bundle for one query.
type Result struct {
	Content    []Content `json:"relevantContent"`
	Sources    []Source  `json:"sources"`
	Confidence float64   `json:"confidence"`
}

type cachedResult struct {
	result  Result
	fetched time.Time
}

// Service aggregates content for a query from the knowledge base, the
// family's knowledge graph, the conversation history, and the family
// data snapshot.
type Service struct {
	mu    sync.Mutex
	graph *graph.Service
	conv  *conversation.Store
	clock core.Clock
	cache map[string]cachedResult
}

// NewService builds a retrieval service. The graph service and
// conversation store may be nil, in which case those sources are
// skipped.
func NewService(g *graph.Service, conv *conversation.Store, clock core.Clock) *Service {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &Service{
		graph: g,
		conv:  conv,
		clock: clock,
		cache: map[string]cachedResult{},
	}
}

// Retrieve gathers relevant content for a query across all four sources
// and scores the bundle's overall confidence. Results are cached for
// five minutes per query and family.
func (s *Service) Retrieve(ctx context.Context, query, familyID string, fam *family.Data) Result {
	cacheKey := query + "|" + familyID

	s.mu.Lock()
	if cached, ok := s.cache[cacheKey]; ok && s.clock.Now().Sub(cached.fetched) < cacheTTL {
		s.mu.Unlock()
		return cached.result
	}
	s.mu.Unlock()

	var result Result
	merge := func(content []Content, sources []Source) {
		result.Content = append(result.Content, content...)
		result.Sources = append(result.Sources, sources...)
	}

	merge(fromKnowledgeBase(query))

	if s.graph != nil && familyID != "" {
		content, sources, err := s.fromKnowledgeGraph(ctx, query, familyID)
		if err != nil {
			logx.Warn().Err(err).Str("family_id", familyID).Msg("knowledge graph retrieval failed")
		} else {
			merge(content, sources)
		}
	}

	if s.conv != nil && familyID != "" {
		merge(s.fromConversationHistory(query, familyID))
	}

	if fam != nil {
		merge(s.fromFamilyData(query, fam))
	}

	result.Confidence = retrievalConfidence(result)

	s.mu.Lock()
	s.cache[cacheKey] = cachedResult{result: result, fetched: s.clock.Now()}
	s.mu.Unlock()

	logx.Debug().
		Str("family_id", familyID).
		Int("content", len(result.Content)).
		Float64("confidence", result.Confidence).
		Msg("retrieval completed")
	return result
}

var queryPunctuation = regexp.MustCompile(`[?.,!]`)

func normalizeQuery(query string) string {
	return queryPunctuation.ReplaceAllString(strings.ToLower(strings.TrimSpace(query)), "")
}

// queryWords returns the significant words of a query (longer than three
// characters).
func queryWords(normalized string) []string {
	return lo.Filter(strings.Fields(normalized), func(w string, _ int) bool {
		return len(w) > 3
	})
}

// fromKnowledgeBase searches the static FAQ, task category, research,
// and methodology content.
func fromKnowledgeBase(query string) ([]Content, []Source) {
	var content []Content
	var sources []Source

	normalized := normalizeQuery(query)
	words := queryWords(normalized)

	for _, faq := range faqs {
		question := queryPunctuation.ReplaceAllString(strings.ToLower(faq.Question), "")

		exact := normalized == question ||
			(len(normalized) > 10 && strings.Contains(question, normalized)) ||
			(len(question) > 10 && strings.Contains(normalized, question))
		if exact {
			content = append(content, Content{Text: faq.Answer, Relevance: 1.0, Type: "direct-answer"})
			sources = append(sources, Source{Type: "faq", Title: faq.Question, Confidence: 0.95})
			break
		}

		if len(words) == 0 {
			continue
		}
		matched := lo.CountBy(words, func(w string) bool {
			return strings.Contains(question, w)
		})
		ratio := float64(matched) / float64(len(words))
		if ratio > 0.7 {
			content = append(content, Content{Text: faq.Answer, Relevance: ratio, Type: "related-answer"})
			sources = append(sources, Source{Type: "faq", Title: faq.Question, Confidence: ratio})
		}
	}

	if strings.Contains(normalized, "task") || strings.Contains(normalized, "category") || strings.Contains(normalized, "household") {
		for _, cat := range taskCategories {
			if strings.Contains(normalized, cat.Keyword) {
				content = append(content, Content{Text: cat.Description, Relevance: 0.9, Type: "category-definition"})
				sources = append(sources, Source{Type: "whitepaper", Title: cat.Name, Confidence: 0.9})
			}
		}
	}

	if strings.Contains(normalized, "research") || strings.Contains(normalized, "study") || strings.Contains(normalized, "data") {
		for _, finding := range researchFindings {
			topic := strings.ToLower(finding.Topic)
			findingWords := queryWords(strings.ToLower(finding.Finding))

			matched := lo.CountBy(words, func(w string) bool {
				return strings.Contains(topic, w) || lo.Contains(findingWords, w)
			})
			if len(words) == 0 {
				continue
			}
			ratio := float64(matched) / float64(len(words))
			if ratio > 0.3 {
				content = append(content, Content{Text: finding.Finding, Relevance: ratio, Type: "research-finding"})
				sources = append(sources, Source{Type: "research", Title: finding.Topic, Confidence: ratio})
			}
		}
	}

	if strings.Contains(normalized, "how") || strings.Contains(normalized, "methodology") || strings.Contains(normalized, "weighting") || strings.Contains(normalized, "system") {
		for _, method := range methodologyNotes {
			if strings.Contains(normalized, method.Keyword) {
				content = append(content, Content{Text: method.Description, Relevance: 0.85, Type: "methodology"})
				sources = append(sources, Source{Type: "methodology", Title: method.Name, Confidence: 0.85})
			}
		}
	}

	return content, sources
}

// fromKnowledgeGraph runs the query through the graph's natural language
// dispatcher and projects matched entities and insights as content.
func (s *Service) fromKnowledgeGraph(ctx context.Context, query, familyID string) ([]Content, []Source, error) {
	qr, err := s.graph.ExecuteQuery(ctx, familyID, query)
	if err != nil {
		return nil, nil, err
	}

	var content []Content
	var sources []Source

	for _, entity := range qr.Entities {
		name := entity.Name()
		if name == "" {
			name = entity.Type + " entity"
		}
		content = append(content, Content{
			Text:      formatEntityAsText(entity),
			Relevance: 0.8,
			Type:      "entity",
			EntityID:  entity.ID,
		})
		sources = append(sources, Source{
			Type:       "knowledge-graph",
			Title:      name,
			EntityID:   entity.ID,
			Confidence: 0.8,
		})
	}

	for _, insight := range qr.Insights {
		content = append(content, Content{
			Text:      insight.Title + ": " + insight.Description,
			Relevance: 0.7,
			Type:      "insight",
		})
		sources = append(sources, Source{
			Type:       "knowledge-graph-insight",
			Title:      insight.Title,
			Confidence: 0.7,
		})
	}

	return content, sources, nil
}

// formatEntityAsText renders a graph entity as readable lines for prompt
// inclusion.
func formatEntityAsText(entity graph.Entity) string {
	var b strings.Builder
	if name := entity.Name(); name != "" {
		fmt.Fprintf(&b, "%s (%s):\n", name, entity.Type)
	} else {
		fmt.Fprintf(&b, "%s:\n", entity.Type)
	}

	keys := lo.Keys(entity.Properties)
	sort.Strings(keys)
	for _, key := range keys {
		if key == "name" || key == "createdAt" || key == "updatedAt" {
			continue
		}
		fmt.Fprintf(&b, "%s: %v\n", key, entity.Properties[key])
	}
	return b.String()
}

// fromConversationHistory surfaces earlier topics and mentioned entities
// that overlap the current query.
func (s *Service) fromConversationHistory(query, familyID string) ([]Content, []Source) {
	var content []Content
	var sources []Source

	convCtx := s.conv.GetContext(familyID)
	words := queryWords(strings.ToLower(strings.TrimSpace(query)))

	for _, topic := range convCtx.Topics {
		topicWords := queryWords(strings.ToLower(topic))
		overlap := lo.CountBy(words, func(w string) bool {
			return lo.Contains(topicWords, w)
		})
		ratio := float64(overlap) / float64(max(len(words), 1))
		if ratio <= 0.3 {
			continue
		}

		for _, question := range convCtx.UserQuestions {
			if question.Answered && strings.Contains(strings.ToLower(question.Question), strings.ToLower(topic)) {
				content = append(content, Content{
					Text:      fmt.Sprintf("Previous question: %q\nYou asked about this in our conversation.", question.Question),
					Relevance: ratio,
					Type:      "conversation-history",
				})
				sources = append(sources, Source{Type: "conversation-history", Title: "Previous discussion", Confidence: ratio})
				break
			}
		}
	}

	queryLower := strings.ToLower(query)
	for _, entityType := range sortedEntityTypes(convCtx.Entities) {
		for _, entity := range convCtx.Entities[entityType] {
			if strings.Contains(queryLower, strings.ToLower(entity)) {
				content = append(content, Content{
					Text:      fmt.Sprintf("You previously mentioned %s in our conversation.", entity),
					Relevance: 0.7,
					Type:      "referenced-entity",
				})
				sources = append(sources, Source{Type: "conversation-reference", Title: entity, Confidence: 0.7})
				break
			}
		}
	}

	return content, sources
}

func sortedEntityTypes(entities map[string][]string) []string {
	types := lo.Keys(entities)
	sort.Strings(types)
	return types
}

// fromFamilyData projects task, provider, appointment, and roster
// records matching the query's domain words.
func (s *Service) fromFamilyData(query string, fam *family.Data) ([]Content, []Source) {
	var content []Content
	var sources []Source

	queryLower := strings.ToLower(query)
	now := s.clock.Now()

	if strings.Contains(queryLower, "task") || strings.Contains(queryLower, "chore") {
		if len(fam.Tasks) > 0 {
			var b strings.Builder
			b.WriteString("Recent family tasks:\n")
			for i, task := range fam.Tasks {
				if i >= 5 {
					break
				}
				assignee := "unassigned"
				if m, ok := fam.MemberByID(task.AssignedTo); ok {
					assignee = m.Name
				}
				fmt.Fprintf(&b, "- %s (assigned to %s)\n", task.Title, assignee)
			}
			content = append(content, Content{Text: b.String(), Relevance: 0.8, Type: "family-tasks"})
			sources = append(sources, Source{Type: "family-data", Title: "Task records", Confidence: 0.8})
		}
	}

	if strings.Contains(queryLower, "provider") || strings.Contains(queryLower, "doctor") ||
		strings.Contains(queryLower, "teacher") || strings.Contains(queryLower, "contact") {
		if len(fam.Providers) > 0 {
			var b strings.Builder
			b.WriteString("Family providers:\n")
			for i, p := range fam.Providers {
				if i >= 5 {
					break
				}
				fmt.Fprintf(&b, "- %s (%s)\n", p.Name, p.Specialty)
			}
			content = append(content, Content{Text: b.String(), Relevance: 0.8, Type: "family-providers"})
			sources = append(sources, Source{Type: "family-data", Title: "Provider records", Confidence: 0.8})
		}
	}

	if strings.Contains(queryLower, "appointment") || strings.Contains(queryLower, "schedule") ||
		strings.Contains(queryLower, "doctor") || strings.Contains(queryLower, "visit") {
		upcoming := lo.Filter(fam.Appointments, func(a family.Appointment, _ int) bool {
			return !a.Date.Before(now)
		})
		sort.Slice(upcoming, func(i, j int) bool { return upcoming[i].Date.Before(upcoming[j].Date) })
		if len(upcoming) > 3 {
			upcoming = upcoming[:3]
		}
		if len(upcoming) > 0 {
			var b strings.Builder
			b.WriteString("Upcoming appointments:\n")
			for _, a := range upcoming {
				fmt.Fprintf(&b, "- %s on %s\n", a.Title, a.Date.Format("2006-01-02 15:04"))
			}
			content = append(content, Content{Text: b.String(), Relevance: 0.85, Type: "family-appointments"})
			sources = append(sources, Source{Type: "family-data", Title: "Appointment records", Confidence: 0.85})
		}
	}

	if strings.Contains(queryLower, "child") || strings.Contains(queryLower, "kid") ||
		strings.Contains(queryLower, "son") || strings.Contains(queryLower, "daughter") {
		children := fam.Children()
		if len(children) > 0 {
			var b strings.Builder
			b.WriteString("Children in family:\n")
			for _, c := range children {
				fmt.Fprintf(&b, "- %s\n", c.Name)
			}
			content = append(content, Content{Text: b.String(), Relevance: 0.7, Type: "family-children"})
			sources = append(sources, Source{Type: "family-data", Title: "Family members", Confidence: 0.7})
		}
	}

	return content, sources
}

// retrievalConfidence scores the bundle: the mean relevance of the top
// three items, boosted for multiple sources and direct answers, and
// penalized when the best match is weak.
func retrievalConfidence(result Result) float64 {
	if len(result.Content) == 0 {
		return 0
	}

	sorted := append([]Content(nil), result.Content...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Relevance > sorted[j].Relevance })

	top := sorted
	if len(top) > 3 {
		top = top[:3]
	}
	sum := 0.0
	for _, c := range top {
		sum += c.Relevance
	}
	confidence := sum / float64(len(top))

	if len(result.Sources) > 1 {
		confidence = min(confidence+0.1, 1.0)
	}
	if lo.SomeBy(result.Content, func(c Content) bool { return c.Type == "direct-answer" }) {
		confidence = min(confidence+0.15, 1.0)
	}
	if sorted[0].Relevance < 0.7 {
		confidence = max(confidence-0.2, 0)
	}

	return confidence
}
