package personalization

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/allie-ai/allie-core/internal/classifier"
	"github.com/allie-ai/allie-core/internal/conversation"
	"github.com/allie-ai/allie-core/internal/family"
)

// GeneratePrompt assembles the personalized system prompt for one turn:
// personality, conversation context, response focus, and formatting
// sections around the family data snapshot.
func (e *Engine) GeneratePrompt(ctx context.Context, familyID string, analysis classifier.Analysis, fam *family.Data) string {
	settings := e.GetSettings(ctx, familyID)
	profile := ProfileByName(settings.PersonalityProfile)

	familyName := "Your Family"
	currentWeek := 1
	var children []family.Member
	taskCount := 0
	workloadLine := ""
	if fam != nil {
		if fam.FamilyName != "" {
			familyName = fam.FamilyName
		}
		if fam.CurrentWeek > 0 {
			currentWeek = fam.CurrentWeek
		}
		children = fam.Children()
		taskCount = len(fam.Tasks)
		if fam.MamaPercentage > 0 {
			workloadLine = fmt.Sprintf("Current Workload Split: Mama %.1f%%, Papa %.1f%%",
				fam.MamaPercentage, 100-fam.MamaPercentage)
		}
	}
	childNames := strings.Join(lo.Map(children, func(m family.Member, _ int) string {
		return m.Name
	}), ", ")

	sections := []string{
		fmt.Sprintf("You are Allie, a family assistant specializing in workload balance and coordination.\nToday's date is %s.",
			e.clock.Now().Format("1/2/2006")),
		personalitySection(profile, settings),
		contextSection(analysis.ConversationContext),
		focusSection(settings, analysis.Classification),
		formattingSection(settings),
		strings.TrimRight(fmt.Sprintf(`Family Data Context:
Family Name: %s
Current Week: %d
Children: %s
Tasks: %d tasks tracked
%s`, familyName, currentWeek, childNames, taskCount, workloadLine), "\n"),
		"Remember, you are a supportive partner in this family's journey toward better balance. Tailor your responses to their unique situation and needs.",
	}

	return strings.Join(sections, "\n\n")
}

func personalitySection(profile Profile, settings Settings) string {
	verbosity := "Balance detail and brevity based on the question complexity."
	switch settings.VerbosityLevel {
	case VerbosityConcise:
		verbosity = "Keep responses brief and to the point."
	case VerbosityDetailed:
		verbosity = "Provide comprehensive, detailed responses."
	}

	phrases := lo.Map(profile.ExamplePhrases, func(p string, _ int) string {
		return fmt.Sprintf("- %q", p)
	})

	return fmt.Sprintf(`PERSONALITY:
Communicate in a %s tone.
Focus particularly on %s.
Your style should be %s.
Verbosity level: %s

Example phrases that capture your tone:
%s`, profile.Tone, strings.Join(profile.FocusAreas, ", "), profile.ResponseStyle, verbosity, strings.Join(phrases, "\n"))
}

func contextSection(summary conversation.Summary) string {
	topics := "- No recent topics"
	if len(summary.Topics) > 0 {
		shown := summary.Topics
		if len(shown) > 3 {
			shown = shown[:3]
		}
		topics = strings.Join(lo.Map(shown, func(t string, _ int) string {
			return "- " + t
		}), "\n")
	}

	entities := "- No specific entities"
	if len(summary.ProminentEntities) > 0 {
		var lines []string
		for _, entityType := range sortedKeys(summary.ProminentEntities) {
			lines = append(lines, fmt.Sprintf("- %s: %s", entityType, summary.ProminentEntities[entityType]))
		}
		entities = strings.Join(lines, "\n")
	}

	messageCount := summary.MessageCount
	if messageCount == 0 {
		messageCount = 1
	}
	focus := summary.CurrentFocus
	if focus == "" {
		focus = "Not yet determined"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CONVERSATION CONTEXT:\nMessage count in this session: %d\nFocus of conversation: %s\n", messageCount, focus)
	if summary.MessageCount > 1 {
		dominant := summary.DominantIntent
		if dominant == "" {
			dominant = "general"
		}
		fmt.Fprintf(&b, "Dominant intent category: %s\n", dominant)
	}
	fmt.Fprintf(&b, "\nRecent topics:\n%s\n\nReferenced entities:\n%s", topics, entities)

	if len(summary.OpenQuestions) > 0 {
		questions := lo.Map(summary.OpenQuestions, func(q string, _ int) string {
			return fmt.Sprintf("- %q", q)
		})
		fmt.Fprintf(&b, "\n\nOpen questions needing answers:\n%s", strings.Join(questions, "\n"))
	}

	return b.String()
}

func focusSection(settings Settings, classification classifier.Classification) string {
	focusAreas := settings.FocusAreas
	if len(focusAreas) == 0 {
		focusAreas = []string{"workload_balance"}
	}
	areaLines := strings.Join(lo.Map(focusAreas, func(area string, _ int) string {
		return "- " + strings.ReplaceAll(area, "_", " ")
	}), "\n")

	var b strings.Builder
	fmt.Fprintf(&b, "RESPONSE FOCUS:\nPrimary intent detected: %s (%.0f%% confidence)\n",
		classification.Intent, classification.Confidence*100)
	if settings.PrioritizedIntents[classification.Intent] > 0 {
		b.WriteString("This is a high priority intent for this family based on previous interactions.\n")
	}
	fmt.Fprintf(&b, "\nPrioritize these family focus areas:\n%s\n", areaLines)

	if settings.ContentFilters.ResearchBased {
		b.WriteString("\nInclude relevant research findings from the knowledge base when appropriate.")
	}
	if settings.ContentFilters.ActionOriented {
		b.WriteString("\nProvide clear, actionable next steps in your response.")
	}
	if settings.ContentFilters.IncludeExamples {
		b.WriteString("\nInclude concrete examples that relate to this family's specific situation.")
	}

	switch {
	case strings.HasPrefix(classification.Intent, "task."):
		b.WriteString(`

For task management queries:
- Be specific about which family member would be responsible
- Suggest clear deadlines and follow-up mechanisms
- Connect tasks to overall workload balance goals`)
	case strings.HasPrefix(classification.Intent, "relationship."):
		b.WriteString(`

For relationship queries:
- Emphasize how relationship health connects to family balance
- Suggest activities that respect current workload distribution
- Focus on communication and appreciation strategies`)
	case strings.HasPrefix(classification.Intent, "child."):
		b.WriteString(`

For child-related queries:
- Consider developmental stages appropriate to the child's age
- Suggest approaches that involve both parents equitably
- Emphasize quality over quantity in parent-child interactions`)
	case strings.HasPrefix(classification.Intent, "calendar."):
		b.WriteString(`

For calendar and scheduling queries:
- Help balance responsibilities across the schedule
- Look for potential scheduling conflicts or overload
- Suggest coordination strategies to reduce mental load`)
	}

	return b.String()
}

func formattingSection(settings Settings) string {
	emoji := "Avoid using emoji in your response."
	if settings.Communication.UseEmoji {
		emoji = "Use appropriate emoji to add warmth and clarity to your response."
	}

	format := "Focus on clear narrative text rather than visual formatting."
	if settings.Communication.FormatPreference == "visual" {
		format = "Use formatting like bullet points, numbered lists, and section headers to organize information visually."
	}

	technical := "Balance technical accuracy with accessible explanations."
	switch settings.Communication.TechnicalLevel {
	case "simplified":
		technical = "Use simplified explanations without technical terminology."
	case "detailed":
		technical = "You can use technical concepts and detailed explanations."
	}

	length := "Adjust your response length appropriately to the complexity of the query."
	switch settings.VerbosityLevel {
	case VerbosityConcise:
		length = "Keep your response brief and focused on the most important information."
	case VerbosityDetailed:
		length = "Provide comprehensive information with relevant details and context."
	}

	return fmt.Sprintf("RESPONSE FORMATTING:\n%s\n%s\n\nTechnical detail level: %s\n\n%s",
		emoji, format, technical, length)
}

func sortedKeys(m map[string]string) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
