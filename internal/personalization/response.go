package personalization

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/samber/lo"

	"github.com/allie-ai/allie-core/internal/family"
)

// PersonalizeResponse shapes a generated response to the family's
// preferences: verbosity, emoji, formatting, and name substitution.
// Responses shorter than 20 characters pass through untouched.
func (e *Engine) PersonalizeResponse(ctx context.Context, familyID, response string, fam *family.Data) string {
	if len(response) < 20 {
		return response
	}
	settings := e.GetSettings(ctx, familyID)

	out := response
	if settings.VerbosityLevel == VerbosityConcise && len(out) > 500 {
		out = reduceVerbosity(out)
	} else if settings.VerbosityLevel == VerbosityDetailed && len(out) < 300 {
		out = enhanceDetail(out, fam)
	}

	if settings.Communication.UseEmoji && !containsEmoji(out) {
		out = addEmoji(out)
	} else if !settings.Communication.UseEmoji {
		out = removeEmoji(out)
	}

	switch settings.Communication.FormatPreference {
	case "visual":
		out = enhanceVisualFormatting(out)
	case "text-only":
		out = toPlainText(out)
	}

	return substituteNames(out, fam)
}

var importanceMarkers = []string{"important", "key", "recommend", "suggest", "should"}

var percentPattern = regexp.MustCompile(`\d+%`)

// reduceVerbosity keeps the introduction, the first paragraph that looks
// important, and the closing paragraph.
func reduceVerbosity(response string) string {
	paragraphs := lo.Filter(strings.Split(response, "\n\n"), func(p string, _ int) bool {
		return strings.TrimSpace(p) != ""
	})
	if len(paragraphs) <= 2 {
		return response
	}

	condensed := []string{paragraphs[0]}

	important := ""
	for _, p := range paragraphs[1:] {
		if containsAnyMarker(p) || percentPattern.MatchString(p) {
			important = p
			break
		}
	}
	if important != "" {
		condensed = append(condensed, important)
	} else {
		condensed = append(condensed, paragraphs[1])
	}

	last := paragraphs[len(paragraphs)-1]
	if last != condensed[len(condensed)-1] {
		condensed = append(condensed, last)
	}

	return strings.Join(condensed, "\n\n")
}

func containsAnyMarker(p string) bool {
	return lo.SomeBy(importanceMarkers, func(marker string) bool {
		return strings.Contains(p, marker)
	})
}

// enhanceDetail appends family data context relevant to what the
// response already talks about.
func enhanceDetail(response string, fam *family.Data) string {
	if len(response) > 500 || fam == nil {
		return response
	}

	enhanced := response
	lower := strings.ToLower(response)

	if len(fam.Tasks) > 0 && containsAnyOf(lower, "task", "chore", "responsibility") {
		pending := lo.Filter(fam.Tasks, func(t family.Task, _ int) bool {
			return !t.Completed
		})
		if len(pending) > 0 {
			assignee := "the family"
			if m, ok := fam.MemberByID(pending[0].AssignedTo); ok {
				assignee = m.Name
			}
			enhanced += fmt.Sprintf("\n\nYou currently have %d pending tasks in your family dashboard. The next one due is %q assigned to %s.",
				len(pending), pending[0].Title, assignee)
		}
	}

	if fam.MamaPercentage > 0 && containsAnyOf(lower, "survey", "workload", "balance") {
		enhanced += fmt.Sprintf("\n\nBased on your latest survey data, the workload distribution is: Mama %.1f%%, Papa %.1f%%.",
			fam.MamaPercentage, 100-fam.MamaPercentage)
	}

	return enhanced
}

func containsAnyOf(text string, words ...string) bool {
	return lo.SomeBy(words, func(w string) bool {
		return strings.Contains(text, w)
	})
}

// Keyword to emoji pairs, checked in order per paragraph.
var emojiMap = []struct {
	keyword string
	emoji   string
}{
	{"task", "✅"},
	{"balance", "⚖️"},
	{"family", "\U0001F468‍\U0001F469‍\U0001F467‍\U0001F466"},
	{"calendar", "\U0001F4C5"},
	{"schedule", "\U0001F5D3️"},
	{"important", "⭐"},
	{"reminder", "⏰"},
	{"suggestion", "\U0001F4A1"},
	{"idea", "\U0001F4A1"},
	{"relationship", "❤️"},
	{"growth", "\U0001F4C8"},
	{"celebrate", "\U0001F389"},
	{"progress", "\U0001F680"},
	{"child", "\U0001F476"},
	{"appointment", "\U0001F5D3️"},
}

var emojiPattern = regexp.MustCompile(`[\x{1F300}-\x{1FAFF}\x{2600}-\x{27BF}\x{2B50}\x{2696}\x{2705}\x{2764}\x{23F0}]`)

func containsEmoji(text string) bool {
	return emojiPattern.MatchString(text)
}

// addEmoji prefixes paragraphs with an emoji matching their first
// recognized keyword.
func addEmoji(response string) string {
	paragraphs := strings.Split(response, "\n\n")
	for i, p := range paragraphs {
		if containsEmoji(p) {
			continue
		}
		lower := strings.ToLower(p)
		for _, m := range emojiMap {
			if strings.Contains(lower, m.keyword) {
				paragraphs[i] = m.emoji + " " + p
				break
			}
		}
	}
	return strings.Join(paragraphs, "\n\n")
}

var collapseSpaces = regexp.MustCompile(`[ \t]{2,}`)

func removeEmoji(response string) string {
	out := emojiPattern.ReplaceAllString(response, "")
	return collapseSpaces.ReplaceAllString(out, " ")
}

var sectionHeaderWords = []string{"tips", "steps", "strategies", "ideas"}

// enhanceVisualFormatting promotes short header-like paragraphs to
// markdown headers and comma lists to bullets. Already formatted text
// passes through.
func enhanceVisualFormatting(response string) string {
	if strings.Contains(response, "##") || strings.Contains(response, "- ") || strings.Contains(response, "1. ") {
		return response
	}

	paragraphs := strings.Split(response, "\n\n")
	formatted := []string{paragraphs[0]}

	for _, p := range paragraphs[1:] {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}

		looksLikeHeader := !strings.Contains(trimmed, "\n") && len(trimmed) < 60 &&
			(strings.HasSuffix(trimmed, ":") || containsAnyOf(strings.ToLower(trimmed), sectionHeaderWords...))
		switch {
		case looksLikeHeader:
			formatted = append(formatted, "## "+trimmed)
		case strings.Contains(trimmed, ", ") && !strings.Contains(trimmed, "."):
			items := lo.FilterMap(strings.Split(trimmed, ", "), func(item string, _ int) (string, bool) {
				item = strings.TrimSpace(item)
				return "- " + item, item != ""
			})
			formatted = append(formatted, strings.Join(items, "\n"))
		default:
			formatted = append(formatted, trimmed)
		}
	}

	return strings.Join(formatted, "\n\n")
}

var (
	headerPattern   = regexp.MustCompile(`#+\s+`)
	numberedPattern = regexp.MustCompile(`\d+\.\s+`)
	boldPattern     = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicPattern   = regexp.MustCompile(`\*(.*?)\*`)
	underPattern    = regexp.MustCompile(`__(.*?)__`)
	underonePattern = regexp.MustCompile(`_(.*?)_`)
)

func toPlainText(response string) string {
	out := headerPattern.ReplaceAllString(response, "")
	out = strings.ReplaceAll(out, "- ", "• ")
	out = numberedPattern.ReplaceAllString(out, "• ")
	out = boldPattern.ReplaceAllString(out, "$1")
	out = italicPattern.ReplaceAllString(out, "$1")
	out = underPattern.ReplaceAllString(out, "$1")
	out = underonePattern.ReplaceAllString(out, "$1")
	return out
}

var (
	mamaTermPattern   = regexp.MustCompile(`(?i)\b(mom|mother|mama)\b`)
	papaTermPattern   = regexp.MustCompile(`(?i)\b(dad|father|papa)\b`)
	childTermPattern  = regexp.MustCompile(`(?i)\b(your child|the child)\b`)
	familyTermPattern = regexp.MustCompile(`(?i)\b(your family|the family)\b`)
)

// substituteNames replaces generic role words with the family's actual
// names. The generic child terms are only replaced when exactly one
// child is on the roster.
func substituteNames(response string, fam *family.Data) string {
	if fam == nil || len(fam.Members) == 0 {
		return response
	}

	out := response
	if mama, ok := fam.ParentByRoleType(family.RoleTypeMama); ok {
		out = mamaTermPattern.ReplaceAllString(out, mama.Name)
	}
	if papa, ok := fam.ParentByRoleType(family.RoleTypePapa); ok {
		out = papaTermPattern.ReplaceAllString(out, papa.Name)
	}
	if child, ok := fam.SingleChild(); ok {
		out = childTermPattern.ReplaceAllString(out, child.Name)
	}
	if fam.FamilyName != "" {
		out = familyTermPattern.ReplaceAllString(out, "the "+fam.FamilyName+" family")
	}
	return out
}
