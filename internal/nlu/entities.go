package nlu

import (
	"regexp"
	"strings"
	"time"

	"github.com/allie-ai/allie-core/internal/family"
	logx "github.com/allie-ai/allie-core/pkg/logger"
)

var (
	childNamePattern         = regexp.MustCompile(`\b(?:for|with)\s+([A-Z][a-z]+)(?:\s|$|\W)`)
	providerNamePattern      = regexp.MustCompile(`\b(?:Dr\.?|Doctor|Prof\.?|Professor)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`)
	providerSpecialtyPattern = regexp.MustCompile(`(?i)\b(pediatrician|dentist|orthodontist|dermatologist|allergist|psychiatrist|psychologist|therapist|physical therapist|surgeon|specialist|physician|doctor|nurse practitioner|piano teacher|math tutor|swimming instructor|coach|teacher)\b`)
)

type locationPattern struct {
	kind    string
	pattern *regexp.Regexp
}

var locationPatterns = []locationPattern{
	{"at", regexp.MustCompile(`(?i)\bat\s+([A-Za-z0-9\s'.,]+?)\s+(?:on|at|from|tomorrow|today|next|this)\b`)},
	{"in", regexp.MustCompile(`(?i)\bin\s+([A-Za-z0-9\s'.,]+?)\s+(?:on|at|from|tomorrow|today|next|this)\b`)},
	{"specific", regexp.MustCompile(`(?i)\b(?:location|place|venue|address)(?:\s+(?:is|at|in))?\s+([A-Za-z0-9\s'.,]+)`)},
	{"address", regexp.MustCompile(`(?i)\b(\d+\s+[A-Za-z0-9\s'.,]+(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr|Court|Ct|Place|Pl))`)},
}

type personPattern struct {
	kind    string
	pattern *regexp.Regexp
}

var personPatterns = []personPattern{
	{"with", regexp.MustCompile(`\bwith\s+([A-Z][a-z]+)(?:\s+and\s+([A-Z][a-z]+))?\b`)},
	{"for", regexp.MustCompile(`\bfor\s+([A-Z][a-z]+)(?:\s+and\s+([A-Z][a-z]+))?\b`)},
	{"possessive", regexp.MustCompile(`\b([A-Z][a-z]+)'s\b`)},
	{"child", regexp.MustCompile(`(?i)\bmy\s+(?:child|kid|daughter|son)\s+([A-Z][a-z]+)\b`)},
}

type rolePattern struct {
	role    string
	pattern *regexp.Regexp
}

var rolePatterns = []rolePattern{
	{family.RoleTypeMama, regexp.MustCompile(`(?i)\b(?:mama|mom|mother|mommy)\b`)},
	{family.RoleTypePapa, regexp.MustCompile(`(?i)\b(?:papa|dad|daddy|father)\b`)},
	{family.RoleChild, regexp.MustCompile(`(?i)\b(?:child|kid|son|daughter)\b`)},
}

type eventTypePattern struct {
	eventType string
	pattern   *regexp.Regexp
}

var eventTypePatterns = []eventTypePattern{
	{"appointment", regexp.MustCompile(`(?i)\b(?:appointment|checkup|visit|consultation|exam|meeting|session)\b`)},
	{"social", regexp.MustCompile(`(?i)\b(?:party|gathering|celebration|event|hangout|get-?together)\b`)},
	{"reminder", regexp.MustCompile(`(?i)\b(?:remind|reminder|remember|don't forget|alert)\b`)},
	{"deadline", regexp.MustCompile(`(?i)\b(?:deadline|due date|by then|must be done)\b`)},
	{"childActivity", regexp.MustCompile(`(?i)\b(?:play date|soccer|baseball|practice|game|recital|performance|lesson)\b`)},
}

type emotionPattern struct {
	emotionType string
	pattern     *regexp.Regexp
}

var emotionPatterns = []emotionPattern{
	{"positive", regexp.MustCompile(`(?i)\b(?:happy|excited|joyful|pleased|glad|content|cheerful|thrilled|delighted)\b`)},
	{"negative", regexp.MustCompile(`(?i)\b(?:sad|upset|angry|frustrated|disappointed|stressed|anxious|worried|concerned)\b`)},
	{"neutral", regexp.MustCompile(`(?i)\b(?:okay|fine|neutral|alright|so-so|average)\b`)},
}

// ExtractEntities runs every entity extractor over the text. Each category
// is isolated: a panic in one extractor is logged and the remaining
// categories still contribute, so partial results are always returned.
func ExtractEntities(text string, fam *family.Data, now time.Time) Entities {
	var out Entities
	if text == "" {
		return out
	}
	if len(text) > maxTextLen {
		text = text[:maxTextLen]
	}

	safely("childNames", func() { out.ChildNames = extractChildNames(text, fam) })
	safely("providerNames", func() { out.ProviderNames = captureAll(providerNamePattern, text) })
	safely("providerSpecialties", func() { out.ProviderSpecialties = captureAll(providerSpecialtyPattern, text) })
	safely("dates", func() { out.Dates = ExtractDates(text, now) })
	safely("times", func() { out.Times = ExtractTimes(text, now) })
	safely("locations", func() { out.Locations = extractLocations(text) })
	safely("people", func() { out.People = ExtractPeople(text, fam) })
	safely("eventTypes", func() { out.EventTypes = extractEventTypes(text) })
	safely("emotions", func() { out.Emotions = extractEmotions(text) })

	return out
}

func safely(category string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logx.Warn().Str("category", category).Msgf("entity extraction panic recovered: %v", r)
		}
	}()
	fn()
}

// captureAll collects first-capture-group values, bounded by the match cap.
func captureAll(p *regexp.Regexp, text string) []string {
	var vals []string
	for _, m := range p.FindAllStringSubmatch(text, maxEntityMatches) {
		if len(m) > 1 && m[1] != "" {
			vals = append(vals, m[1])
		}
	}
	return vals
}

func extractChildNames(text string, fam *family.Data) []string {
	var names []string
	for _, m := range childNamePattern.FindAllStringSubmatch(text, maxEntityMatches) {
		if len(m) < 2 || m[1] == "" {
			continue
		}
		// accept anything when no roster was supplied
		if fam != nil && len(fam.Members) > 0 && !fam.IsChildName(m[1]) {
			continue
		}
		names = append(names, m[1])
	}
	return names
}

func extractLocations(text string) []Location {
	var locations []Location
	for _, lp := range locationPatterns {
		m := lp.pattern.FindStringSubmatch(text)
		if m == nil || m[1] == "" {
			continue
		}
		loc := strings.TrimSpace(m[1])
		loc = strings.TrimSuffix(loc, ".")
		loc = strings.Join(strings.Fields(loc), " ")
		locations = append(locations, Location{Kind: lp.kind, Location: loc, Text: m[0]})
	}
	return locations
}

// ExtractPeople finds person references and marks the ones matching the
// family roster with their role.
func ExtractPeople(text string, fam *family.Data) []Person {
	var people []Person

	addNamed := func(kind, name, matched string) {
		p := Person{Kind: kind, Name: name, Text: matched}
		if fam != nil {
			if member, ok := findMemberByName(fam, name); ok {
				p.IsFamilyMember = true
				p.Role = member.Role
			}
		}
		people = append(people, p)
	}

	for _, pp := range personPatterns {
		m := pp.pattern.FindStringSubmatch(text)
		if m == nil || m[1] == "" {
			continue
		}
		addNamed(pp.kind, m[1], m[0])
		// second person in "with X and Y"
		if len(m) > 2 && m[2] != "" {
			addNamed(pp.kind, m[2], m[0])
		}
	}

	for _, rp := range rolePatterns {
		if matched := rp.pattern.FindString(text); matched != "" {
			people = append(people, Person{Kind: "role", Role: rp.role, Text: matched})
		}
	}

	return people
}

func findMemberByName(fam *family.Data, name string) (family.Member, bool) {
	for _, m := range fam.Members {
		if strings.EqualFold(m.Name, name) {
			return m, true
		}
	}
	return family.Member{}, false
}

func extractEventTypes(text string) []EventTypeMatch {
	var events []EventTypeMatch
	for _, ep := range eventTypePatterns {
		if matched := ep.pattern.FindString(text); matched != "" {
			events = append(events, EventTypeMatch{Type: ep.eventType, Text: matched})
		}
	}
	return events
}

func extractEmotions(text string) []EmotionMatch {
	var emotions []EmotionMatch
	for _, ep := range emotionPatterns {
		if matched := ep.pattern.FindString(text); matched != "" {
			emotions = append(emotions, EmotionMatch{Type: ep.emotionType, Text: matched})
		}
	}
	return emotions
}
