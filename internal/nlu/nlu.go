// Package nlu implements the rule-based natural language understanding
// layer: intent detection, entity extraction, and sentiment analysis over
// free-text family-coordination messages. All matching is deterministic
// pattern work; no model calls happen here.
package nlu

import (
	"strings"
	"time"

	"github.com/allie-ai/allie-core/internal/family"
)

// IntentUnknown is returned when no intent pattern scores above threshold.
const IntentUnknown = "unknown"

// basic safety limits to avoid pathological inputs
const (
	maxTextLen       = 64 * 1024 // 64KB
	maxEntityMatches = 50        // per entity type, regardless of input length
)

// IntentResult is the outcome of intent detection.
type IntentResult struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// Category returns the substring before the first dot, or the whole
// intent when it has no category prefix.
func (r IntentResult) Category() string {
	if i := strings.Index(r.Intent, "."); i >= 0 {
		return r.Intent[:i]
	}
	return r.Intent
}

// Action returns the substring after the first dot.
func (r IntentResult) Action() string {
	if i := strings.Index(r.Intent, "."); i >= 0 {
		return r.Intent[i+1:]
	}
	return ""
}

// Person is a person reference extracted from text.
type Person struct {
	Kind           string `json:"kind"` // with, for, possessive, child, role
	Name           string `json:"name,omitempty"`
	Role           string `json:"role,omitempty"`
	IsFamilyMember bool   `json:"isFamilyMember,omitempty"`
	Text           string `json:"text"`
}

// Location is a place reference extracted from text.
type Location struct {
	Kind     string `json:"kind"` // at, in, specific, address
	Location string `json:"location"`
	Text     string `json:"text"`
}

// EventTypeMatch marks the presence of an event-type keyword.
type EventTypeMatch struct {
	Type string `json:"type"` // appointment, social, reminder, deadline, childActivity
	Text string `json:"text"`
}

// EmotionMatch marks the presence of emotion vocabulary.
type EmotionMatch struct {
	Type string `json:"type"` // positive, negative, neutral
	Text string `json:"text"`
}

// Entities is the full extraction result for one message. Every slice
// keeps source order; empty slices mean nothing was found for that type.
type Entities struct {
	ChildNames          []string         `json:"childNames,omitempty"`
	ProviderNames       []string         `json:"providerNames,omitempty"`
	ProviderSpecialties []string         `json:"providerSpecialties,omitempty"`
	Dates               []DateMatch      `json:"dates,omitempty"`
	Times               []TimeMatch      `json:"times,omitempty"`
	Locations           []Location       `json:"locations,omitempty"`
	People              []Person         `json:"people,omitempty"`
	EventTypes          []EventTypeMatch `json:"eventTypes,omitempty"`
	Emotions            []EmotionMatch   `json:"emotions,omitempty"`
}

// Flatten projects the typed extraction result into the generic
// type -> values form consumed by the conversation context store.
func (e Entities) Flatten() map[string][]string {
	out := map[string][]string{}
	put := func(key string, vals []string) {
		if len(vals) > 0 {
			out[key] = vals
		}
	}
	put("childName", e.ChildNames)
	put("providerName", e.ProviderNames)
	put("providerSpecialty", e.ProviderSpecialties)

	var dates []string
	for _, d := range e.Dates {
		dates = append(dates, d.Text)
	}
	put("date", dates)

	var times []string
	for _, t := range e.Times {
		times = append(times, t.Text)
	}
	put("time", times)

	var locs []string
	for _, l := range e.Locations {
		locs = append(locs, l.Location)
	}
	put("location", locs)

	var people []string
	for _, p := range e.People {
		if p.Name != "" {
			people = append(people, p.Name)
		} else if p.Role != "" {
			people = append(people, p.Role)
		}
	}
	put("person", people)

	var events []string
	for _, ev := range e.EventTypes {
		events = append(events, ev.Type)
	}
	put("eventType", events)

	var emotions []string
	for _, em := range e.Emotions {
		emotions = append(emotions, em.Text)
	}
	put("emotion", emotions)

	return out
}

// MessageAnalysis is the combined intent plus entity view of one message.
type MessageAnalysis struct {
	IntentResult
	Category string   `json:"category"`
	Action   string   `json:"action"`
	Entities Entities `json:"entities"`
}

// AnalyzeMessage runs intent detection and entity extraction together.
func AnalyzeMessage(text string, fam *family.Data, now time.Time) MessageAnalysis {
	res := DetectIntent(text)
	return MessageAnalysis{
		IntentResult: res,
		Category:     res.Category(),
		Action:       res.Action(),
		Entities:     ExtractEntities(text, fam, now),
	}
}
