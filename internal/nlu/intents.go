package nlu

import (
	"regexp"
	"strings"
)

// intentDef is one entry in the intent registry: a precise pattern set,
// a keyword set, and a base confidence the match score is scaled by.
type intentDef struct {
	name       string
	patterns   []*regexp.Regexp
	keywords   []string
	confidence float64
}

// The primary registry is precise but narrow; the legacy table below has
// broad coverage with weaker precision and is only consulted when nothing
// here scores above the fallback threshold.
var intentRegistry = []intentDef{
	{
		name: "provider.add",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:add|create|save|new)\s+(?:a|an)?\s*(?:doctor|provider|pediatrician|dentist|teacher|instructor|coach|tutor|babysitter)`),
			regexp.MustCompile(`(?i)(?:save|store|remember|keep track of)\s+(?:doctor|provider|contact|specialist|teacher)`),
		},
		keywords:   []string{"provider", "add doctor", "new doctor", "save provider", "add teacher", "new provider"},
		confidence: 0.8,
	},
	{
		name: "provider.find",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:find|get|show|search|look up)\s+(?:a|an|my|our)?\s*(?:doctor|provider|pediatrician|dentist|teacher|instructor|coach|tutor|babysitter)`),
			regexp.MustCompile(`(?i)(?:who is|what is the contact for)\s+(?:my|our|the)?\s*(?:doctor|provider|pediatrician|dentist|teacher)`),
		},
		keywords:   []string{"find doctor", "show providers", "contact information", "provider details"},
		confidence: 0.7,
	},
	{
		name: "medical.appointment.add",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:add|create|schedule|book|set up)\s+(?:a|an)?\s*(?:doctor|medical|dentist|pediatrician|therapy|checkup|wellness|health)\s*(?:appointment|visit|checkup)`),
			regexp.MustCompile(`(?i)(?:need|want)\s+to\s+(?:schedule|book|add|create)\s+(?:a|an)\s+(?:appointment|visit|checkup)`),
		},
		keywords:   []string{"doctor appointment", "dentist appointment", "medical visit", "schedule checkup", "book appointment"},
		confidence: 0.85,
	},
	{
		name: "medical.appointment.view",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:show|view|see|find|get|when is|what time is)\s+(?:my|our|the|next|upcoming)\s*(?:doctor|medical|dentist|pediatrician|therapy|checkup|wellness|health)\s*(?:appointment|visit|checkup)`),
		},
		keywords:   []string{"upcoming appointments", "next doctor visit", "medical schedule"},
		confidence: 0.75,
	},
	{
		name: "medical.record.add",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:add|upload|save|store|record)\s+(?:medical|health|vaccine|medication|prescription|diagnosis|treatment|doctor|growth)\s+(?:record|information|data|document|note|history)`),
		},
		keywords:   []string{"medical record", "health information", "save prescription", "upload doctor notes"},
		confidence: 0.8,
	},
	{
		name: "task.add",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:add|create|make|new)\s+(?:a|an)?\s*(?:task|to-?do|chore|reminder|assignment)`),
			regexp.MustCompile(`(?i)(?:remind me|i need|we need|don't forget)\s+to\s+(?:\w+\s+){1,10}`),
			regexp.MustCompile(`(?i)(?:need|want|have)\s+to\s+(?:remember|do|complete|finish)`),
		},
		keywords:   []string{"add task", "create todo", "new chore", "remind me to"},
		confidence: 0.8,
	},
	{
		name: "task.list",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:show|list|view|get|what are|tell me)\s+(?:my|our|the|all|pending|remaining|current|this week'?s|today'?s)?\s*(?:tasks|to-?dos?|chores|reminders|assignments)`),
			regexp.MustCompile(`(?i)(?:what|which)\s+(?:tasks|to-?dos?|chores|things)\s+(?:do I|do we|are|should be)\s+(?:have|need)\s+to\s+(?:do|complete|finish)`),
		},
		keywords:   []string{"show tasks", "view todos", "pending chores", "my tasks"},
		confidence: 0.75,
	},
	{
		name: "task.complete",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:mark|set|complete|finish|done with|check off)\s+(?:task|to-?do|chore|reminder|assignment)\s+(?:as)?\s*(?:complete|completed|done|finished)`),
			regexp.MustCompile(`(?i)(?:i|we)\s+(?:finished|completed|did|have done)\s+(?:the|a|an)?\s*(?:task|to-?do|chore|assignment)`),
		},
		keywords:   []string{"mark complete", "finished task", "done with chore"},
		confidence: 0.8,
	},
	{
		name: "relationship.date",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:plan|create|suggest|recommend|need|want|book|organize)\s+(?:a|an)?\s*(?:date|date night|evening out|dinner date|romantic|getaway)`),
			regexp.MustCompile(`(?i)(?:what should we|where should we|when can we)\s+(?:do|go|have)\s+(?:for|on)\s+(?:date|date night)`),
		},
		keywords:   []string{"date night", "plan date", "romantic evening", "dinner date"},
		confidence: 0.8,
	},
	{
		name: "relationship.gratitude",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:send|create|write|express)\s+(?:a|an)?\s*(?:gratitude|thank you|appreciation|thank|thankful)\s+(?:message|note|text)`),
			regexp.MustCompile(`(?i)(?:tell|let)\s+(?:my|spouse|partner|wife|husband)\s+(?:know|that)\s+(?:i|we)\s+(?:appreciate|am grateful|am thankful)`),
		},
		keywords:   []string{"gratitude message", "appreciation note", "thank partner"},
		confidence: 0.75,
	},
	{
		name: "relationship.checkin",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:schedule|create|set up|add|plan)\s+(?:a|an)?\s*(?:checkin|check-in|check in|relationship talk|couple talk|couple time)`),
			regexp.MustCompile(`(?i)(?:when|how|should)\s+(?:we|i)\s+(?:do|have|schedule)\s+(?:our|a|an)\s+(?:relationship check-in|couple discussion)`),
		},
		keywords:   []string{"relationship check-in", "couple discussion", "partner talk"},
		confidence: 0.7,
	},
	{
		name: "calendar.add",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:add|create|put|place)\b.+\b(?:calendar|schedule)\b`),
			regexp.MustCompile(`(?i)\b(?:schedule|book|arrange)\b.+\b(?:appointment|meeting|event)\b`),
			regexp.MustCompile(`(?i)\bremind me\b.+\b(?:on|at|about)\b`),
		},
		keywords:   []string{"add to calendar", "schedule event", "create appointment"},
		confidence: 0.8,
	},
	{
		name: "calendar.check",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:what|when|where).+\b(?:calendar|schedule|agenda)\b`),
			regexp.MustCompile(`(?i)\b(?:do I have|is there)\b.+\b(?:scheduled|planned|on my calendar)\b`),
			regexp.MustCompile(`(?i)\b(?:show|view|check|look at)\b.+\b(?:calendar|schedule|agenda)\b`),
		},
		keywords:   []string{"check calendar", "view schedule", "upcoming events"},
		confidence: 0.75,
	},
	{
		name: "child.add_appointment",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:add|schedule|book)\b.+\b(?:appointment|doctor|dentist|checkup)\b.+\b(?:for|with)\b.+\b(?:child|kid|son|daughter)\b`),
			regexp.MustCompile(`(?i)\b(?:my child|my kid|my son|my daughter)\b.+\b(?:appointment|doctor|dentist|checkup)\b`),
		},
		keywords:   []string{"child appointment", "kids doctor", "child checkup"},
		confidence: 0.85,
	},
	{
		name: "child.track_growth",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:track|record|log|document)\b.+\b(?:growth|height|weight|measurements)\b`),
			regexp.MustCompile(`(?i)\b(?:my child|my kid|my son|my daughter)\b.+\b(?:grew|growth|taller|weight|measure|size)\b`),
		},
		keywords:   []string{"child growth", "height tracking", "weight measurement"},
		confidence: 0.8,
	},
	{
		name: "clarification.who",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:which|what|who)\s+(?:one|person|child|kid|family member)`),
			regexp.MustCompile(`(?i)(?:do you mean|are you referring to|are you talking about)\s+([A-Za-z]+)`),
		},
		keywords:   []string{"which one", "who specifically", "which family member"},
		confidence: 0.85,
	},
	{
		name: "clarification.when",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:which|what)\s+(?:date|day|time)`),
			regexp.MustCompile(`(?i)(?:do you mean|are you referring to|are you talking about)\s+(?:today|tomorrow|this weekend)`),
		},
		keywords:   []string{"which date", "what time specifically", "which day"},
		confidence: 0.85,
	},
	{
		name: "conversation.feedback",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:that(?:'s| is| was)|this is)\s+(?:not right|wrong|incorrect|unhelpful|not helpful|confusing)`),
			regexp.MustCompile(`(?i)(?:you're|you are|that's|that is)\s+(?:right|correct|helpful)`),
		},
		keywords:   []string{"that's wrong", "correct information", "not helpful"},
		confidence: 0.8,
	},
}

type legacyGroup struct {
	name     string
	patterns []*regexp.Regexp
}

// legacyIntents holds each intent's full pattern group. Scoring here is the
// fraction of patterns in the group that match, not any-match. Order matters:
// ties resolve to the earlier group.
var legacyIntents = []legacyGroup{
	// calendar
	{"calendar.add", []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:add|create|put|place)\b.+\b(?:calendar|schedule)\b`),
		regexp.MustCompile(`(?i)\b(?:schedule|book|arrange)\b.+\b(?:appointment|meeting|event)\b`),
		regexp.MustCompile(`(?i)\bremind me\b.+\b(?:on|at|about)\b`),
	}},
	{"calendar.check", []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:what|when|where).+\b(?:calendar|schedule|agenda)\b`),
		regexp.MustCompile(`(?i)\b(?:do I have|is there)\b.+\b(?:scheduled|planned|on my calendar)\b`),
		regexp.MustCompile(`(?i)\b(?:show|view|check|look at)\b.+\b(?:calendar|schedule|agenda)\b`),
	}},
	{"calendar.schedule", []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:when|what time).+\b(?:good|work|available)\b`),
		regexp.MustCompile(`(?i)\b(?:find|suggest)\b.+\b(?:time|slot|opening|availability)\b`),
	}},
	{"date.query", []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:what|which)\b.+\b(?:day|date)\b`),
		regexp.MustCompile(`(?i)\b(?:today|tomorrow|yesterday)\b.+\b(?:date)\b`),
		regexp.MustCompile(`(?i)\b(?:current|today's)\b.+\b(?:date)\b`),
	}},
	// relationship
	{"relationship.date", []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:date night|dinner date|romantic)\b`),
		regexp.MustCompile(`(?i)\b(?:restaurant|dinner|movie)\b.+\b(?:with my partner|with my spouse|with my wife|with my husband)\b`),
	}},
	{"relationship.checkin", []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:couple|relationship|partner)\b.+\b(?:check.?in|checkin|check up)\b`),
		regexp.MustCompile(`(?i)\b(?:talk|connect|chat)\b.+\b(?:with partner|with spouse|about relationship)\b`),
	}},
	{"relationship.meeting", []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:relationship|couple|marriage)\b.+\b(?:meeting|discussion|talk)\b`),
		regexp.MustCompile(`(?i)\b(?:sit down|serious talk|conversation)\b.+\b(?:relationship|marriage|partnership)\b`),
	}},
	{"relationship.activity", []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:activity|thing to do|something fun)\b.+\b(?:with partner|with spouse|as a couple)\b`),
		regexp.MustCompile(`(?i)\b(?:strengthen|improve|work on)\b.+\b(?:relationship|marriage|partnership)\b`),
		regexp.MustCompile(`(?i)\b(?:quality time|together time)\b`),
	}},
	{"relationship.advice", []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:help|advice|guidance)\b.+\b(?:relationship|partner|spouse|marriage)\b`),
		regexp.MustCompile(`(?i)\b(?:struggling|difficulty|problem|issue)\b.+\b(?:relationship|marriage|partnership)\b`),
		regexp.MustCompile(`(?i)\b(?:how to|what should)\b.+\b(?:relationship|connect|communicate)\b`),
	}},
	// children
	{"child.add_appointment", []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:add|schedule|book)\b.+\b(?:appointment|doctor|dentist|checkup)\b.+\b(?:for|with)\b.+\b(?:child|kid|son|daughter)\b`),
		regexp.MustCompile(`(?i)\b(?:my child|my kid|my son|my daughter)\b.+\b(?:appointment|doctor|dentist|checkup)\b`),
	}},
	{"child.track_growth", []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:track|record|log|document)\b.+\b(?:growth|height|weight|measurements)\b`),
		regexp.MustCompile(`(?i)\b(?:my child|my kid|my son|my daughter)\b.+\b(?:grew|growth|taller|weight|measure|size)\b`),
	}},
	{"child.track_homework", []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:track|record|log|add)\b.+\b(?:homework|assignment|school work|project)\b`),
		regexp.MustCompile(`(?i)\b(?:my child|my kid|my son|my daughter)\b.+\b(?:homework|assignment|school)\b`),
	}},
	{"child.emotional_wellbeing", []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:track|record|log|note)\b.+\b(?:mood|feeling|emotion|behavior)\b`),
		regexp.MustCompile(`(?i)\b(?:my child|my kid|my son|my daughter)\b.+\b(?:feeling|emotional|upset|happy|sad|mood)\b`),
	}},
	{"child.milestone", []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:track|record|milestone|achievement|development)\b`),
		regexp.MustCompile(`(?i)\b(?:my child|my kid|my son|my daughter)\b.+\b(?:learned|started|first time|began|milestone)\b`),
	}},
	// tasks
	{"task.add", []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:add|create|make|need)\b.+\b(?:task|chore|to-do|todo|assignment)\b`),
		regexp.MustCompile(`(?i)\b(?:assign|give)\b.+\b(?:task|chore|responsibility|job)\b`),
	}},
	{"task.complete", []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:complete|finish|done|did|mark complete)\b.+\b(?:task|chore|to-do|todo)\b`),
		regexp.MustCompile(`(?i)\b(?:task|chore|to-do|todo)\b.+\b(?:complete|finished|done)\b`),
	}},
	{"task.reassign", []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:reassign|transfer|move|change)\b.+\b(?:task|chore|to-do|todo)\b`),
		regexp.MustCompile(`(?i)\b(?:give|assign)\b.+\b(?:task|chore)\b.+\b(?:to someone else|to other person|instead)\b`),
	}},
	{"task.query", []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:what|which|show|view|list)\b.+\b(?:task|chore|to-do|todo)\b`),
		regexp.MustCompile(`(?i)\b(?:do I have|are there|pending)\b.+\b(?:task|chore|to-do|todo)\b`),
		regexp.MustCompile(`(?i)\b(?:who is responsible for|who should do|who does)\b.+\b(?:task|chore|responsibility)\b`),
	}},
	// surveys and balance
	{"survey.result", []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:result|outcome|finding|report)\b.+\b(?:survey|questionnaire|assessment)\b`),
		regexp.MustCompile(`(?i)\b(?:survey|questionnaire|assessment)\b.+\b(?:result|outcome|finding|report)\b`),
		regexp.MustCompile(`(?i)\b(?:how did|what did)\b.+\b(?:survey|questionnaire|assessment)\b.+\b(?:show|say|reveal)\b`),
	}},
	{"survey.insight", []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:insight|analysis|interpretation|understanding)\b.+\b(?:survey|data|result)\b`),
		regexp.MustCompile(`(?i)\b(?:what does|what did|what do)\b.+\b(?:survey|data|result)\b.+\b(?:mean|indicate|suggest|tell us)\b`),
	}},
	{"balance.query", []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:balance|imbalance|equality|distribution)\b.+\b(?:task|chore|work|responsibility|load)\b`),
		regexp.MustCompile(`(?i)\b(?:who does|who is doing|who handles)\b.+\b(?:more|most|larger share|bigger portion)\b`),
		regexp.MustCompile(`(?i)\b(?:mama|papa|mom|dad|mother|father)\b.+\b(?:percentage|portion|share|distribution)\b`),
	}},
	{"data.analysis", []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:analyze|examine|study|look at)\b.+\b(?:data|result|survey|response)\b`),
		regexp.MustCompile(`(?i)\b(?:trend|pattern|correlation|relationship)\b.+\b(?:data|result|survey|response)\b`),
	}},
	// other
	{"creative.writing", []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:write|create|generate|compose)\b.+\b(?:story|poem|essay|article)\b`),
	}},
	{"emotional.support", []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:feel|feeling|felt)\b.+\b(?:overwhelmed|stressed|tired|exhausted|burnt out)\b`),
		regexp.MustCompile(`(?i)\b(?:need|want)\b.+\b(?:support|help|advice|guidance)\b.+\b(?:emotional|feeling|stress|anxiety)\b`),
	}},
	{"technical.help", []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:how to|how do I|can't)\b.+\b(?:use|access|find|navigate|get to)\b`),
		regexp.MustCompile(`(?i)\b(?:app|feature|function|button|screen)\b.+\b(?:not working|broken|issue|problem)\b`),
	}},
	{"general.greeting", []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(?:hi|hello|hey|good morning|good afternoon|good evening|howdy)`),
	}},
	{"general.question", []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(?:what|how|why|when|where|who|can you|could you)`),
	}},
}

const (
	patternScore      = 0.5
	keywordScore      = 0.3
	fallbackThreshold = 0.4
	legacyConfidence  = 0.6
	unknownConfidence = 0.3
)

// DetectIntent returns the best-scoring intent for the text. Score is
// patternScore for any pattern match plus keywordScore for any keyword
// match, scaled by the intent's base confidence. Below fallbackThreshold
// the broad legacy table is consulted at a fixed confidence.
func DetectIntent(text string) IntentResult {
	if text == "" {
		return IntentResult{Intent: IntentUnknown, Confidence: 0}
	}
	if len(text) > maxTextLen {
		text = text[:maxTextLen]
	}

	best := IntentResult{Intent: IntentUnknown, Confidence: unknownConfidence}
	lower := strings.ToLower(text)

	for _, def := range intentRegistry {
		score := 0.0
		for _, p := range def.patterns {
			if p.MatchString(text) {
				score += patternScore
				break
			}
		}
		for _, kw := range def.keywords {
			if strings.Contains(lower, kw) {
				score += keywordScore
				break
			}
		}
		score *= def.confidence
		if score > best.Confidence {
			best = IntentResult{Intent: def.name, Confidence: score}
		}
	}

	if best.Confidence < fallbackThreshold {
		if legacy := detectIntentLegacy(text); legacy != IntentUnknown {
			return IntentResult{Intent: legacy, Confidence: legacyConfidence}
		}
	}

	return best
}

// detectIntentLegacy scores each legacy group by the fraction of its
// patterns that match and returns the highest-fraction intent.
func detectIntentLegacy(text string) string {
	best := IntentUnknown
	highest := 0.0

	for _, g := range legacyIntents {
		matches := 0
		for _, p := range g.patterns {
			if p.MatchString(text) {
				matches++
			}
		}
		if matches == 0 {
			continue
		}
		confidence := float64(matches) / float64(len(g.patterns))
		if confidence > highest {
			highest = confidence
			best = g.name
		}
	}

	return best
}
