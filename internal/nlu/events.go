package nlu

import (
	"regexp"
	"strings"
	"time"

	"github.com/allie-ai/allie-core/internal/family"
)

// EventDetails is a calendar-ready projection of an event mentioned in text.
type EventDetails struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Person      string    `json:"person,omitempty"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	Location    string    `json:"location,omitempty"`
	Category    string    `json:"category,omitempty"`
	Type        string    `json:"type,omitempty"` // relationship events: date, check-in, meeting
}

var eventTitlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:add|create|schedule)\s+(?:a|an)\s+([^"]+?)(?:\s+on|\s+at|\s+for|\s+to my calendar|\s+to calendar|$)`),
	regexp.MustCompile(`(?i)\b(?:remind me|reminder)\s+(?:about|to|of)\s+([^"]+?)(?:\s+on|\s+at|\s+by|$)`),
	regexp.MustCompile(`(?i)\b(?:put|place|set)\s+([^"]+?)(?:\s+on|\s+in)\s+(?:my\s+)?calendar\b`),
}

// ExtractEventDetails builds calendar event details from the text, filling
// gaps with category-appropriate defaults. Returns ok=false when not even
// a title could be derived.
func ExtractEventDetails(text string, fam *family.Data, now time.Time) (EventDetails, bool) {
	entities := ExtractEntities(text, fam, now)
	intent := DetectIntent(text)

	var ev EventDetails
	lower := strings.ToLower(text)

	switch {
	case strings.HasPrefix(intent.Intent, "calendar."):
		ev.Category = "general"
	case intent.Intent == "child.add_appointment":
		ev.Category = "appointment"
	case strings.HasPrefix(intent.Intent, "relationship."):
		ev.Category = "relationship"
	case len(entities.EventTypes) > 0:
		ev.Category = entities.EventTypes[0].Type
	}

	for _, p := range eventTitlePatterns {
		if m := p.FindStringSubmatch(text); m != nil && m[1] != "" {
			ev.Title = strings.TrimSpace(m[1])
			break
		}
	}
	if ev.Title == "" {
		switch {
		case len(entities.EventTypes) > 0:
			ev.Title = entities.EventTypes[0].Text
			if len(entities.People) > 0 {
				if who := personLabel(entities.People[0]); who != "" {
					ev.Title += " with " + who
				}
			}
		case ev.Category == "relationship":
			ev.Title = "Date Night"
		case ev.Category == "appointment":
			switch {
			case strings.Contains(lower, "doctor"):
				ev.Title = "Doctor Appointment"
			case strings.Contains(lower, "dentist"):
				ev.Title = "Dentist Appointment"
			default:
				ev.Title = "Appointment"
			}
		default:
			ev.Title = "New Event"
		}
	}
	ev.Title = titleCase(ev.Title)

	if len(entities.People) > 0 {
		ev.Person = personLabel(entities.People[0])
	}

	start := now.AddDate(0, 0, 1) // default to tomorrow
	if len(entities.Dates) > 0 {
		start = entities.Dates[0].Date
	}
	if len(entities.Times) > 0 {
		t := entities.Times[0]
		start = time.Date(start.Year(), start.Month(), start.Day(), t.Hours, t.Minutes, 0, 0, start.Location())
	} else {
		defaultHour := 12
		switch ev.Category {
		case "appointment":
			defaultHour = 10
		case "relationship":
			defaultHour = 19
		}
		start = time.Date(start.Year(), start.Month(), start.Day(), defaultHour, 0, 0, 0, start.Location())
	}
	ev.StartDate = start

	duration := time.Hour
	if ev.Category == "relationship" {
		duration = 2 * time.Hour
	}
	ev.EndDate = start.Add(duration)

	if len(entities.Locations) > 0 {
		ev.Location = entities.Locations[0].Location
	} else if ev.Category == "relationship" && (strings.Contains(lower, "dinner") || strings.Contains(lower, "restaurant")) {
		ev.Location = "Restaurant"
	}

	ev.Description = "Added from chat: " + text

	if ev.Title == "" {
		return EventDetails{}, false
	}
	return ev, true
}

// ExtractRelationshipEventDetails specializes event extraction for couple
// events, normalizing the title to the detected relationship event type.
func ExtractRelationshipEventDetails(text string, fam *family.Data, now time.Time) (EventDetails, bool) {
	lower := strings.ToLower(text)

	eventType := "general"
	switch {
	case strings.Contains(lower, "date night"), strings.Contains(lower, "dinner date"),
		strings.Contains(lower, "restaurant") && strings.Contains(lower, "partner"):
		eventType = "date"
	case strings.Contains(lower, "check-in"), strings.Contains(lower, "checkin"),
		strings.Contains(lower, "talk") && strings.Contains(lower, "partner"):
		eventType = "check-in"
	case strings.Contains(lower, "relationship meeting"), strings.Contains(lower, "couple meeting"):
		eventType = "meeting"
	}

	ev, ok := ExtractEventDetails(text, fam, now)
	if !ok {
		return EventDetails{}, false
	}
	ev.Type = eventType

	titleLower := strings.ToLower(ev.Title)
	switch {
	case eventType == "date" && !strings.Contains(titleLower, "date"):
		switch {
		case strings.Contains(lower, "dinner"):
			ev.Title = "Dinner Date"
		case strings.Contains(lower, "movie"):
			ev.Title = "Movie Date"
		case strings.Contains(lower, "lunch"):
			ev.Title = "Lunch Date"
		default:
			ev.Title = "Date Night"
		}
	case eventType == "check-in" && !strings.Contains(titleLower, "check"):
		ev.Title = "Couple Check-in"
	case eventType == "meeting" && !strings.Contains(titleLower, "meeting"):
		ev.Title = "Relationship Meeting"
	}

	ev.Category = "relationship"
	return ev, true
}

// ChildTrackingDetails captures a child-tracking action mentioned in text.
type ChildTrackingDetails struct {
	Type            string    `json:"type"` // appointment, growth, homework, emotional, milestone
	Child           string    `json:"child,omitempty"`
	Date            time.Time `json:"date,omitempty"`
	AppointmentType string    `json:"appointmentType,omitempty"`
	Time            time.Time `json:"time,omitempty"`
	Location        string    `json:"location,omitempty"`
	Height          string    `json:"height,omitempty"`
	Weight          string    `json:"weight,omitempty"`
	Emotion         string    `json:"emotion,omitempty"`
	EmotionText     string    `json:"emotionText,omitempty"`
	Subject         string    `json:"subject,omitempty"`
	Milestone       string    `json:"milestone,omitempty"`
}

var (
	heightPattern    = regexp.MustCompile(`(?i)(\d+\.?\d*)\s*(?:cm|centimeters|centimetres|feet|foot|ft|inch|inches|in)\b`)
	weightPattern    = regexp.MustCompile(`(?i)(\d+\.?\d*)\s*(?:kg|kilograms|kilos|lbs|pounds|lb)\b`)
	milestonePattern = regexp.MustCompile(`(?i)\b(?:learned|started|began|achieved|accomplished|mastered|first time)\b\s+(?:to\s+)?([a-z\s]+)`)
)

var homeworkSubjectPatterns = []topicEntry{
	{"math", regexp.MustCompile(`(?i)\b(?:math|mathematics|algebra|geometry|calculus)\b`)},
	{"science", regexp.MustCompile(`(?i)\b(?:science|biology|chemistry|physics)\b`)},
	{"english", regexp.MustCompile(`(?i)\b(?:english|language arts|reading|writing|literature)\b`)},
	{"history", regexp.MustCompile(`(?i)\b(?:history|social studies|geography)\b`)},
	{"art", regexp.MustCompile(`(?i)\b(?:art|drawing|painting)\b`)},
	{"music", regexp.MustCompile(`(?i)\b(?:music|instrument|piano|guitar|violin)\b`)},
}

// ExtractChildTrackingDetails builds a child-tracking record from text.
// Returns ok=false when no tracking type could be determined.
func ExtractChildTrackingDetails(text string, fam *family.Data, now time.Time) (ChildTrackingDetails, bool) {
	lower := strings.ToLower(text)

	var trackingType string
	switch {
	case containsAny(lower, "appointment", "doctor", "dentist", "checkup"):
		trackingType = "appointment"
	case containsAny(lower, "growth", "height", "weight", "measure"):
		trackingType = "growth"
	case containsAny(lower, "homework", "assignment", "school work"):
		trackingType = "homework"
	case containsAny(lower, "emotion", "feeling", "mood", "happy", "sad"):
		trackingType = "emotional"
	case containsAny(lower, "milestone", "achievement", "development"):
		trackingType = "milestone"
	default:
		return ChildTrackingDetails{}, false
	}

	entities := ExtractEntities(text, fam, now)
	details := ChildTrackingDetails{Type: trackingType}

	for _, p := range entities.People {
		if p.Name == "" {
			continue
		}
		if p.Role == family.RoleChild || (fam != nil && fam.IsChildName(p.Name)) {
			details.Child = p.Name
			break
		}
	}
	if details.Child == "" && fam != nil {
		if only, ok := fam.SingleChild(); ok {
			details.Child = only.Name
		}
	}

	if len(entities.Dates) > 0 {
		details.Date = entities.Dates[0].Date
	}

	switch trackingType {
	case "appointment":
		switch {
		case containsAny(lower, "dentist", "teeth"):
			details.AppointmentType = "dental"
		case containsAny(lower, "eye", "vision", "optometrist"):
			details.AppointmentType = "vision"
		case containsAny(lower, "therapy", "counseling"):
			details.AppointmentType = "therapy"
		default:
			details.AppointmentType = "medical"
		}
		if len(entities.Times) > 0 {
			details.Time = entities.Times[0].Date
		}
		if len(entities.Locations) > 0 {
			details.Location = entities.Locations[0].Location
		}
	case "growth":
		if m := heightPattern.FindString(text); m != "" {
			details.Height = m
		}
		if m := weightPattern.FindString(text); m != "" {
			details.Weight = m
		}
	case "emotional":
		if len(entities.Emotions) > 0 {
			details.Emotion = entities.Emotions[0].Type
			details.EmotionText = entities.Emotions[0].Text
		}
	case "homework":
		for _, s := range homeworkSubjectPatterns {
			if s.pattern.MatchString(text) {
				details.Subject = s.name
				break
			}
		}
	case "milestone":
		if m := milestonePattern.FindStringSubmatch(text); m != nil {
			details.Milestone = strings.TrimSpace(m[1])
		}
	}

	return details, true
}

// TaskDetails captures a task action mentioned in text.
type TaskDetails struct {
	Action   string `json:"action"` // add, complete, reassign, query
	Title    string `json:"title,omitempty"`
	Assignee string `json:"assignee,omitempty"`
	Category string `json:"category,omitempty"`
	TaskID   string `json:"taskId,omitempty"`
}

var (
	taskAddTitlePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:add|create|make)\s+(?:a|an)\s+(?:new\s+)?(?:task|chore|assignment|to-do|todo)\s+(?:to|for)\s+(?:the list)?\s*(?::|\s+-)?\s*"?([^"]+?)(?:"|\.|$)`),
		regexp.MustCompile(`(?i)\b(?:add|create|make)\s+(?:a|an)\s+(?:new\s+)?(?:task|chore|assignment|to-do|todo)\s+(?:called|named|titled)\s+"?([^"]+?)(?:"|$)`),
		regexp.MustCompile(`(?i)\b(?:need|want)\s+(?:to|a)\s+(?:task|to-do|todo)\s+(?:for|to)\s+([^:]+?)(?:\s+(?:assign|give)|\s+to|\.|$)`),
	}
	taskIDPattern          = regexp.MustCompile(`(?i)\b(?:task|chore|to-do|todo)\s+(?:#|number|no\.?|id)?\s*(\d+)\b`)
	quotedTitlePattern     = regexp.MustCompile(`"([^"]+?)"`)
	taskMentionPattern     = regexp.MustCompile(`(?i)(?:the|this|that)\s+([^,.]+?)\s+(?:task|chore|to-do|todo)\b`)
	assigneeMamaPattern    = regexp.MustCompile(`(?i)\b(?:assign|give)\s+(?:to|it to)?\s+(?:mama|mom|mother|mommy)\b`)
	assigneePapaPattern    = regexp.MustCompile(`(?i)\b(?:assign|give)\s+(?:to|it to)?\s+(?:papa|dad|daddy|father)\b`)
	taskCategoryPatterns   = []topicEntry{
		{"Visible Household Tasks", regexp.MustCompile(`(?i)\b(?:clean|wash|fold|cook|meal|dinner|laundry|dishes|vacuum|dust|mop|sweep|grocery|shopping)\b`)},
		{"Invisible Household Tasks", regexp.MustCompile(`(?i)\b(?:plan|schedule|organize|arrange|manage|coordinate|research|decide|remember)\b`)},
		{"Visible Parental Tasks", regexp.MustCompile(`(?i)\b(?:kid|child|children|bedtime|school|homework|bath|feeding|diaper|pick up|drop off|daycare)\b`)},
		{"Invisible Parental Tasks", regexp.MustCompile(`(?i)\b(?:emotional|support|think|worry|concern|prepare|check|verify|ensure)\b`)},
	}
)

// ExtractTaskDetails builds a task action record from text. Returns
// ok=false when no task action could be determined.
func ExtractTaskDetails(text string, fam *family.Data, now time.Time) (TaskDetails, bool) {
	lower := strings.ToLower(text)
	hasTask := strings.Contains(lower, "task") || strings.Contains(lower, "chore") ||
		strings.Contains(lower, "todo") || strings.Contains(lower, "to-do")

	var action string
	switch {
	case hasTask && containsAny(lower, "add ", "create ", "assign "):
		action = "add"
	case hasTask && containsAny(lower, "complete", "finished", "done with"):
		action = "complete"
	case hasTask && containsAny(lower, "reassign", "change who"):
		action = "reassign"
	case hasTask && containsAny(lower, "what", "list", "show me"):
		action = "query"
	default:
		return TaskDetails{}, false
	}

	details := TaskDetails{Action: action}

	if action == "add" {
		for _, p := range taskAddTitlePatterns {
			if m := p.FindStringSubmatch(text); m != nil && m[1] != "" {
				details.Title = strings.TrimSpace(m[1])
				break
			}
		}
	} else {
		if m := taskIDPattern.FindStringSubmatch(text); m != nil {
			details.TaskID = m[1]
		}
		if m := quotedTitlePattern.FindStringSubmatch(text); m != nil {
			details.Title = m[1]
		}
		if details.Title == "" && details.TaskID == "" {
			if m := taskMentionPattern.FindStringSubmatch(text); m != nil {
				details.Title = strings.TrimSpace(m[1])
			}
		}
		// match against known tasks by title mention
		if fam != nil && (details.Title == "" || details.TaskID == "") {
			for _, task := range fam.Tasks {
				if task.Title != "" && strings.Contains(lower, strings.ToLower(task.Title)) {
					details.TaskID = task.ID
					details.Title = task.Title
					break
				}
			}
		}
	}

	people := ExtractPeople(text, fam)
	switch {
	case len(people) > 0 && personLabel(people[0]) != "":
		details.Assignee = personLabel(people[0])
	case assigneeMamaPattern.MatchString(text):
		details.Assignee = family.RoleTypeMama
	case assigneePapaPattern.MatchString(text):
		details.Assignee = family.RoleTypePapa
	}

	if details.Title != "" {
		for _, c := range taskCategoryPatterns {
			if c.pattern.MatchString(details.Title) {
				details.Category = c.name
				break
			}
		}
	}

	return details, true
}

// SurveyQuestion captures what part of the survey data a question targets.
type SurveyQuestion struct {
	Type     string `json:"type"` // overall, category, comparison, task
	Category string `json:"category,omitempty"`
	Task     string `json:"task,omitempty"`
}

var surveyCategoryPatterns = []topicEntry{
	{"Visible Household Tasks", regexp.MustCompile(`(?i)\b(?:visible\s+household|household\s+visible)\b`)},
	{"Invisible Household Tasks", regexp.MustCompile(`(?i)\b(?:invisible\s+household|household\s+invisible|mental\s+load)\b`)},
	{"Visible Parental Tasks", regexp.MustCompile(`(?i)\b(?:visible\s+parental|parental\s+visible|visible\s+childcare|childcare\s+visible)\b`)},
	{"Invisible Parental Tasks", regexp.MustCompile(`(?i)\b(?:invisible\s+parental|parental\s+invisible|emotional\s+labor)\b`)},
}

var surveyTaskKeywords = []string{
	"cooking", "cleaning", "laundry", "shopping", "groceries",
	"dishes", "vacuuming", "dusting", "bathroom", "kitchen",
	"meal planning", "scheduling", "appointments", "childcare",
	"bedtime", "homework", "school", "activities", "doctor",
	"emotional support", "mental load", "planning", "organizing",
}

var surveyTaskPattern = regexp.MustCompile(`(?i)\b(?:about|for|regarding|who\s+does|who\s+handles)\s+(?:the\s+)?([a-z\s]+?)(?:\?|\.|$)`)

// ExtractSurveyQuestion classifies a survey question and pulls out the
// category or task it asks about.
func ExtractSurveyQuestion(text string) SurveyQuestion {
	lower := strings.ToLower(text)

	q := SurveyQuestion{Type: "overall"}
	switch {
	case containsAny(lower, "category", "visible", "invisible", "household", "parental"):
		q.Type = "category"
	case containsAny(lower, "compare", "comparison", "difference between", "versus", "vs"):
		q.Type = "comparison"
	case containsAny(lower, "task", "chore", "responsibility", "who does", "who handles"):
		q.Type = "task"
	}

	if q.Type == "category" {
		for _, c := range surveyCategoryPatterns {
			if c.pattern.MatchString(text) {
				q.Category = c.name
				break
			}
		}
		if q.Category == "" {
			switch {
			case strings.Contains(lower, "household"):
				if strings.Contains(lower, "invisible") {
					q.Category = "Invisible Household Tasks"
				} else {
					q.Category = "Visible Household Tasks"
				}
			case containsAny(lower, "parental", "child", "kid"):
				if containsAny(lower, "invisible", "emotional") {
					q.Category = "Invisible Parental Tasks"
				} else {
					q.Category = "Visible Parental Tasks"
				}
			}
		}
	}

	if q.Type == "task" {
		for _, kw := range surveyTaskKeywords {
			if strings.Contains(lower, kw) {
				q.Task = kw
				break
			}
		}
		if q.Task == "" {
			if m := surveyTaskPattern.FindStringSubmatch(text); m != nil {
				q.Task = strings.TrimSpace(m[1])
			}
		}
	}

	return q
}

// --- helpers ---

func personLabel(p Person) string {
	if p.Name != "" {
		return p.Name
	}
	return p.Role
}

func containsAny(lower string, subs ...string) bool {
	for _, s := range subs {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
