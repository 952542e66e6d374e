package nlu

import "regexp"

type topicEntry struct {
	name    string
	pattern *regexp.Regexp
}

// Broad categories used for context tracking and focus-area suggestions.
var topicCategoryPatterns = []topicEntry{
	{"calendar", regexp.MustCompile(`(?i)\b(?:calendar|schedule|appointment|meeting|event|remind|plan|date|time)\b`)},
	{"tasks", regexp.MustCompile(`(?i)\b(?:task|chore|responsibility|work|workload|balance|division|share|assignment)\b`)},
	{"relationship", regexp.MustCompile(`(?i)\b(?:relationship|marriage|partner|spouse|husband|wife|couple|together|connection|date night)\b`)},
	{"children", regexp.MustCompile(`(?i)\b(?:child|kid|son|daughter|parent|parenting|family|school|homework|growth|development)\b`)},
	{"survey", regexp.MustCompile(`(?i)\b(?:survey|questionnaire|result|data|analysis|insight|distribution|percentage|statistics)\b`)},
	{"emotional", regexp.MustCompile(`(?i)\b(?:feel|feeling|stress|overwhelm|burnout|tired|exhausted|support|help)\b`)},
	{"technical", regexp.MustCompile(`(?i)\b(?:app|feature|function|button|screen|access|error|problem|issue|bug|fix)\b`)},
}

// Specific named topics used for engagement tracking.
var specificTopicPatterns = []topicEntry{
	{"meal planning", regexp.MustCompile(`(?i)\b(?:meal|dinner|lunch|breakfast|cook|cooking|recipe|food|grocery|shopping)\b`)},
	{"cleaning", regexp.MustCompile(`(?i)\b(?:clean|cleaning|vacuum|dust|mop|sweep|tidy|bathroom|kitchen|house)\b`)},
	{"childcare", regexp.MustCompile(`(?i)\b(?:child|kid|baby|toddler|care|watch|watching|babysit|look after)\b`)},
	{"school", regexp.MustCompile(`(?i)\b(?:school|homework|assignment|project|teacher|class|grade|study|learning|education)\b`)},
	{"scheduling", regexp.MustCompile(`(?i)\b(?:schedule|calendar|appointment|meeting|time|date|plan|planning|organize|coordination)\b`)},
	{"medical", regexp.MustCompile(`(?i)\b(?:doctor|dentist|appointment|checkup|health|medical|medicine|prescription|sick|illness)\b`)},
	{"emotional support", regexp.MustCompile(`(?i)\b(?:emotional|support|feel|feeling|stress|anxiety|worry|concern|listen|talk)\b`)},
	{"finances", regexp.MustCompile(`(?i)\b(?:money|bill|payment|budget|financial|expense|cost|pay|saving|spending)\b`)},
	{"transportation", regexp.MustCompile(`(?i)\b(?:drive|driving|car|pickup|dropoff|school|activity|practice|game|bus)\b`)},
	{"social activities", regexp.MustCompile(`(?i)\b(?:friend|playdate|birthday|party|social|gathering|activity|event)\b`)},
	{"relationship", regexp.MustCompile(`(?i)\b(?:relationship|marriage|partner|spouse|husband|wife|love|connection|communication)\b`)},
	{"mental load", regexp.MustCompile(`(?i)\b(?:mental load|cognitive|remember|thinking|planning|organizing|managing|coordination)\b`)},
	{"self-care", regexp.MustCompile(`(?i)\b(?:self-care|break|rest|relax|time off|me time|hobby|interest|activity)\b`)},
}

// DetectTopicCategories returns the broad topic categories mentioned
// in the text, in table order.
func DetectTopicCategories(text string) []string {
	if text == "" {
		return nil
	}
	var categories []string
	for _, t := range topicCategoryPatterns {
		if t.pattern.MatchString(text) {
			categories = append(categories, t.name)
		}
	}
	return categories
}

// ExtractTopics returns the specific named topics mentioned in the text.
func ExtractTopics(text string) []string {
	if text == "" {
		return nil
	}
	var topics []string
	for _, t := range specificTopicPatterns {
		if t.pattern.MatchString(text) {
			topics = append(topics, t.name)
		}
	}
	return topics
}
