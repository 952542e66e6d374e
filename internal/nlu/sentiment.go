package nlu

import "regexp"

// Sentiment is the outcome of sentiment analysis. Score is normalized to
// [0,1] where 0 is very negative, 0.5 neutral, and 1 very positive.
type Sentiment struct {
	Type    string             `json:"type"` // positive, negative, neutral
	Score   float64            `json:"score"`
	Details map[string]float64 `json:"details,omitempty"`
}

var sentimentPatterns = map[string][]*regexp.Regexp{
	"positive": {
		regexp.MustCompile(`(?i)\b(?:like|love|enjoy|happy|glad|pleased|thrilled|delighted|grateful|thankful)\b`),
		regexp.MustCompile(`(?i)\b(?:great|excellent|amazing|wonderful|fantastic|awesome|good|helpful|useful)\b`),
		regexp.MustCompile(`(?i)\b(?:appreciate|thank you|thanks|well done|impressed)\b`),
	},
	"negative": {
		regexp.MustCompile(`(?i)\b(?:hate|dislike|upset|angry|mad|annoyed|frustrated|disappointed)\b`),
		regexp.MustCompile(`(?i)\b(?:terrible|awful|horrible|bad|poor|useless|unhelpful|confusing)\b`),
		regexp.MustCompile(`(?i)\b(?:waste|problem|issue|complaint|doesn't work|not good)\b`),
	},
	"neutral": {
		regexp.MustCompile(`(?i)\b(?:okay|fine|alright|neutral|acceptable|average|mediocre)\b`),
		regexp.MustCompile(`(?i)\b(?:so-so|middling|neither good nor bad)\b`),
	},
}

// DetectSentiment scores each class by the fraction of its patterns that
// match; the dominant class wins, neutral on ties.
func DetectSentiment(text string) Sentiment {
	if text == "" {
		return Sentiment{Type: "neutral", Score: 0.5}
	}

	scores := map[string]float64{}
	for class, patterns := range sentimentPatterns {
		matches := 0
		for _, p := range patterns {
			if p.MatchString(text) {
				matches++
			}
		}
		scores[class] = float64(matches) / float64(len(patterns))
	}

	dominant := "neutral"
	highest := scores["neutral"]
	if scores["positive"] > highest {
		dominant = "positive"
		highest = scores["positive"]
	}
	if scores["negative"] > highest {
		dominant = "negative"
	}

	score := 0.5 + (scores["positive"]-scores["negative"])/2
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	return Sentiment{Type: dominant, Score: score, Details: scores}
}
