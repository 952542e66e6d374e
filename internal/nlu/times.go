package nlu

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimeMatch is one resolved time-of-day reference found in text.
type TimeMatch struct {
	Kind      string    `json:"kind"` // standard, military, descriptive
	Hours     int       `json:"hours"`
	Minutes   int       `json:"minutes"`
	Period    string    `json:"period,omitempty"`    // am, pm
	TimeOfDay string    `json:"timeOfDay,omitempty"` // morning, afternoon, ...
	Date      time.Time `json:"date"`
	Text      string    `json:"text"`
}

var (
	standardTimePattern = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
	militaryTimePattern = regexp.MustCompile(`\b(\d{1,2})[:.](\d{2})\b`)
)

type descriptiveTimePattern struct {
	timeOfDay string
	hours     int
	pattern   *regexp.Regexp
}

var descriptiveTimePatterns = []descriptiveTimePattern{
	{"morning", 9, regexp.MustCompile(`(?i)\b(?:in the )?morning\b`)},
	{"afternoon", 14, regexp.MustCompile(`(?i)\b(?:in the )?afternoon\b`)},
	{"evening", 19, regexp.MustCompile(`(?i)\b(?:in the )?evening\b`)},
	{"night", 21, regexp.MustCompile(`(?i)\b(?:at )?night\b`)},
	{"noon", 12, regexp.MustCompile(`(?i)\bnoon\b`)},
	{"midnight", 0, regexp.MustCompile(`(?i)\bmidnight\b`)},
}

// ExtractTimes finds 12-hour, 24-hour, and descriptive time references and
// resolves each to a clock time on now's date.
func ExtractTimes(text string, now time.Time) []TimeMatch {
	var times []TimeMatch

	if m := standardTimePattern.FindStringSubmatch(text); m != nil {
		hours, _ := strconv.Atoi(m[1])
		minutes := 0
		if m[2] != "" {
			minutes, _ = strconv.Atoi(m[2])
		}
		period := strings.ToLower(m[3])

		switch {
		case period == "pm" && hours < 12:
			hours += 12
		case period == "am" && hours == 12:
			hours = 0
		case period == "" && hours >= 1 && hours <= 7:
			// bare 1-7 usually means afternoon/evening
			hours += 12
		}

		if period == "" {
			if hours >= 12 {
				period = "pm"
			} else {
				period = "am"
			}
		}

		if hours >= 0 && hours <= 23 && minutes >= 0 && minutes <= 59 {
			times = append(times, TimeMatch{
				Kind:    "standard",
				Hours:   hours,
				Minutes: minutes,
				Period:  period,
				Date:    atClock(now, hours, minutes),
				Text:    m[0],
			})
		}
	}

	if m := militaryTimePattern.FindStringSubmatch(text); m != nil {
		hours, _ := strconv.Atoi(m[1])
		minutes, _ := strconv.Atoi(m[2])
		if hours >= 0 && hours <= 23 && minutes >= 0 && minutes <= 59 {
			times = append(times, TimeMatch{
				Kind:    "military",
				Hours:   hours,
				Minutes: minutes,
				Date:    atClock(now, hours, minutes),
				Text:    m[0],
			})
		}
	}

	for _, d := range descriptiveTimePatterns {
		matched := d.pattern.FindString(text)
		if matched == "" {
			continue
		}
		times = append(times, TimeMatch{
			Kind:      "descriptive",
			Hours:     d.hours,
			TimeOfDay: d.timeOfDay,
			Date:      atClock(now, d.hours, 0),
			Text:      matched,
		})
	}

	return times
}

func atClock(now time.Time, hours, minutes int) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), hours, minutes, 0, 0, now.Location())
}
