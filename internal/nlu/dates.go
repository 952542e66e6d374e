package nlu

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateMatch is one resolved date reference found in text.
type DateMatch struct {
	Kind   string    `json:"kind"` // relative, dayOfWeek, formatted
	Value  string    `json:"value,omitempty"`
	Format string    `json:"format,omitempty"` // us, eu, iso, natural
	Date   time.Time `json:"date"`
	Text   string    `json:"text"`
}

type relativeDatePattern struct {
	value   string
	pattern *regexp.Regexp
}

var relativeDatePatterns = []relativeDatePattern{
	{"today", regexp.MustCompile(`(?i)\b(?:today|this day)\b`)},
	{"tomorrow", regexp.MustCompile(`(?i)\b(?:tomorrow|next day|day after today)\b`)},
	{"dayAfter", regexp.MustCompile(`(?i)\b(?:day after tomorrow|in two days)\b`)},
	{"nextWeek", regexp.MustCompile(`(?i)\b(?:next week|in a week|week from (?:now|today))\b`)},
	{"weekend", regexp.MustCompile(`(?i)\b(?:this weekend|coming weekend|on the weekend)\b`)},
	{"nextMonth", regexp.MustCompile(`(?i)\b(?:next month|in a month|month from (?:now|today))\b`)},
}

type weekdayPattern struct {
	day     time.Weekday
	name    string
	pattern *regexp.Regexp
}

var weekdayPatterns = []weekdayPattern{
	{time.Monday, "monday", regexp.MustCompile(`(?i)\b(?:on |next |this |coming )?(?:mon(?:day)?)\b`)},
	{time.Tuesday, "tuesday", regexp.MustCompile(`(?i)\b(?:on |next |this |coming )?(?:tue(?:s(?:day)?)?)\b`)},
	{time.Wednesday, "wednesday", regexp.MustCompile(`(?i)\b(?:on |next |this |coming )?(?:wed(?:nesday)?)\b`)},
	{time.Thursday, "thursday", regexp.MustCompile(`(?i)\b(?:on |next |this |coming )?(?:thu(?:rs(?:day)?)?)\b`)},
	{time.Friday, "friday", regexp.MustCompile(`(?i)\b(?:on |next |this |coming )?(?:fri(?:day)?)\b`)},
	{time.Saturday, "saturday", regexp.MustCompile(`(?i)\b(?:on |next |this |coming )?(?:sat(?:urday)?)\b`)},
	{time.Sunday, "sunday", regexp.MustCompile(`(?i)\b(?:on |next |this |coming )?(?:sun(?:day)?)\b`)},
}

type formattedDatePattern struct {
	format  string
	pattern *regexp.Regexp
}

var formattedDatePatterns = []formattedDatePattern{
	{"us", regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`)},
	{"eu", regexp.MustCompile(`\b(\d{1,2})[.-](\d{1,2})(?:[.-](\d{2,4}))?\b`)},
	{"iso", regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)},
	{"natural", regexp.MustCompile(`(?i)\b(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:tember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s+(\d{4}))?\b`)},
}

// pastIndicators signals that a date in the past was mentioned on purpose,
// suppressing the auto-advance to next year.
var pastIndicators = regexp.MustCompile(`(?i)\b(?:was|were|happened|occurred|past|previous|last)\b`)

var monthPrefixes = []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}

// ExtractDates finds relative terms, weekday names, and absolute date
// formats in the text and resolves each to an instant anchored at now.
func ExtractDates(text string, now time.Time) []DateMatch {
	var dates []DateMatch

	for _, rel := range relativeDatePatterns {
		loc := rel.pattern.FindString(text)
		if loc == "" {
			continue
		}
		date := now
		switch rel.value {
		case "today":
			// stays as now
		case "tomorrow":
			date = date.AddDate(0, 0, 1)
		case "dayAfter":
			date = date.AddDate(0, 0, 2)
		case "nextWeek":
			date = date.AddDate(0, 0, 7)
		case "weekend":
			// next Saturday, or today when already Saturday
			date = date.AddDate(0, 0, (int(time.Saturday)-int(date.Weekday())+7)%7)
		case "nextMonth":
			date = date.AddDate(0, 1, 0)
		}
		dates = append(dates, DateMatch{Kind: "relative", Value: rel.value, Date: date, Text: loc})
	}

	for _, wd := range weekdayPatterns {
		matched := wd.pattern.FindString(text)
		if matched == "" {
			continue
		}
		daysUntil := (int(wd.day) - int(now.Weekday()) + 7) % 7
		lower := strings.ToLower(matched)
		if strings.Contains(lower, "next") {
			if daysUntil == 0 {
				daysUntil = 7
			}
		} else if daysUntil == 0 {
			// a bare weekday name equal to today means next week unless
			// qualified with "this" or "today"
			if !strings.Contains(lower, "this") && !strings.Contains(lower, "today") {
				daysUntil = 7
			}
		}
		dates = append(dates, DateMatch{
			Kind:  "dayOfWeek",
			Value: wd.name,
			Date:  now.AddDate(0, 0, daysUntil),
			Text:  matched,
		})
	}

	for _, fd := range formattedDatePatterns {
		m := fd.pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		var year, month, day int
		switch fd.format {
		case "us":
			month, _ = strconv.Atoi(m[1])
			day, _ = strconv.Atoi(m[2])
			year = pickYear(m[3], now)
		case "eu":
			day, _ = strconv.Atoi(m[1])
			month, _ = strconv.Atoi(m[2])
			year = pickYear(m[3], now)
		case "iso":
			year, _ = strconv.Atoi(m[1])
			month, _ = strconv.Atoi(m[2])
			day, _ = strconv.Atoi(m[3])
		case "natural":
			month = monthFromName(m[1])
			day, _ = strconv.Atoi(m[2])
			year = pickYear(m[3], now)
		}
		if month < 1 || month > 12 || day < 1 || day > 31 {
			continue
		}

		date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
		// a past date within the current year refers to the next occurrence
		// unless the text contains a past-tense indicator
		if date.Before(now) && date.Year() == now.Year() && !pastIndicators.MatchString(text) {
			date = date.AddDate(1, 0, 0)
		}

		dates = append(dates, DateMatch{Kind: "formatted", Format: fd.format, Date: date, Text: m[0]})
	}

	return dates
}

func pickYear(s string, now time.Time) int {
	if s == "" {
		return now.Year()
	}
	y, err := strconv.Atoi(s)
	if err != nil {
		return now.Year()
	}
	if y < 100 {
		y += 2000
	}
	return y
}

func monthFromName(name string) int {
	name = strings.ToLower(name)
	for i, prefix := range monthPrefixes {
		if strings.HasPrefix(name, prefix) {
			return i + 1
		}
	}
	return 0
}
