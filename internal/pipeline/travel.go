package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"gem-finder/internal/gems"
)

var countries = map[string]struct{}{
	"usa": {}, "us": {}, "united states": {}, "united states of america": {},
	"uk": {}, "united kingdom": {}, "england": {}, "scotland": {}, "wales": {},
	"ireland": {}, "canada": {}, "mexico": {}, "brazil": {}, "argentina": {},
	"chile": {}, "peru": {}, "germany": {}, "deutschland": {}, "france": {},
	"italy": {}, "italia": {}, "spain": {}, "españa": {}, "portugal": {},
	"netherlands": {}, "belgium": {}, "switzerland": {}, "austria": {},
	"österreich": {}, "norway": {}, "sweden": {}, "denmark": {}, "finland": {},
	"iceland": {}, "poland": {}, "czechia": {}, "czech republic": {},
	"greece": {}, "croatia": {}, "turkey": {}, "türkiye": {}, "india": {},
	"japan": {}, "china": {}, "south korea": {}, "thailand": {}, "vietnam": {},
	"indonesia": {}, "philippines": {}, "australia": {}, "new zealand": {},
	"south africa": {}, "morocco": {}, "egypt": {}, "kenya": {},
}

var streetSuffixes = map[string]struct{}{
	"rd": {}, "road": {}, "st": {}, "street": {}, "ave": {}, "avenue": {},
	"ln": {}, "lane": {}, "dr": {}, "drive": {}, "way": {}, "blvd": {},
	"boulevard": {}, "hwy": {}, "highway": {}, "pkwy": {}, "parkway": {},
	"trail": {}, "trl": {}, "ct": {}, "court": {}, "pl": {}, "place": {},
	"straße": {}, "strasse": {}, "weg": {},
}

// CityFromAddress picks the city out of a comma separated address. It
// skips the country, postal codes, state codes and street lines, and never
// returns the place name itself. An empty string means no city was found.
func CityFromAddress(address, placeName string) string {
	address = strings.TrimSpace(address)
	if address == "" || address == gems.DefaultAddress {
		return ""
	}

	segments := strings.Split(address, ",")
	for i := len(segments) - 1; i >= 0; i-- {
		seg := strings.TrimSpace(segments[i])
		if seg == "" {
			continue
		}
		if _, ok := countries[strings.ToLower(seg)]; ok {
			continue
		}
		if i == len(segments)-1 && len(segments) >= 3 && !hasDigit(seg) {
			// trailing segment of a full address is the country
			continue
		}
		if isStreet(seg) {
			continue
		}
		city := stripCodes(seg)
		if city == "" || samePlace(city, placeName) {
			continue
		}
		return city
	}
	return ""
}

func hasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func isStreet(seg string) bool {
	fields := strings.Fields(strings.ToLower(seg))
	if len(fields) < 2 {
		return false
	}
	_, ok := streetSuffixes[strings.Trim(fields[len(fields)-1], ".")]
	return ok
}

// stripCodes drops postal codes and two or three letter state codes.
func stripCodes(seg string) string {
	kept := make([]string, 0, 2)
	for _, f := range strings.Fields(seg) {
		if hasDigit(f) || isStateCode(f) {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

func isStateCode(f string) bool {
	if len(f) < 2 || len(f) > 3 {
		return false
	}
	for _, r := range f {
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

func samePlace(city, placeName string) bool {
	if placeName == "" {
		return false
	}
	c := strings.ToLower(city)
	p := strings.ToLower(strings.TrimSpace(placeName))
	return c == p || (strings.Contains(p, c) && len(c) > len(p)/2)
}

var (
	isoDatePattern   = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	relativePattern  = regexp.MustCompile(`\bin\s+(\d+|a|an|one|two|three|four|five|six|seven|eight|nine|ten)\s+(day|days|week|weeks|month|months)\b`)
	weekdayPattern   = regexp.MustCompile(`\b(next\s+|this\s+)?(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	monthPattern     = regexp.MustCompile(`\b(january|february|march|april|may|june|july|august|september|october|november|december)(?:\s+(\d{1,2})(?:st|nd|rd|th)?\b)?`)
	dayMonthPattern  = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(january|february|march|april|may|june|july|august|september|october|november|december)\b`)
	dayAfterTomorrow = regexp.MustCompile(`\bday after tomorrow\b`)
	// "may" alone is usually the verb
	monthMayContext  = regexp.MustCompile(`\b(in|during|this|next|early|late|mid|of)\s+may\b`)
)

var numberWords = map[string]int{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
}

var months = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

// InferTravelDate finds the planned travel date in the user's messages,
// newest first. It reports false and returns today when none is mentioned.
func InferTravelDate(messages []string, now time.Time) (time.Time, bool) {
	today := truncateDay(now)
	for i := len(messages) - 1; i >= 0; i-- {
		if d, ok := parseTravelDate(strings.ToLower(messages[i]), today); ok {
			if d.Before(today) {
				d = today
			}
			return d, true
		}
	}
	return today, false
}

func parseTravelDate(msg string, today time.Time) (time.Time, bool) {
	if m := isoDatePattern.FindStringSubmatch(msg); m != nil {
		if d, err := time.ParseInLocation("2006-01-02", m[0], today.Location()); err == nil {
			return d, true
		}
	}
	if dayAfterTomorrow.MatchString(msg) {
		return today.AddDate(0, 0, 2), true
	}
	if strings.Contains(msg, "tomorrow") {
		return today.AddDate(0, 0, 1), true
	}
	if strings.Contains(msg, "today") || strings.Contains(msg, "tonight") {
		return today, true
	}
	if m := relativePattern.FindStringSubmatch(msg); m != nil {
		n, ok := numberWords[m[1]]
		if !ok {
			n, _ = strconv.Atoi(m[1])
		}
		switch {
		case strings.HasPrefix(m[2], "day"):
			return today.AddDate(0, 0, n), true
		case strings.HasPrefix(m[2], "week"):
			return today.AddDate(0, 0, 7*n), true
		default:
			return today.AddDate(0, n, 0), true
		}
	}
	if strings.Contains(msg, "next week") {
		return today.AddDate(0, 0, 7), true
	}
	if strings.Contains(msg, "next month") {
		return today.AddDate(0, 1, 0), true
	}
	if strings.Contains(msg, "weekend") {
		return nextWeekday(today, time.Saturday, false), true
	}
	if m := weekdayPattern.FindStringSubmatch(msg); m != nil {
		return nextWeekday(today, weekdays[m[2]], strings.HasPrefix(m[1], "next")), true
	}
	if m := dayMonthPattern.FindStringSubmatch(msg); m != nil {
		day, _ := strconv.Atoi(m[1])
		return monthDate(today, months[m[2]], day), true
	}
	if m := monthPattern.FindStringSubmatch(msg); m != nil && (m[1] != "may" || m[2] != "" || monthMayContext.MatchString(msg)) {
		day := 0
		if m[2] != "" {
			day, _ = strconv.Atoi(m[2])
		}
		return monthDate(today, months[m[1]], day), true
	}
	return time.Time{}, false
}

// nextWeekday returns the next occurrence of wd, today included unless
// skipToday is set.
func nextWeekday(today time.Time, wd time.Weekday, skipToday bool) time.Time {
	ahead := (int(wd) - int(today.Weekday()) + 7) % 7
	if ahead == 0 && skipToday {
		ahead = 7
	}
	return today.AddDate(0, 0, ahead)
}

// monthDate resolves a month, and optional day, to the next such date. A
// bare month means its first day, or today when it is the current month.
func monthDate(today time.Time, month time.Month, day int) time.Time {
	if day <= 0 {
		if month == today.Month() {
			return today
		}
		day = 1
	}
	d := time.Date(today.Year(), month, day, 0, 0, 0, 0, today.Location())
	if d.Before(today) {
		d = d.AddDate(1, 0, 0)
	}
	return d
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// daysUntil counts whole calendar days from today to d.
func daysUntil(today, d time.Time) int {
	y1, m1, d1 := today.Date()
	y2, m2, d2 := d.Date()
	from := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	to := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// SeasonalInstruction replaces the forecast when none can be used.
func SeasonalInstruction(d time.Time, city string) string {
	if city == "" {
		city = "the area"
	}
	return fmt.Sprintf("Use general seasonal knowledge for %s in %s", d.Month(), city)
}
