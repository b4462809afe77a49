package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// IST is India Standard Time. A fixed zone keeps parsing and rendering independent of
// the host's tzdata.
var IST = time.FixedZone("IST", 5*60*60+30*60)

// DisplayDateLayout renders dates as "23 Dec 2025"
const DisplayDateLayout = "02 Jan 2006"

// partialDateRegex matches "DD-Mon" with an optional 24-hour "HH:mm"
var partialDateRegex = regexp.MustCompile(`^\s*(\d{1,2})-([A-Za-z]{3})(?:\s+(\d{1,2}):(\d{2}))?\s*$`)

var monthAbbreviations = map[string]time.Month{
	"jan": time.January,
	"feb": time.February,
	"mar": time.March,
	"apr": time.April,
	"may": time.May,
	"jun": time.June,
	"jul": time.July,
	"aug": time.August,
	"sep": time.September,
	"oct": time.October,
	"nov": time.November,
	"dec": time.December,
}

// DateNormalizer resolves the upstream's year-less dates to absolute instants
type DateNormalizer struct {
	location *time.Location
}

// NewDateNormalizer creates a normalizer working in India Standard Time
func NewDateNormalizer() *DateNormalizer {
	return &DateNormalizer{location: IST}
}

// Parse resolves "DD-Mon" or "DD-Mon HH:mm" against the calendar year of ref.
// It returns nil for nil input, any other shape, and impossible dates or times.
//
// The year always comes from ref: a December date read in January resolves to the
// new year's December.
func (d *DateNormalizer) Parse(raw *string, ref time.Time) *time.Time {
	if raw == nil {
		return nil
	}

	match := partialDateRegex.FindStringSubmatch(*raw)
	if match == nil {
		return nil
	}

	day, err := strconv.Atoi(match[1])
	if err != nil {
		return nil
	}
	month, ok := monthAbbreviations[strings.ToLower(match[2])]
	if !ok {
		return nil
	}

	hour, minute := 0, 0
	if match[3] != "" {
		hour, _ = strconv.Atoi(match[3])
		minute, _ = strconv.Atoi(match[4])
		if hour > 23 || minute > 59 {
			return nil
		}
	}

	year := ref.In(d.location).Year()
	resolved := time.Date(year, month, day, hour, minute, 0, 0, d.location)

	// time.Date normalizes overflow, so 31-Feb would silently become early March
	if resolved.Day() != day || resolved.Month() != month {
		return nil
	}
	return &resolved
}

// ParseString is Parse for fields that are never null
func (d *DateNormalizer) ParseString(raw string, ref time.Time) *time.Time {
	return d.Parse(&raw, ref)
}

// Format renders t as "DD Mon YYYY" in India Standard Time, or "-" for nil
func (d *DateNormalizer) Format(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.In(d.location).Format(DisplayDateLayout)
}
