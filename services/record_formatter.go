package services

import (
	"math"
	"regexp"
	"strconv"
	"time"

	"github.com/fenilmodi00/gmp-tracker/models"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const (
	rupeeSymbol    = "₹"
	issueSizeUnit  = " Cr"
	emptyDisplay   = "-"
	subscriptionOf = "x"
)

var (
	subscriptionRegex = regexp.MustCompile(`(?i)\(\s*Sub\s*:\s*(\d+(?:\.\d+)?)\s*x\s*\)`)
	titleStatusRegex  = regexp.MustCompile(`\s+(Open|Close)\b`)

	// en-IN groups lakhs and crores
	rupeePrinter = message.NewPrinter(language.MustParse("en-IN"))
)

// Subscription tiers, by how many times the issue was subscribed
const (
	SubscriptionTierNone            = ""
	SubscriptionTierHot             = "hot"
	SubscriptionTierStrong          = "strong"
	SubscriptionTierSubscribed      = "subscribed"
	SubscriptionTierUndersubscribed = "undersubscribed"
)

// RecordFormatter turns raw offering fields into display strings
type RecordFormatter struct {
	utility *UtilityService
	dates   *DateNormalizer
}

// NewRecordFormatter creates a formatter over the shared utility and date helpers
func NewRecordFormatter(utility *UtilityService, dates *DateNormalizer) *RecordFormatter {
	return &RecordFormatter{
		utility: utility,
		dates:   dates,
	}
}

// FormatCurrency renders a decorated amount as whole rupees with Indian digit grouping,
// e.g. "₹1,23,456.7" becomes "₹1,23,457". Placeholders and unparsable input render as "-".
func (f *RecordFormatter) FormatCurrency(raw string) string {
	if f.utility.IsPlaceholder(raw) {
		return emptyDisplay
	}

	value, ok := f.utility.ParseLeadingNumber(raw)
	if !ok {
		return emptyDisplay
	}
	return FormatRupees(value)
}

// FormatSize renders an issue size such as "1,234.56 Cr" as "₹1,235 Cr". When no number
// is present the decoded text is returned as is.
func (f *RecordFormatter) FormatSize(raw string) string {
	if f.utility.IsPlaceholder(raw) {
		return emptyDisplay
	}

	decoded := f.utility.DecodeEntities(raw)
	value, ok := f.utility.ExtractNumericToken(decoded)
	if !ok {
		return decoded
	}
	return FormatRupees(value) + issueSizeUnit
}

// DecodeEntities converts HTML entity sequences to plain text
func (f *RecordFormatter) DecodeEntities(raw string) string {
	return f.utility.DecodeEntities(raw)
}

// DecomposeTitle splits a decorated title like "Acme Ltd Open (Sub:12.5x)" into its base
// name, status and subscription multiple. Missing annotations are not an error.
func (f *RecordFormatter) DecomposeTitle(raw string) models.TitleParts {
	parts := models.TitleParts{Status: models.IPOStatusUnknown}
	remaining := raw

	if match := subscriptionRegex.FindStringSubmatchIndex(remaining); match != nil {
		if multiple, err := strconv.ParseFloat(remaining[match[2]:match[3]], 64); err == nil {
			parts.SubscriptionMultiple = &multiple
		}
		remaining = remaining[:match[0]] + " " + remaining[match[1]:]
	}

	if match := titleStatusRegex.FindStringSubmatchIndex(remaining); match != nil {
		switch remaining[match[2]:match[3]] {
		case "Open":
			parts.Status = models.IPOStatusOpen
		case "Close":
			parts.Status = models.IPOStatusClosed
		}
		remaining = remaining[:match[0]] + " " + remaining[match[1]:]
	}

	parts.BaseName = f.utility.NormalizeTextContent(remaining)
	return parts
}

// FormatDate renders a partial date resolved against ref
func (f *RecordFormatter) FormatDate(raw *string, ref time.Time) string {
	return f.dates.Format(f.dates.Parse(raw, ref))
}

// FormatOffering renders every field of o for display
func (f *RecordFormatter) FormatOffering(o models.Offering, ref time.Time) models.DisplayOffering {
	title := f.DecomposeTitle(o.Title)

	display := models.DisplayOffering{
		Name:             f.DecodeEntities(title.BaseName),
		Status:           title.Status,
		SubscriptionTier: SubscriptionTier(title.SubscriptionMultiple),
		Price:            f.FormatCurrency(o.Price),
		Premium:          f.FormatCurrency(o.Premium),
		PremiumPositive:  f.utility.ExtractNumeric(o.Premium) > 0,
		EstimatedListing: f.formatText(o.EstimatedListing),
		IssueSize:        f.FormatSize(o.IssueSize),
		LotSize:          f.formatText(o.LotSize),
		OpenDate:         f.FormatDate(o.OpenDate, ref),
		CloseDate:        f.FormatDate(o.CloseDate, ref),
		AllotmentDate:    f.FormatDate(o.AllotmentDate, ref),
		ListingDate:      f.FormatDate(o.ListingDate, ref),
		LastUpdated:      f.dates.Format(f.dates.ParseString(o.LastUpdated, ref)),
		Raw:              o,
	}

	if title.SubscriptionMultiple != nil {
		display.Subscription = strconv.FormatFloat(*title.SubscriptionMultiple, 'f', -1, 64) + subscriptionOf
	}
	if o.HighlightTag != nil {
		display.HighlightTag = *o.HighlightTag
	}
	return display
}

// FormatStats renders derived stats, with an undefined average shown as "-"
func (f *RecordFormatter) FormatStats(stats models.DerivedStats) models.DisplayStats {
	display := models.DisplayStats{
		ActiveCount:    stats.ActiveCount,
		UpcomingCount:  stats.UpcomingCount,
		AveragePremium: emptyDisplay,
	}
	if stats.AveragePremium != nil {
		display.AveragePremium = FormatRupees(*stats.AveragePremium)
	}
	return display
}

// formatText decodes fields shown verbatim, such as "125 (25%)" listing estimates
func (f *RecordFormatter) formatText(raw string) string {
	if f.utility.IsPlaceholder(raw) {
		return emptyDisplay
	}
	return f.utility.NormalizeTextContent(f.utility.DecodeEntities(raw))
}

// SubscriptionTier bands a subscription multiple; nil means the title carried none
func SubscriptionTier(multiple *float64) string {
	if multiple == nil {
		return SubscriptionTierNone
	}

	switch m := *multiple; {
	case m >= 100:
		return SubscriptionTierHot
	case m >= 50:
		return SubscriptionTierStrong
	case m >= 1:
		return SubscriptionTierSubscribed
	default:
		return SubscriptionTierUndersubscribed
	}
}

// FormatRupees renders value rounded to whole rupees with Indian grouping:
// the last three digits, then groups of two (1,23,45,678).
func FormatRupees(value float64) string {
	rounded := math.Round(value)
	sign := ""
	if rounded < 0 {
		sign = "-"
	}
	rounded = math.Abs(rounded)

	return sign + rupeeSymbol + rupeePrinter.Sprint(number.Decimal(rounded, number.MaxFractionDigits(0)))
}
