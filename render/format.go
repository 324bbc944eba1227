package render

import (
	"math"
	"strconv"
	"time"

	"github.com/FerroO2000/barrace/ingress"
	"github.com/FerroO2000/barrace/timeline"
	"github.com/ncruces/go-strftime"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// BarInfoFunc returns the label drawn next to a bar.
type BarInfoFunc func(sample *timeline.Sample, meta ingress.Metadata) string

// BarInfo returns "type - name" when both are known, the name alone
// when only the name is known, the id otherwise.
// Missing names and types are looked up in the metadata.
func BarInfo(sample *timeline.Sample, meta ingress.Metadata) string {
	name := sample.Name
	if name == "" {
		name = meta.Get(sample.ID, "name")
	}

	typ := sample.Type
	if typ == "" {
		typ = meta.Get(sample.ID, "type")
	}

	switch {
	case name != "" && typ != "":
		return typ + " - " + name
	case name != "":
		return name
	default:
		return sample.ID
	}
}

// ValueFormat formats a bar value.
type ValueFormat func(v float64) string

// NewValueFormat returns a value format with the digit grouping
// of the BCP 47 language tag: two decimals when the value is fractional,
// none otherwise. An unknown tag falls back to English.
func NewValueFormat(lang string) ValueFormat {
	p := message.NewPrinter(parseLanguage(lang))

	return func(v float64) string {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ""
		}

		if v == math.Trunc(v) {
			return p.Sprintf("%d", int64(v))
		}

		return p.Sprintf("%.2f", v)
	}
}

func parseLanguage(lang string) language.Tag {
	tag, err := language.Parse(lang)
	if err != nil {
		return language.English
	}
	return tag
}

// TickFormat formats an axis tick.
type TickFormat func(v float64) string

var compactSuffixes = []string{"", "K", "M", "B", "T"}

// CompactTick formats a tick in compact notation (e.g. 950, 1.2K, 35M).
// Values below 100 units keep two significant digits.
func CompactTick(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}

	exp := 0
	for exp < len(compactSuffixes)-1 && math.Abs(v) >= math.Pow(1000, float64(exp+1)) {
		exp++
	}

	scaled := v / math.Pow(1000, float64(exp))
	if math.Abs(scaled) < 100 {
		scaled = roundSignificant(scaled, 2)
	} else {
		scaled = math.Round(scaled)
	}

	return strconv.FormatFloat(scaled, 'f', -1, 64) + compactSuffixes[exp]
}

func roundSignificant(v float64, digits int) float64 {
	if v == 0 {
		return 0
	}

	magnitude := math.Floor(math.Log10(math.Abs(v))) + 1
	factor := math.Pow(10, float64(digits)-magnitude)

	return math.Round(v*factor) / factor
}

// DateFormatter formats the date label of a frame.
type DateFormatter struct {
	layout string
}

// NewDateFormatter returns a formatter for the strftime layout.
func NewDateFormatter(layout string) *DateFormatter {
	return &DateFormatter{layout: layout}
}

// Format formats the timestamp.
func (df *DateFormatter) Format(t time.Time) string {
	return strftime.Format(df.layout, t)
}
