package domain

import (
	"time"

	"golang.org/x/text/language"
)

// InvalidDate is rendered for dates that cannot be parsed.
const InvalidDate = "Invalid Date"

var (
	supportedLocales = []language.Tag{
		language.AmericanEnglish, // first entry is the fallback
		language.BritishEnglish,
		language.German,
		language.French,
		language.Japanese,
	}

	shortDateLayouts = map[language.Tag]string{
		language.AmericanEnglish: "1/2/2006",
		language.BritishEnglish:  "02/01/2006",
		language.German:          "2.1.2006",
		language.French:          "02/01/2006",
		language.Japanese:        "2006/1/2",
	}

	localeMatcher = language.NewMatcher(supportedLocales)
)

// DateFormatter renders stored dates as locale specific short dates in UTC.
type DateFormatter struct {
	tag    language.Tag
	layout string
}

// NewDateFormatter picks the closest supported locale for a BCP 47 tag.
// Unknown or malformed tags fall back to en-US.
func NewDateFormatter(locale string) *DateFormatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.AmericanEnglish
	}
	_, idx, _ := localeMatcher.Match(tag)
	best := supportedLocales[idx]
	return &DateFormatter{tag: best, layout: shortDateLayouts[best]}
}

// Locale returns the matched locale.
func (f *DateFormatter) Locale() string {
	return f.tag.String()
}

// Format renders a YYYY-MM-DD date.
func (f *DateFormatter) Format(date string) string {
	t, err := time.ParseInLocation(DateLayout, date, time.UTC)
	if err != nil {
		return InvalidDate
	}
	return t.UTC().Format(f.layout)
}
