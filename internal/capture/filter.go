package capture

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Caption UI chrome: control labels and the size/color option words shown in
// the caption settings panel.
const uiLabels = `format[_\s]?size|font\s?size|font\s?colou?r|open\s?captions?|captions?\s?settings|settings|` +
	`arrow[_\s]?downward|jump\s?to\s?bottom|closed\s?captions|turn\s?on\s?captions|turn\s?off\s?captions|` +
	`translate|languages?|more\s?options|default|tiny|small|medium|large|huge|jumbo|circle|` +
	`white|black|blue|green|red|yellow|cyan|magenta|beta`

// Entries of the caption-language picker.
const languageLabels = `english|afrikaans|albanian|amharic|armenian|azerbaijani|basque|catalan|galician|georgian|` +
	`icelandic|javanese|kazakh|kinyarwanda|macedonian|mongolian|northern\s?sotho|sesotho|slovenian|sundanese|` +
	`swahili|swati|tshivenda|tswana|uzbek|xhosa|xitsonga|zulu|portuguese|spanish|french|german|italian|` +
	`mandarin|cantonese|chinese|japanese|korean|hindi|arabic|russian|turkish|vietnamese|thai|indonesian|` +
	`bengali|urdu|punjabi|tamil|telugu|marathi|gujarati|kannada|malayalam|sinhala|filipino|tagalog|malay|` +
	`burmese|khmer|lao|nepali|pashto|farsi|persian|hebrew|greek|dutch|swedish|norwegian|danish|finnish|` +
	`polish|czech|slovak|hungarian|romanian|bulgarian|serbian|croatian|ukrainian|lithuanian|latvian|estonian`

var (
	// Whole text is one or more UI labels, optionally separated by
	// whitespace or punctuation ("Font size", "Captions settings · Beta").
	uiPattern = regexp.MustCompile(`^(?:(?:` + uiLabels + `)[\s\p{P}\p{S}]*)+$`)
	// Whole text is one or more language names.
	languagePattern = regexp.MustCompile(`^(?:(?:` + languageLabels + `)[\s\p{P}\p{S}]*)+$`)

	// Menu dumps: option words rendered without separators.
	sizeDumpPattern  = regexp.MustCompile(`^(?:default|tiny|small|medium|large|huge|jumbo)+$`)
	colorDumpPattern = regexp.MustCompile(`^(?:default|white|black|blue|green|red|yellow|cyan|magenta)+$`)

	whitespace = regexp.MustCompile(`\s+`)
)

// IsGarbage reports whether a candidate caption is caption-UI noise rather
// than speech.
func IsGarbage(text string) bool {
	s := strings.ToLower(strings.TrimSpace(text))

	if utf8.RuneCountInString(s) < 3 {
		return true
	}
	if uiPattern.MatchString(s) || languagePattern.MatchString(s) {
		return true
	}

	compact := whitespace.ReplaceAllString(s, "")
	if sizeDumpPattern.MatchString(compact) || colorDumpPattern.MatchString(compact) {
		return true
	}

	if strings.Count(s, "beta") >= 2 {
		return true
	}
	if strings.Contains(s, "language") && utf8.RuneCountInString(s) > 80 {
		return true
	}
	return false
}
