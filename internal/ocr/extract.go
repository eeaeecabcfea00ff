package ocr

import "regexp"

var (
	// dd.mm.yyyy and yyyy-mm-dd, the two formats court documents actually use
	dateRe   = regexp.MustCompile(`\b(?:\d{2}\.\d{2}\.\d{4}|\d{4}-\d{2}-\d{2})\b`)
	// the Cyrillic А alternative sits outside \b: RE2 word boundaries are
	// ASCII-only and never match before a non-ASCII letter
	numberRe = regexp.MustCompile(`[АA]\d{2}-\d+/\d{4}|\b(?:\d+[-/]\d+[-/]\d+|\d{4,})\b`)
)

// ExtractDates pulls date-shaped strings out of a transcription.
func ExtractDates(text string) []string {
	return dedupe(dateRe.FindAllString(text, -1))
}

// ExtractNumbers pulls case-number and reference-number shaped strings out of
// a transcription.
func ExtractNumbers(text string) []string {
	return dedupe(numberRe.FindAllString(text, -1))
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
