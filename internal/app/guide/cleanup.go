package guide

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// termCorrections capitalizes technical terms that speech-to-text commonly
// lowercases.
var termCorrections = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(?i)\bip address\b`), "IP address"},
	{regexp.MustCompile(`(?i)\bapi\b`), "API"},
	{regexp.MustCompile(`(?i)\burl\b`), "URL"},
	// The colon guard keeps URL schemes like https:// untouched.
	{regexp.MustCompile(`(?i)\bhttps\b([^:]|$)`), "HTTPS$1"},
	{regexp.MustCompile(`(?i)\bhttp\b([^:]|$)`), "HTTP$1"},
	{regexp.MustCompile(`(?i)\bssh\b`), "SSH"},
	{regexp.MustCompile(`(?i)\bgit\b`), "Git"},
	{regexp.MustCompile(`(?i)\bdocker\b`), "Docker"},
	{regexp.MustCompile(`(?i)\bkubernetes\b`), "Kubernetes"},
	{regexp.MustCompile(`(?i)\blinux\b`), "Linux"},
	{regexp.MustCompile(`(?i)\bubuntu\b`), "Ubuntu"},
	{regexp.MustCompile(`(?i)\bcentos\b`), "CentOS"},
	{regexp.MustCompile(`(?i)\baws\b`), "AWS"},
	{regexp.MustCompile(`(?i)\bgcp\b`), "GCP"},
	{regexp.MustCompile(`(?i)\bazure\b`), "Azure"},
}

var (
	sentenceBreakRe = regexp.MustCompile(`(?i)(\w+)\s+(now|next|then|so|okay|alright)\s+`)
	spaceBeforePunc = regexp.MustCompile(`\s+([,.!?;:])`)
	spaceAfterPunc  = regexp.MustCompile(`([,.!?;:])\s*`)
)

// CleanTranscript normalizes raw transcription text for guide generation:
// collapses whitespace, fixes common term casing, and repairs punctuation.
func CleanTranscript(text string) string {
	text = whitespaceRe.ReplaceAllString(strings.TrimSpace(text), " ")

	for _, c := range termCorrections {
		text = c.pattern.ReplaceAllString(text, c.replacement)
	}

	text = improvePunctuation(text)
	return text
}

func improvePunctuation(text string) string {
	text = sentenceBreakRe.ReplaceAllString(text, "$1. $2 ")
	text = spaceBeforePunc.ReplaceAllString(text, "$1")
	text = spaceAfterPunc.ReplaceAllString(text, "$1 ")

	sentences := strings.Split(text, ". ")
	out := make([]string, 0, len(sentences))
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, capitalize(s))
	}
	return strings.Join(out, ". ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError && size <= 1 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
