package guide

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/samber/lo"
)

// Section is one logical step of an extracted guide.
type Section struct {
	Title   string
	Content string
}

// Issue is a troubleshooting entry extracted from the transcript.
type Issue struct {
	Problem  string
	Solution string
}

// Structure is the regex-extracted skeleton of a guide, fed into the
// markdown template.
type Structure struct {
	Title           string
	Introduction    string
	Sections        []Section
	Commands        []string
	URLs            []string
	Prerequisites   []string
	Troubleshooting []Issue
	WordCount       int
	ReadingTimeMin  int
}

// ExtractOptions bounds section sizing and optional extractors.
type ExtractOptions struct {
	MaxSectionLength int
	MinSectionLength int
	ExtractCommands  bool
	ExtractURLs      bool
}

// DefaultExtractOptions mirrors the template generator defaults.
func DefaultExtractOptions() ExtractOptions {
	return ExtractOptions{
		MaxSectionLength: 500,
		MinSectionLength: 50,
		ExtractCommands:  true,
		ExtractURLs:      true,
	}
}

var titlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:how to|guide to|tutorial on|setting up|deploying|installing)\s+([^.!?]+)`),
	regexp.MustCompile(`(?i)(?:this video|today we|we will|we're going to)\s+(?:show|demonstrate|explain|cover)\s+([^.!?]+)`),
}

var commandPatterns = []*regexp.Regexp{
	regexp.MustCompile("(?i)(?:run|execute|type|enter)\\s+[\"`]([^\"`]+)[\"`]"),
	regexp.MustCompile(`(?im)(?:command|cmd):\s*([^\n.]+)`),
	regexp.MustCompile(`(?m)\$\s*([^\n]+)`),
	regexp.MustCompile(`(?im)sudo\s+([^\n.]+)`),
	regexp.MustCompile(`(?im)(?:apt|yum|pip|npm|docker|git)\s+[^\n.]+`),
}

var prereqPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:prerequisite|requirement|need|must have|should have)\s*:?\s*([^.!?]+)`),
	regexp.MustCompile(`(?i)(?:before|first|initially)\s+(?:you|we)\s+(?:need|must|should)\s+([^.!?]+)`),
	regexp.MustCompile(`(?i)(?:make sure|ensure)\s+(?:you|we)\s+(?:have|install|setup)\s+([^.!?]+)`),
}

var troublePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:error|problem|issue|fail|wrong)\s*:?\s*([^.!?]+)`),
	regexp.MustCompile(`(?i)(?:if|when)\s+(?:you see|you get|this happens)\s*:?\s*([^.!?]+)`),
}

var urlPattern = regexp.MustCompile(`https?://[^\s<>"{}|\\^` + "`" + `\[\]]+[^\s<>"{}|\\^` + "`" + `\[\].,;:!?]`)

// Extract builds the guide structure from cleaned transcript text.
func Extract(text string, opts ExtractOptions) Structure {
	words := strings.Fields(text)
	s := Structure{
		Title:           extractTitle(text),
		Introduction:    extractIntroduction(text),
		Sections:        extractSections(text, opts),
		Prerequisites:   extractPrerequisites(text),
		Troubleshooting: extractTroubleshooting(text),
		WordCount:       len(words),
		ReadingTimeMin:  estimateReadingTime(len(words)),
	}
	if opts.ExtractCommands {
		s.Commands = extractCommands(text)
	}
	if opts.ExtractURLs {
		s.URLs = lo.Uniq(urlPattern.FindAllString(text, -1))
	}
	return s
}

func extractTitle(text string) string {
	head := text
	if len(head) > 500 {
		head = head[:500]
	}
	for _, p := range titlePatterns {
		if m := p.FindStringSubmatch(head); m != nil {
			return titleCase(strings.TrimSpace(m[1]))
		}
	}

	// Fall back to the first meaningful sentence.
	for i, sentence := range strings.SplitN(text, ".", 4) {
		if i >= 3 {
			break
		}
		if t := strings.TrimSpace(sentence); len(t) > 10 {
			return titleCase(t)
		}
	}
	return "Generated Guide"
}

func extractIntroduction(text string) string {
	sentences := strings.SplitN(text, ".", 4)
	if len(sentences) > 3 {
		sentences = sentences[:3]
	}
	parts := make([]string, 0, len(sentences))
	for _, s := range sentences {
		if t := strings.TrimSpace(s); t != "" {
			parts = append(parts, t)
		}
	}
	intro := strings.Join(parts, ". ")
	if intro != "" && !strings.HasSuffix(intro, ".") {
		intro += "."
	}
	return intro
}

func extractSections(text string, opts ExtractOptions) []Section {
	paragraphs := splitParagraphs(text, opts.MaxSectionLength)

	var sections []Section
	var current string
	count := 1

	flush := func() {
		if len(current) >= opts.MinSectionLength {
			sections = append(sections, Section{
				Title:   fmt.Sprintf("Step %d", count),
				Content: strings.TrimSpace(current),
			})
			count++
		}
	}

	for _, paragraph := range paragraphs {
		if len(current)+len(paragraph) > opts.MaxSectionLength && current != "" {
			flush()
			current = paragraph
		} else if current == "" {
			current = paragraph
		} else {
			current += "\n\n" + paragraph
		}
	}
	if current != "" {
		flush()
	}
	return sections
}

func splitParagraphs(text string, maxLength int) []string {
	var paragraphs []string
	for _, p := range strings.Split(text, "\n\n") {
		if t := strings.TrimSpace(p); t != "" {
			paragraphs = append(paragraphs, t)
		}
	}
	if len(paragraphs) > 1 {
		return paragraphs
	}

	// Prose transcripts rarely carry paragraph breaks; group sentences.
	var grouped []string
	var current string
	for _, sentence := range strings.Split(text, ".") {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		sentence += "."
		if len(current)+len(sentence) > maxLength && current != "" {
			grouped = append(grouped, strings.TrimSpace(current))
			current = sentence
		} else if current == "" {
			current = sentence
		} else {
			current += " " + sentence
		}
	}
	if current != "" {
		grouped = append(grouped, strings.TrimSpace(current))
	}
	return grouped
}

func extractCommands(text string) []string {
	var commands []string
	for _, p := range commandPatterns {
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			cmd := m[0]
			if len(m) > 1 && m[1] != "" {
				cmd = m[1]
			}
			cmd = strings.TrimSpace(cmd)
			if len(cmd) > 3 {
				commands = append(commands, cmd)
			}
		}
	}
	commands = lo.Uniq(commands)
	if len(commands) > 10 {
		commands = commands[:10]
	}
	return commands
}

func extractPrerequisites(text string) []string {
	var prereqs []string
	for _, p := range prereqPatterns {
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			if v := strings.TrimSpace(m[1]); len(v) > 5 {
				prereqs = append(prereqs, v)
			}
		}
	}
	prereqs = lo.Uniq(prereqs)
	if len(prereqs) > 5 {
		prereqs = prereqs[:5]
	}
	return prereqs
}

func extractTroubleshooting(text string) []Issue {
	var issues []Issue
	for _, p := range troublePatterns {
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			problem := strings.TrimSpace(m[1])
			if len(problem) <= 10 {
				continue
			}
			issues = append(issues, Issue{
				Problem:  problem,
				Solution: "Refer to the documentation or check the logs for more details.",
			})
			if len(issues) >= 3 {
				return issues
			}
		}
	}
	return issues
}

func estimateReadingTime(wordCount int) int {
	minutes := int(math.Round(float64(wordCount) / 200.0))
	if minutes < 1 {
		return 1
	}
	return minutes
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}
