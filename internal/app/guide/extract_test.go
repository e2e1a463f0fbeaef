package guide

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTranscript = `How to deploy a web server on Ubuntu. ` +
	`Before you need a fresh virtual machine with root access. ` +
	`First update the package index with sudo apt update and then install nginx. ` +
	`Run "nginx -t" to verify the configuration. ` +
	`The documentation lives at https://nginx.org/en/docs/ for reference. ` +
	`If you get a permission denied message just rerun the command with sudo.`

func TestExtractTitle(t *testing.T) {
	s := Extract(sampleTranscript, DefaultExtractOptions())
	assert.Equal(t, "Deploy A Web Server On Ubuntu", s.Title)
}

func TestExtractTitleFallsBackToFirstSentence(t *testing.T) {
	s := Extract("Setting things straight about configuration files. More text follows here.", DefaultExtractOptions())
	assert.NotEqual(t, "Generated Guide", s.Title)
	assert.NotEmpty(t, s.Title)
}

func TestExtractTitleDefault(t *testing.T) {
	s := Extract("hi. ok. no.", DefaultExtractOptions())
	assert.Equal(t, "Generated Guide", s.Title)
}

func TestExtractCommands(t *testing.T) {
	s := Extract(sampleTranscript, DefaultExtractOptions())
	require.NotEmpty(t, s.Commands)

	joined := strings.Join(s.Commands, "\n")
	assert.Contains(t, joined, "apt update")
	assert.Contains(t, joined, "nginx -t")
}

func TestExtractCommandsCapped(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 20; i++ {
		b.WriteString("docker run image")
		b.WriteString(string(rune('a' + i)))
		b.WriteString("\n")
	}
	s := Extract(b.String(), DefaultExtractOptions())
	assert.LessOrEqual(t, len(s.Commands), 10)
}

func TestExtractURLs(t *testing.T) {
	s := Extract(sampleTranscript, DefaultExtractOptions())
	require.Len(t, s.URLs, 1)
	assert.Equal(t, "https://nginx.org/en/docs/", s.URLs[0])
}

func TestExtractURLsDeduplicated(t *testing.T) {
	text := "see https://example.com/install and again https://example.com/install for details"
	s := Extract(text, DefaultExtractOptions())
	assert.Len(t, s.URLs, 1)
}

func TestExtractDisabledExtractors(t *testing.T) {
	opts := DefaultExtractOptions()
	opts.ExtractCommands = false
	opts.ExtractURLs = false

	s := Extract(sampleTranscript, opts)
	assert.Empty(t, s.Commands)
	assert.Empty(t, s.URLs)
}

func TestExtractPrerequisites(t *testing.T) {
	s := Extract(sampleTranscript, DefaultExtractOptions())
	require.NotEmpty(t, s.Prerequisites)
	assert.Contains(t, strings.ToLower(s.Prerequisites[0]), "virtual machine")
}

func TestExtractTroubleshooting(t *testing.T) {
	s := Extract(sampleTranscript, DefaultExtractOptions())
	require.NotEmpty(t, s.Troubleshooting)
	assert.NotEmpty(t, s.Troubleshooting[0].Problem)
	assert.NotEmpty(t, s.Troubleshooting[0].Solution)
}

func TestExtractSectionsRespectLengths(t *testing.T) {
	opts := ExtractOptions{MaxSectionLength: 120, MinSectionLength: 30}
	s := Extract(sampleTranscript, opts)
	require.NotEmpty(t, s.Sections)
	for i, sec := range s.Sections {
		assert.Equal(t, "Step "+string(rune('1'+i)), sec.Title)
		assert.GreaterOrEqual(t, len(sec.Content), opts.MinSectionLength)
	}
}

func TestReadingTimeMinimumOneMinute(t *testing.T) {
	s := Extract("short text.", DefaultExtractOptions())
	assert.Equal(t, 1, s.ReadingTimeMin)

	long := strings.Repeat("word ", 600)
	s = Extract(long, DefaultExtractOptions())
	assert.Equal(t, 3, s.ReadingTimeMin)
}

func TestCleanTranscriptFixesTermCasing(t *testing.T) {
	cleaned := CleanTranscript("we call the api over http using the server's ip address")
	assert.Contains(t, cleaned, "API")
	assert.Contains(t, cleaned, "HTTP")
	assert.Contains(t, cleaned, "IP address")
}

func TestCleanTranscriptCollapsesWhitespace(t *testing.T) {
	cleaned := CleanTranscript("  hello   world \n\n again ")
	assert.NotContains(t, cleaned, "  ")
	assert.NotContains(t, cleaned, "\n")
}

func TestCleanTranscriptPunctuationSpacing(t *testing.T) {
	cleaned := CleanTranscript("install it , then run it .Done")
	assert.NotContains(t, cleaned, " ,")
	assert.NotContains(t, cleaned, " .")
}

func TestCleanTranscriptMultibyteSentenceStart(t *testing.T) {
	cleaned := CleanTranscript("über wichtig. ça marche bien.")
	assert.True(t, utf8.ValidString(cleaned))
	assert.Contains(t, cleaned, "Über wichtig")
	assert.Contains(t, cleaned, "Ça marche bien")
}

func TestTitleCaseMultibyteWords(t *testing.T) {
	assert.Equal(t, "Écran Partagé", titleCase("écran partagé"))
}
