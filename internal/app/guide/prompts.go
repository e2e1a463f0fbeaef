package guide

import (
	"fmt"
	"strings"

	"video2guide/internal/app/provider"
)

// SystemPrompt instructs chat-style generation backends. Shared by the remote
// API and local model generators so guides come out structurally consistent
// regardless of which backend produced them.
const SystemPrompt = `You are a technical documentation expert. Convert video transcriptions into clear, structured deployment guides in markdown format.`

// UserPrompt builds the generation prompt for a chat-style backend.
func UserPrompt(transcription string, gctx provider.GuideContext) string {
	var b strings.Builder

	b.WriteString("Convert the following video transcription into a well-structured deployment guide.\n\n")

	if gctx.Title != "" {
		fmt.Fprintf(&b, "Video title: %s\n", gctx.Title)
	}
	if gctx.Description != "" {
		fmt.Fprintf(&b, "Video description: %s\n", gctx.Description)
	}
	if gctx.Title != "" || gctx.Description != "" {
		b.WriteString("\n")
	}

	b.WriteString("Requirements:\n")
	b.WriteString("1. Use markdown formatting with clear headings\n")
	b.WriteString("2. Start with a title and brief introduction\n")
	b.WriteString("3. List prerequisites if any are mentioned\n")
	b.WriteString("4. Break the process into numbered steps\n")
	b.WriteString("5. Put shell commands in code blocks\n")
	b.WriteString("6. Include a troubleshooting section for problems mentioned\n")
	b.WriteString("7. Keep the original technical details accurate\n")
	b.WriteString("8. Fix obvious transcription errors in technical terms\n\n")

	b.WriteString("Transcription:\n")
	b.WriteString(transcription)

	return b.String()
}
