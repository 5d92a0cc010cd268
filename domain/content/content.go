package content

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Tone is the voice requested for generated copy
type Tone string

// Tones offered by the form
const (
	ToneProfessional Tone = "Professional"
	ToneCasual       Tone = "Casual"
	ToneExciting     Tone = "Exciting"
)

// Tones lists the selectable tones in display order
var Tones = []Tone{ToneProfessional, ToneCasual, ToneExciting}

// ParseTone matches a tone case-insensitively; an empty value yields fallback
func ParseTone(value string, fallback Tone) (Tone, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	for _, t := range Tones {
		if strings.EqualFold(string(t), value) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTone, value)
}

// Parameters are the form values a prompt is built from
type Parameters struct {
	Product  string
	Audience string
	Tone     Tone
}

// Validate checks that every prompt field is filled in
func (p Parameters) Validate() error {
	if strings.TrimSpace(p.Product) == "" {
		return ErrMissingProduct
	}
	if strings.TrimSpace(p.Audience) == "" {
		return ErrMissingAudience
	}
	if p.Tone == "" {
		return ErrUnknownTone
	}
	return nil
}

// GeneratedContent is text produced by the generator for a set of parameters.
// Text may be edited by the user before it is exported.
type GeneratedContent struct {
	Text       string
	Parameters Parameters
	Model      string
	CreatedAt  time.Time
}

// Headline returns the first non-blank line of the text with leading
// markdown heading or emphasis markers removed
func (g *GeneratedContent) Headline() string {
	for _, line := range strings.Split(g.Text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "#* ")
		line = strings.TrimRight(line, "* ")
		if line != "" {
			return line
		}
	}
	return ""
}

// Role is the author of a chat message
type Role string

// Chat roles understood by the completion endpoint
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat turn
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest is sent to the content generator
type CompletionRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
}

// CompletionResponse is the generator's reply
type CompletionResponse struct {
	Text  string
	Model string
}

// Generator produces text for a chat prompt.
// This is a port implemented by LLM provider adapters.
type Generator interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
