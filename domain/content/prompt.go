package content

import (
	"bytes"
	"fmt"
	"text/template"
)

// PromptTemplate holds the templates a chat prompt is rendered from
type PromptTemplate struct {
	System string
	User   string
}

// DefaultPrompt asks for a headline first so the preview has a title line
var DefaultPrompt = PromptTemplate{
	System: "You are a senior marketing copywriter. Write in a {{.Tone}} tone. " +
		"Start your answer with a single headline line, then the requested sections.",
	User: `Create high-conversion marketing content for:
Product: {{.Product}}
Target Audience: {{.Audience}}
Tone: {{.Tone}}

Include:
- Clear value proposition
- 3 key benefits
- Strong CTA

Generate:
1. One-line ad copy
2. Email subject line
3. LinkedIn post`,
}

// Render builds the ordered chat messages for the given parameters
func (t PromptTemplate) Render(p Parameters) ([]Message, error) {
	var messages []Message

	if t.System != "" {
		system, err := renderPrompt("system", t.System, p)
		if err != nil {
			return nil, err
		}
		messages = append(messages, Message{Role: RoleSystem, Content: system})
	}

	user, err := renderPrompt("user", t.User, p)
	if err != nil {
		return nil, err
	}
	messages = append(messages, Message{Role: RoleUser, Content: user})

	return messages, nil
}

func renderPrompt(name, tmplStr string, p Parameters) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(tmplStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s prompt: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", name, err)
	}

	return buf.String(), nil
}
