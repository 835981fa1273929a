// Package prompt renders a day's events into the copywriting instructions
// sent to the language model.
package prompt

import (
	"os"
	"strings"
	"text/template"

	"github.com/pkg/errors"

	"postcrafter/internal/llm"
	"postcrafter/internal/storage"
)

// EventSeparator joins event texts inside the prompt.
const EventSeparator = ", "

const DefaultSystem = "Act as a senior copywriter, you write highly engaging posts for LinkedIn, Facebook and Twitter using provided thoughts/events throughout the day."

// DefaultUser is rendered with the joined events as {{.Events}}.
const DefaultUser = `Write like a human, for humans. Craft three engaging social media posts tailored for LinkedIn, Facebook, and Twitter audiences, one distinct post per platform. Use simple language. The events are listed in the order they happened; use that order only to understand the flow of the day and never mention times in the posts. Each post should creatively highlight the following events. Ensure the tone is conversational and impactful. Focus on engaging the respective platform's audience, encouraging interaction, and driving interest in the events:
{{.Events}}`

// EmptyInputError is returned when there is nothing to summarize.
type EmptyInputError struct{}

func (*EmptyInputError) Error() string { return "no events to summarize" }

// Prompt is the two-turn conversation sent to the model.
type Prompt struct {
	System string
	User   string
}

func (p Prompt) Messages() []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: p.System},
		{Role: llm.RoleUser, Content: p.User},
	}
}

func (p Prompt) String() string {
	return p.System + "\n\n" + p.User
}

// Builder holds the fixed templates.
type Builder struct {
	system string
	user   *template.Template
}

// NewBuilder parses the templates. Empty arguments select the defaults.
func NewBuilder(system, user string) (*Builder, error) {
	if system == "" {
		system = DefaultSystem
	}
	if user == "" {
		user = DefaultUser
	}
	tmpl, err := template.New("user").Option("missingkey=error").Parse(user)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse user prompt template")
	}
	if !strings.Contains(user, ".Events") {
		return nil, errors.New("user prompt template must reference {{.Events}}")
	}
	return &Builder{system: strings.TrimSpace(system), user: tmpl}, nil
}

// NewBuilderFromFiles reads template overrides from disk; an empty path keeps
// the default for that part.
func NewBuilderFromFiles(systemPath, userPath string) (*Builder, error) {
	system, err := readOptional(systemPath)
	if err != nil {
		return nil, err
	}
	user, err := readOptional(userPath)
	if err != nil {
		return nil, err
	}
	return NewBuilder(system, user)
}

func readOptional(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read prompt template %s", path)
	}
	return string(data), nil
}

// Build renders events, in the given order, into a prompt. Only the event
// texts are used; timestamps never reach the model.
func (b *Builder) Build(events []*storage.Event) (Prompt, error) {
	if len(events) == 0 {
		return Prompt{}, &EmptyInputError{}
	}
	texts := make([]string, 0, len(events))
	for _, ev := range events {
		texts = append(texts, ev.Text)
	}

	var sb strings.Builder
	err := b.user.Execute(&sb, struct{ Events string }{Events: strings.Join(texts, EventSeparator)})
	if err != nil {
		return Prompt{}, errors.Wrap(err, "failed to render user prompt")
	}
	return Prompt{System: b.system, User: sb.String()}, nil
}
