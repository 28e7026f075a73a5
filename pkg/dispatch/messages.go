package dispatch

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Messages holds the templates of every user-facing text.
// Templates receive a MessageData value.
type Messages struct {
	Welcome       string `yaml:"welcome"`
	Help          string `yaml:"help"`
	Reset         string `yaml:"reset"`
	Progress      string `yaml:"progress"`
	Header        string `yaml:"header"`
	Prompt        string `yaml:"prompt"`
	Accepted      string `yaml:"accepted"`
	Stale         string `yaml:"stale"`
	Final         string `yaml:"final"`
	Completed     string `yaml:"completed"`
	InvalidChoice string `yaml:"invalid_choice"`
	Error         string `yaml:"error"`
}

// MessageData is the value every template is executed with.
type MessageData struct {
	StepID      int    // 1-based id of the step being shown
	Total       int    // Number of steps in the story
	ChoicesMade int    // Length of the choice log
	Text        string // Narrative text of the step
	Choice      string // Text of the chosen option
}

// DefaultMessages returns the English catalog.
func DefaultMessages() Messages {
	return Messages{
		Welcome: "Hi! This is an interactive journey of {{.Total}} steps. " +
			"Every step offers two choices. Whatever you pick, the story goes on " +
			"and leads to the same ending. Let's go!",
		Help: "Commands:\n" +
			"/start - start over\n" +
			"/reset - reset progress\n" +
			"/progress - current step\n" +
			"/step - show the current step again\n" +
			"/help - this help",
		Reset:         "Progress reset. Starting from the beginning!",
		Progress:      "You are on step {{.StepID}} of {{.Total}}.",
		Header:        "Step {{.StepID}}/{{.Total}}",
		Prompt:        "Pick an option:",
		Accepted:      "{{.Text}}\n\nYour choice: {{.Choice}} ✅",
		Stale:         "This step has already been passed.",
		Final:         "🏁 THE END\n\nThe journey is over. Thank you for coming along!\n\nChoices made: {{.ChoicesMade}}. To play again, use /reset",
		Completed:     "Your journey is complete. Use /reset to play again.",
		InvalidChoice: "Something went wrong with your choice. Press /reset and try again.",
		Error:         "Something went wrong. Please try again later or press /reset.",
	}
}

// LoadMessages reads a YAML file and overlays it on the defaults.
// Keys missing from the file keep their default text; unknown keys are rejected.
func LoadMessages(path string) (Messages, error) {
	msgs := DefaultMessages()

	data, err := os.ReadFile(path)
	if err != nil {
		return msgs, fmt.Errorf("failed to read messages: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&msgs); err != nil {
		return msgs, fmt.Errorf("failed to parse messages %s: %w", path, err)
	}

	if _, err := msgs.compile(); err != nil {
		return msgs, err
	}
	return msgs, nil
}

// catalog is the parsed form of Messages.
type catalog struct {
	welcome, help, reset, progress, header, prompt  *template.Template
	accepted, stale, final, completed, invalid, err *template.Template
}

func (m Messages) compile() (*catalog, error) {
	var c catalog
	entries := []struct {
		name string
		src  string
		dst  **template.Template
	}{
		{"welcome", m.Welcome, &c.welcome},
		{"help", m.Help, &c.help},
		{"reset", m.Reset, &c.reset},
		{"progress", m.Progress, &c.progress},
		{"header", m.Header, &c.header},
		{"prompt", m.Prompt, &c.prompt},
		{"accepted", m.Accepted, &c.accepted},
		{"stale", m.Stale, &c.stale},
		{"final", m.Final, &c.final},
		{"completed", m.Completed, &c.completed},
		{"invalid_choice", m.InvalidChoice, &c.invalid},
		{"error", m.Error, &c.err},
	}

	for _, e := range entries {
		tmpl, err := template.New(e.name).Option("missingkey=error").Parse(e.src)
		if err != nil {
			return nil, fmt.Errorf("invalid %s message: %w", e.name, err)
		}
		// Catch references to fields MessageData does not have.
		if err := tmpl.Execute(&bytes.Buffer{}, MessageData{}); err != nil {
			return nil, fmt.Errorf("invalid %s message: %w", e.name, err)
		}
		*e.dst = tmpl
	}
	return &c, nil
}

// execute renders tmpl, falling back to the raw template source on failure.
func execute(tmpl *template.Template, data MessageData) string {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return tmpl.Root.String()
	}
	return buf.String()
}
