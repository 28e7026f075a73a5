package terminal

import (
	"strings"

	"github.com/aretw0/storyline/pkg/domain"
)

type commandKind int

const (
	cmdNone commandKind = iota
	cmdEvent
	cmdCallback
	cmdChoice
	cmdQuit
)

// command is one parsed input line.
type command struct {
	kind  commandKind
	event domain.EventKind
	label domain.Label
	data  string
}

var slashCommands = map[string]domain.EventKind{
	"/start":    domain.EventStart,
	"/reset":    domain.EventReset,
	"/progress": domain.EventProgress,
	"/help":     domain.EventHelp,
	"/step":     domain.EventCurrent,
}

// parseLine maps a trimmed input line to a command. Unknown input asks for help.
func parseLine(line string) command {
	line = strings.TrimSpace(line)
	lower := strings.ToLower(line)

	switch {
	case line == "":
		return command{kind: cmdNone}
	case lower == "exit" || lower == "quit" || lower == "/quit":
		return command{kind: cmdQuit}
	case strings.HasPrefix(lower, domain.CallbackPrefix+"|"):
		return command{kind: cmdCallback, data: line}
	case lower == "1":
		return command{kind: cmdChoice, label: domain.LabelA}
	case lower == "2":
		return command{kind: cmdChoice, label: domain.LabelB}
	}

	if label, err := domain.ParseLabel(line); err == nil {
		return command{kind: cmdChoice, label: label}
	}
	if kind, ok := slashCommands[strings.Fields(lower)[0]]; ok {
		return command{kind: cmdEvent, event: kind}
	}
	return command{kind: cmdEvent, event: domain.EventHelp}
}
