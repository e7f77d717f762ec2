package app

import (
	"errors"
	"io"
	"strings"

	"github.com/peterh/liner"

	"github.com/sokinpui/codellm/internal/ui"
)

// Prompter reads one line of user input. It returns io.EOF when the user
// wants to leave (Ctrl+D or Ctrl+C).
type Prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	Close() error
}

type linePrompter struct {
	line *liner.State
}

func newLinePrompter() *linePrompter {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	return &linePrompter{line: line}
}

func (p *linePrompter) Prompt(prompt string) (string, error) {
	s, err := p.line.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", io.EOF
	}
	return s, err
}

func (p *linePrompter) AppendHistory(item string) {
	p.line.AppendHistory(item)
}

func (p *linePrompter) Close() error {
	return p.line.Close()
}

type answer int

const (
	answerAccept answer = iota
	answerReject
	answerQuit
)

// ask asks what to do with one suggestion until a valid answer is given.
// End of input counts as quit.
func ask(p Prompter, question string) answer {
	for {
		ui.Plain(ui.Prompt("%s [y]es / [n]o / [q]uit", question) + "\n")
		input, err := p.Prompt("> ")
		if err != nil {
			if !errors.Is(err, io.EOF) {
				ui.Error("Could not read answer: %v", err)
			}
			return answerQuit
		}
		switch strings.ToLower(strings.TrimSpace(input)) {
		case "y", "yes", "a", "accept":
			return answerAccept
		case "n", "no", "r", "reject":
			return answerReject
		case "q", "quit":
			return answerQuit
		}
		ui.Warning("Please answer y, n or q.")
	}
}
