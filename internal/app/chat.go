package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sokinpui/codellm/internal/ollama"
	"github.com/sokinpui/codellm/internal/tui"
	"github.com/sokinpui/codellm/internal/ui"
)

// chat runs the interactive conversation until the user leaves.
func (a *App) chat(ctx context.Context) error {
	ui.Success("Welcome to code-llm! Using model: %s", a.cfg.Model)
	ui.Info("Type your questions/requests or 'exit' to quit.")

	dirContext := a.directoryContext()
	var history []string
	p := a.input()

	for {
		input, err := p.Prompt("You: ")
		if errors.Is(err, io.EOF) {
			ui.Info("\nExiting.")
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		request := strings.TrimSpace(input)
		if request == "" {
			continue
		}
		if strings.EqualFold(request, "exit") {
			break
		}
		p.AppendHistory(request)

		genReq := ollama.GenerateRequest{
			Model:  a.cfg.Model,
			Prompt: ollama.BuildPrompt(history, dirContext, request),
			System: a.cfg.SystemPrompt(a.cfg.Model),
		}
		response, err := tui.Run(ctx, a.stderr, "Thinking...", !a.flags.NoAnimation, func(ctx context.Context) (string, error) {
			return a.generator.Generate(ctx, genReq)
		})
		if errors.Is(err, context.Canceled) {
			ui.Warning("Request canceled.")
			continue
		}
		if err != nil {
			ui.Error("Error: %v", err)
			ui.Warning("API URL: %s/api/generate", strings.TrimRight(a.cfg.APIURL, "/"))
			continue
		}
		history = append(history, "User: "+request, "Assistant: "+response)

		res := a.engine.Parse(response)
		if len(res.Applicable()) == 0 {
			fmt.Fprintf(a.stdout, "Assistant: %s\n", response)
			if len(res.Diffs) == 0 && len(res.Errors) == 0 {
				continue
			}
		}

		summary := a.review(res)
		ui.PrintUpdateSummary(summary.Created, summary.Modified, summary.Skipped, summary.Failed)
		if len(summary.Created)+len(summary.Modified) > 0 {
			dirContext = a.directoryContext()
		}
	}

	ui.Success("Thank you for using code-llm!")
	return nil
}

// directoryContext returns the file listing sent with each request.
func (a *App) directoryContext() string {
	if a.flags.NoContext {
		return ""
	}
	content, err := a.gatherer.Gather()
	if err != nil {
		ui.Warning("Could not read the directory context: %v", err)
		return ""
	}
	a.log.Debug("directory context gathered", "bytes", len(content))
	return content
}
