package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	out io.Writer = os.Stderr
	re            = lipgloss.NewRenderer(os.Stderr)

	headerStyle  lipgloss.Style
	infoStyle    lipgloss.Style
	successStyle lipgloss.Style
	warningStyle lipgloss.Style
	errorStyle   lipgloss.Style
	pathStyle    lipgloss.Style
	promptStyle  lipgloss.Style
)

func init() {
	buildStyles()
}

func buildStyles() {
	headerStyle = re.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	infoStyle = re.NewStyle().Foreground(lipgloss.Color("37"))
	successStyle = re.NewStyle().Foreground(lipgloss.Color("78"))
	warningStyle = re.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle = re.NewStyle().Foreground(lipgloss.Color("197"))
	pathStyle = re.NewStyle().Foreground(lipgloss.Color("214"))
	promptStyle = re.NewStyle().Foreground(lipgloss.Color("205"))
}

// SetOutput redirects all messages to w with the given color profile.
func SetOutput(w io.Writer, profile termenv.Profile) {
	out = w
	re = lipgloss.NewRenderer(w)
	re.SetColorProfile(profile)
	buildStyles()
}

// printStyled keeps leading blank lines out of the style, which would pad
// them to the message width.
func printStyled(style lipgloss.Style, format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	text := strings.TrimLeft(msg, "\n")
	fmt.Fprint(out, msg[:len(msg)-len(text)])
	fmt.Fprintln(out, style.Render(text))
}

func Header(format string, a ...any) {
	printStyled(headerStyle, format, a...)
}

func Info(format string, a ...any) {
	printStyled(infoStyle, format, a...)
}

func Success(format string, a ...any) {
	printStyled(successStyle, format, a...)
}

func Warning(format string, a ...any) {
	printStyled(warningStyle, format, a...)
}

func Error(format string, a ...any) {
	printStyled(errorStyle, format, a...)
}

func Path(format string, a ...any) {
	fmt.Fprintln(out, "  "+pathStyle.Render(fmt.Sprintf(format, a...)))
}

// Plain writes text without styling or an added newline.
func Plain(s string) {
	fmt.Fprint(out, s)
}

func Prompt(format string, a ...any) string {
	return promptStyle.Render(fmt.Sprintf(format, a...))
}

// --- Summaries ---

func list(files []string) {
	for _, f := range files {
		fmt.Fprintf(out, "  - %s\n", f)
	}
}

func PrintUpdateSummary(created, modified, skipped, failed []string) {
	Header("\n--- Update Summary ---")

	if len(created) == 0 && len(modified) == 0 && len(failed) == 0 && len(skipped) == 0 {
		Info("No files were updated.")
		return
	}

	if len(modified) > 0 {
		Success("Modified %d file(s):", len(modified))
		list(modified)
	}
	if len(created) > 0 {
		Success("Created %d new file(s):", len(created))
		list(created)
	}
	if len(skipped) > 0 {
		Warning("Skipped %d file(s):", len(skipped))
		list(skipped)
	}
	if len(failed) > 0 {
		Error("Failed to process %d file(s):", len(failed))
		list(failed)
	}
}

func PrintRevertSummary(reverted, failed []string) {
	Header("\n--- Revert Summary ---")
	if len(reverted) > 0 {
		Success("Successfully reverted %d file(s):", len(reverted))
		list(reverted)
	}
	if len(failed) > 0 {
		Error("Failed to revert %d file(s):", len(failed))
		list(failed)
	}
}

func PrintRedoSummary(redone, failed []string) {
	Header("\n--- Redo Summary ---")
	if len(redone) > 0 {
		Success("Successfully redid %d file(s):", len(redone))
		list(redone)
	}
	if len(failed) > 0 {
		Error("Failed to redo %d file(s):", len(failed))
		list(failed)
	}
}
