// Package console writes the user-facing lines of a chat session.
//
// Styling is applied to labels only, and only when the writer is a terminal.
// Assistant text is written verbatim unless markdown rendering is enabled.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

const defaultWidth = 100

// Options configures a Console.
type Options struct {
	// Markdown renders assistant text with glamour.
	Markdown bool
	// Color forces styling on or off. Nil means: on when the writer is a terminal.
	Color *bool
}

// Console is the line-oriented output of the chat client.
type Console struct {
	w        io.Writer
	styled   bool
	markdown *glamour.TermRenderer
}

// New creates a Console writing to w.
func New(w io.Writer, opts Options) *Console {
	fd, isTTY := terminalFd(w)

	c := &Console{w: w, styled: isTTY}
	if opts.Color != nil {
		c.styled = *opts.Color
	}

	if opts.Markdown {
		width := defaultWidth
		if isTTY {
			if tw, _, err := term.GetSize(fd); err == nil && tw > 0 {
				width = tw
			}
		}
		style := glamour.WithAutoStyle()
		if !c.styled {
			style = glamour.WithStandardStyle("notty")
		}
		// A nil renderer falls back to verbatim text.
		c.markdown, _ = glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	}
	return c
}

func terminalFd(w io.Writer) (int, bool) {
	f, ok := w.(*os.File)
	if !ok {
		return 0, false
	}
	fd := int(f.Fd())
	return fd, term.IsTerminal(fd)
}

// Writer returns the underlying writer.
func (c *Console) Writer() io.Writer { return c.w }

func (c *Console) render(style lipgloss.Style, s string) string {
	if !c.styled {
		return s
	}
	return style.Render(s)
}

// Println writes a plain line.
func (c *Console) Println(s string) {
	fmt.Fprintln(c.w, s)
}

// Printf writes a plain formatted line.
func (c *Console) Printf(format string, args ...any) {
	c.Println(fmt.Sprintf(format, args...))
}

// Success writes a confirmation line.
func (c *Console) Success(format string, args ...any) {
	fmt.Fprintln(c.w, c.render(SuccessStyle, fmt.Sprintf(format, args...)))
}

// Error writes an error line.
func (c *Console) Error(format string, args ...any) {
	fmt.Fprintln(c.w, c.render(ErrorStyle, fmt.Sprintf(format, args...)))
}

// Muted writes a secondary line (progress, status).
func (c *Console) Muted(format string, args ...any) {
	fmt.Fprintln(c.w, c.render(MutedStyle, fmt.Sprintf(format, args...)))
}

// AssistantLabel writes the "Assistant:" header.
func (c *Console) AssistantLabel() {
	fmt.Fprintln(c.w, c.render(AssistantStyle, "Assistant:"))
}

// Prompt writes the user prompt, preceded by a blank line, without a trailing newline.
func (c *Console) Prompt(p string) {
	fmt.Fprint(c.w, "\n"+c.render(UserStyle, p))
}

// Text writes assistant text. It is verbatim unless markdown rendering is enabled.
func (c *Console) Text(s string) {
	if c.markdown != nil {
		if out, err := c.markdown.Render(s); err == nil {
			fmt.Fprintln(c.w, strings.TrimRight(out, "\n"))
			return
		}
	}
	fmt.Fprintln(c.w, s)
}
