package utils

import (
	"fmt"
	"io"

	"github.com/alecthomas/chroma/v2/quick"
)

// RenderMarkdown highlights markdown content for a 256-color terminal and writes it to w.
// Plain text is written when highlighting fails, so a report is never lost.
func RenderMarkdown(w io.Writer, content string, theme string) error {
	if theme == "" {
		theme = "dracula"
	}
	if err := quick.Highlight(w, content, "markdown", "terminal256", theme); err != nil {
		_, writeErr := fmt.Fprint(w, content)
		return writeErr
	}
	return nil
}
