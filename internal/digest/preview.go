package digest

import (
	"fmt"

	"github.com/charmbracelet/glamour"
)

// TerminalPreview renders the post body for a terminal. An empty style
// picks one from the terminal background.
func TerminalPreview(post Post, style string, width int) (string, error) {
	if width <= 0 {
		width = 100
	}
	styleOpt := glamour.WithAutoStyle()
	if style != "" {
		styleOpt = glamour.WithStylePath(style)
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return "", fmt.Errorf("terminal renderer: %w", err)
	}
	_, body := SplitFrontMatter(post.Markdown)
	out, err := r.Render(body)
	if err != nil {
		return "", fmt.Errorf("render preview: %w", err)
	}
	return out, nil
}
