package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the ASCII banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.EnvColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"   ___ ___  _ ____   _____ ", "#818cf8"},
		{"  / __/ _ \\| '_ \\ \\ / / _ \\", "#a78bfa"},
		{" | (_| (_) | | | \\ V / (_) |", "#c084fc"},
		{"  \\___\\___/|_| |_|\\_/ \\___/", "#e879f9"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	if v := strings.TrimSpace(version); v != "" {
		fmt.Fprintln(w, termenv.String("  v"+v).Faint())
	}
	fmt.Fprintln(w)
}

// FormatChoices renders suggested replies as numbered, colored chips.
func FormatChoices(names []string) string {
	if len(names) == 0 {
		return ""
	}
	p := termenv.EnvColorProfile()
	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteString("  ")
		}
		chip := fmt.Sprintf("[%d] %s", i+1, name)
		b.WriteString(termenv.String(chip).Foreground(p.Color("#38bdf8")).String())
	}
	return b.String()
}
