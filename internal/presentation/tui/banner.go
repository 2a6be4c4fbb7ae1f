package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the reel banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.EnvColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"                  _ ", "#818cf8"},
		{"  _ __ ___  ___  | |", "#a78bfa"},
		{" | '__/ _ \\/ _ \\ | |", "#c084fc"},
		{" | | |  __/  __/ | |", "#e879f9"},
		{" |_|  \\___|\\___| |_|", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
