package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the GameFlow banner to w, coloured for the terminal's profile.
func PrintBanner(w io.Writer) {
	p := termenv.EnvColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"   ____                      _____ _", "#34d399"},
		{"  / ___| __ _ _ __ ___   ___|  ___| | _____      __", "#2dd4bf"},
		{" | |  _ / _` | '_ ` _ \\ / _ \\ |_  | |/ _ \\ \\ /\\ / /", "#22d3ee"},
		{" | |_| | (_| | | | | | |  __/  _| | | (_) \\ V  V /", "#38bdf8"},
		{"  \\____|\\__,_|_| |_| |_|\\___|_|   |_|\\___/ \\_/\\_/", "#60a5fa"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
