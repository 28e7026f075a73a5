package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"     _                   _ _            ", "#818cf8"},
	{" ___| |_ ___  _ __ _   _| (_)_ __   ___ ", "#a78bfa"},
	{"/ __| __/ _ \\| '__| | | | | | '_ \\ / _ \\", "#c084fc"},
	{"\\__ \\ || (_) | |  | |_| | | | | | |  __/", "#e879f9"},
	{"|___/\\__\\___/|_|   \\__, |_|_|_| |_|\\___|", "#f472b6"},
	{"                   |___/                ", "#fb7185"},
}

// PrintBanner writes the colored title banner to w.
// Colors are dropped when w is not a color-capable terminal.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()

	fmt.Fprintln(w)
	for _, line := range bannerLines {
		fmt.Fprintln(w, out.String(line.text).Foreground(p.Color(line.color)))
	}
	fmt.Fprintln(w)
}
