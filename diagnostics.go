package tiny

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/clarete/tiny/ascii"
)

// SourceWindow renders up to five lines of source around loc.Line,
// with an arrow marking the offending line, the way the original
// design's error reporter does. It does not print anything itself;
// cmd/tiny writes the result to stderr before exiting.
func SourceWindow(source []byte, loc Location) string {
	lines := splitLines(source)
	if loc.Line < 1 || loc.Line > len(lines) {
		return ""
	}

	const radius = 2
	start := loc.Line - radius
	if start < 1 {
		start = 1
	}
	end := loc.Line + radius
	if end > len(lines) {
		end = len(lines)
	}

	var b strings.Builder
	for n := start; n <= end; n++ {
		marker := "  "
		lineColor := ascii.DefaultTheme.Muted
		if n == loc.Line {
			marker = ascii.Color(ascii.DefaultTheme.Error, "->")
			lineColor = ascii.DefaultTheme.Accent
		}
		fmt.Fprintf(&b, "%s %s\n", marker, ascii.Color(lineColor, "%4d | %s", n, lines[n-1]))
	}
	return b.String()
}

func splitLines(source []byte) []string {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(source))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}
