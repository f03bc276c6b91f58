package tiny

import "fmt"

// Location records where in the source a token, node, or symbol came
// from, used for diagnostics.
type Location struct {
	File string
	Line int
}

func (l Location) String() string {
	if l.File == "" {
		return fmt.Sprintf("line %d", l.Line)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}
