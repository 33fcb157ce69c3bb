package errors

import "fmt"

// Position identifies a line in a function unit.
type Position struct {
	File string // unit file name, or "native"
	Line int    // 1-based line number, 0 if unknown
}

func (p Position) String() string {
	if p.Line > 0 {
		return fmt.Sprintf("%s:%d", p.File, p.Line)
	}
	return p.File
}
