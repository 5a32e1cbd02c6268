package config

import (
	"fmt"
	"strings"
)

// Error describes a problem in a machine file. File and Line locate it when
// known; Section, Option and Value name the setting at fault.
type Error struct {
	File    string
	Line    int
	Section string
	Option  string
	Value   string
	Reason  string
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d", e.Line)
		}
		b.WriteString(": ")
	}
	if e.Section != "" {
		fmt.Fprintf(&b, "[%s] ", e.Section)
	}
	if e.Option != "" {
		b.WriteString(e.Option)
		if e.Value != "" {
			fmt.Fprintf(&b, " = %s", e.Value)
		}
		b.WriteString(": ")
	}
	b.WriteString(e.Reason)
	return b.String()
}

func syntaxError(file string, line int, format string, args ...any) *Error {
	return &Error{File: file, Line: line, Reason: fmt.Sprintf(format, args...)}
}

// UnknownError lists settings present in a machine file that nothing read,
// usually a misspelling.
type UnknownError struct {
	File     string
	Sections []string
	Options  []string // "section.option"
}

func (e *UnknownError) Error() string {
	var parts []string
	for _, s := range e.Sections {
		parts = append(parts, "["+s+"]")
	}
	parts = append(parts, e.Options...)
	msg := "unknown settings: " + strings.Join(parts, ", ")
	if e.File != "" {
		msg = e.File + ": " + msg
	}
	return msg
}
