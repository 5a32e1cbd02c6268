package config

import (
	"strconv"
	"strings"
	"sync"
)

type entry struct {
	value string
	line  int
}

// Section is one "[name]" block of a machine file. Reads are recorded so that
// settings nobody asked for can be reported.
type Section struct {
	name string
	file string

	mu      sync.Mutex
	entries map[string]entry
	read    map[string]bool
}

func newSection(name, file string) *Section {
	return &Section{
		name:    name,
		file:    file,
		entries: make(map[string]entry),
		read:    make(map[string]bool),
	}
}

// Name returns the section name.
func (s *Section) Name() string { return s.name }

func (s *Section) set(option, value string, line int) {
	s.mu.Lock()
	s.entries[strings.ToLower(option)] = entry{value: value, line: line}
	s.mu.Unlock()
}

func (s *Section) take(option string) (entry, bool) {
	key := strings.ToLower(option)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.read[key] = true
	e, ok := s.entries[key]
	return e, ok
}

func (s *Section) unread() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for k := range s.entries {
		if !s.read[k] {
			names = append(names, k)
		}
	}
	return names
}

// Line returns the line option was set on, or 0.
func (s *Section) Line(option string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[strings.ToLower(option)].line
}

func (s *Section) fail(option string, e entry, reason string) *Error {
	return &Error{
		File:    s.file,
		Line:    e.line,
		Section: s.name,
		Option:  option,
		Value:   e.value,
		Reason:  reason,
	}
}

// Rule constrains a numeric setting.
type Rule struct {
	ok   func(float64) bool
	want string
}

func fmtNum(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// Above requires values strictly greater than v.
func Above(v float64) Rule {
	return Rule{func(x float64) bool { return x > v }, "must be above " + fmtNum(v)}
}

// AtLeast requires values no smaller than v.
func AtLeast(v float64) Rule {
	return Rule{func(x float64) bool { return x >= v }, "must be at least " + fmtNum(v)}
}

// Float returns option as a number, or def when the option is absent.
func (s *Section) Float(option string, def float64, rules ...Rule) (float64, error) {
	e, ok := s.take(option)
	if !ok {
		return def, nil
	}
	v, err := strconv.ParseFloat(e.value, 64)
	if err != nil {
		return 0, s.fail(option, e, "not a number")
	}
	for _, r := range rules {
		if !r.ok(v) {
			return 0, s.fail(option, e, r.want)
		}
	}
	return v, nil
}

// Int returns option as an integer, or def when the option is absent.
func (s *Section) Int(option string, def int, rules ...Rule) (int, error) {
	e, ok := s.take(option)
	if !ok {
		return def, nil
	}
	v, err := strconv.Atoi(e.value)
	if err != nil {
		return 0, s.fail(option, e, "not an integer")
	}
	for _, r := range rules {
		if !r.ok(float64(v)) {
			return 0, s.fail(option, e, r.want)
		}
	}
	return v, nil
}
