// Package config reads machine files: "[section]" headers, "key: value" or
// "key = value" options and '#' comments. Every read is tracked so that a
// misspelled setting is reported instead of silently ignored.
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
)

// Config is a parsed machine file.
type Config struct {
	file string

	mu       sync.Mutex
	sections map[string]*Section
	opened   map[string]bool
}

// Load reads the machine file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	return parse(f, path)
}

// LoadString parses a machine file held in memory.
func LoadString(data string) (*Config, error) {
	return parse(strings.NewReader(data), "")
}

func parse(r io.Reader, file string) (*Config, error) {
	c := &Config{
		file:     file,
		sections: make(map[string]*Section),
		opened:   make(map[string]bool),
	}
	var cur *Section
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line, _, _ := strings.Cut(sc.Text(), "#")
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
			name := strings.TrimSpace(line[1 : len(line)-1])
			if name == "" {
				return nil, syntaxError(file, n, "empty section header")
			}
			cur = c.sections[name]
			if cur == nil {
				cur = newSection(name, file)
				c.sections[name] = cur
			}
			continue
		case cur == nil:
			return nil, syntaxError(file, n, "setting outside of a section")
		}
		sep := strings.IndexAny(line, ":=")
		if sep <= 0 || strings.TrimSpace(line[:sep]) == "" {
			return nil, syntaxError(file, n, "expected key: value, got %q", line)
		}
		cur.set(strings.TrimSpace(line[:sep]), strings.TrimSpace(line[sep+1:]), n)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", file, err)
	}
	return c, nil
}

// Section returns the named section. A section absent from the file comes back
// empty so that every read falls through to its default.
func (c *Config) Section(name string) *Section {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opened[name] = true
	if s, ok := c.sections[name]; ok {
		return s
	}
	return newSection(name, c.file)
}

// CheckUnused reports every section or option in the file that was never read.
func (c *Config) CheckUnused() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	u := &UnknownError{File: c.file}
	for name, s := range c.sections {
		if !c.opened[name] {
			u.Sections = append(u.Sections, name)
			continue
		}
		for _, opt := range s.unread() {
			u.Options = append(u.Options, name+"."+opt)
		}
	}
	if len(u.Sections) == 0 && len(u.Options) == 0 {
		return nil
	}
	sort.Strings(u.Sections)
	sort.Strings(u.Options)
	return u
}
