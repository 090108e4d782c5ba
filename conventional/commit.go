package conventional

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Commit represents a conventional commit message.
type Commit struct {
	Type       string
	Scope      string
	Subject    string
	Body       string
	Footer     map[string]string
	IsBreaking bool
}

// Regex to parse a conventional commit header.
// It captures: 1: type, 2: scope (optional), 3: breaking change indicator (!), 4: subject
var commitRegex = regexp.MustCompile(`^(\w+)(?:\(([^)]+)\))?(!?):\s(.*)$`)

// footerRegex matches a git trailer line such as "Session: abc".
var footerRegex = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9-]*|BREAKING CHANGE):\s(.*)$`)

// Parse parses a raw git commit message string into a Commit struct.
func Parse(message string) (*Commit, error) {
	lines := strings.SplitN(strings.TrimSpace(message), "\n", 2)
	header := lines[0]

	matches := commitRegex.FindStringSubmatch(header)
	if len(matches) < 5 {
		return nil, fmt.Errorf("invalid commit message format: %s", header)
	}

	commit := &Commit{
		Type:       strings.ToLower(matches[1]),
		Scope:      matches[2],
		IsBreaking: matches[3] == "!",
		Subject:    matches[4],
		Footer:     make(map[string]string),
	}

	if len(lines) < 2 {
		return commit, nil
	}

	paragraphs := strings.Split(strings.TrimSpace(lines[1]), "\n\n")
	last := paragraphs[len(paragraphs)-1]
	if footer, ok := parseFooter(last); ok {
		commit.Footer = footer
		paragraphs = paragraphs[:len(paragraphs)-1]
	}
	commit.Body = strings.TrimSpace(strings.Join(paragraphs, "\n\n"))

	for key := range commit.Footer {
		if key == "BREAKING CHANGE" || key == "BREAKING-CHANGE" {
			commit.IsBreaking = true
		}
	}

	return commit, nil
}

// parseFooter reads a paragraph made only of trailer lines.
func parseFooter(paragraph string) (map[string]string, bool) {
	footer := make(map[string]string)
	for _, line := range strings.Split(paragraph, "\n") {
		m := footerRegex.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			return nil, false
		}
		footer[m[1]] = m[2]
	}
	return footer, len(footer) > 0
}

// Header renders the first line of the commit message.
func (c *Commit) Header() string {
	var b strings.Builder
	b.WriteString(c.Type)
	if c.Scope != "" {
		b.WriteString("(" + c.Scope + ")")
	}
	if c.IsBreaking {
		b.WriteString("!")
	}
	b.WriteString(": ")
	b.WriteString(c.Subject)
	return b.String()
}

// String renders the full commit message. Footer trailers are sorted by key.
func (c *Commit) String() string {
	parts := []string{c.Header()}
	if body := strings.TrimSpace(c.Body); body != "" {
		parts = append(parts, body)
	}

	if len(c.Footer) > 0 {
		keys := make([]string, 0, len(c.Footer))
		for k := range c.Footer {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		lines := make([]string, 0, len(keys))
		for _, k := range keys {
			lines = append(lines, k+": "+c.Footer[k])
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}

	return strings.Join(parts, "\n\n")
}
