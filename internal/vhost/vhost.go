package vhost

import (
	"path"
	"strings"
)

// Pattern is a case-insensitive shell glob matched against request hosts. Supported are
// `*`, `?`, character classes and backslash escapes.
type Pattern struct {
	raw      string
	glob     string
	literals int
	stars    int
}

// Compile validates the pattern. The only possible error is path.ErrBadPattern.
func Compile(pattern string) (Pattern, error) {
	glob := strings.ToLower(pattern)
	if len(glob) == 0 {
		return Pattern{}, path.ErrBadPattern
	}

	if _, err := path.Match(glob, ""); err != nil {
		return Pattern{}, err
	}

	literals, stars := weigh(glob)

	return Pattern{
		raw:      pattern,
		glob:     glob,
		literals: literals,
		stars:    stars,
	}, nil
}

func (p Pattern) String() string {
	return p.raw
}

// Match reports whether the host matches the pattern. The port, if any, is ignored.
func (p Pattern) Match(host string) bool {
	matched, _ := path.Match(p.glob, Normalize(host))
	return matched
}

// MoreSpecific reports whether p takes precedence over other: more literal characters
// win first, fewer stars second.
func (p Pattern) MoreSpecific(other Pattern) bool {
	if p.literals != other.literals {
		return p.literals > other.literals
	}

	return p.stars < other.stars
}

// Best returns the index of the most specific pattern matching the host, or -1. Among
// equally specific patterns the first one wins.
func Best(host string, patterns []Pattern) int {
	best := -1

	for i, pattern := range patterns {
		if !pattern.Match(host) {
			continue
		}

		if best == -1 || pattern.MoreSpecific(patterns[best]) {
			best = i
		}
	}

	return best
}

// Normalize lowercases the host, stripping the port and the trailing dot of a fully
// qualified name.
func Normalize(host string) string {
	host = TrimPort(host)
	host = strings.TrimSuffix(host, ".")

	return strings.ToLower(host)
}

// TrimPort strips the port. Bracketed IPv6 addresses are returned without brackets.
func TrimPort(host string) string {
	if strings.HasPrefix(host, "[") {
		if end := strings.IndexByte(host, ']'); end != -1 {
			return host[1:end]
		}

		return host
	}

	if colon := strings.LastIndexByte(host, ':'); colon != -1 {
		// more than one colon is a bare IPv6 address
		if strings.IndexByte(host, ':') != colon {
			return host
		}

		return host[:colon]
	}

	return host
}

func weigh(glob string) (literals, stars int) {
	for i := 0; i < len(glob); i++ {
		switch glob[i] {
		case '*':
			stars++
		case '?':
		case '[':
			for i < len(glob) && glob[i] != ']' {
				if glob[i] == '\\' {
					i++
				}
				i++
			}
		case '\\':
			i++
			literals++
		default:
			literals++
		}
	}

	return literals, stars
}
