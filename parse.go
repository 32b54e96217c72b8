package gitview

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSpec indicates a malformed spec or filter expression.
var ErrInvalidSpec = errors.New("invalid filter spec")

// Entry is one [source:target] block of a spec, carrying the parsed filter
// expression that follows it.
type Entry struct {
	Source     string
	Target     string
	Filter     Filter
	FilterText string
}

// ParseSpec parses a spec consisting of one or more bracketed
// [source:target] blocks, each followed by a filter expression. Blocks are
// independent entries; a spec file commonly holds several.
//
// Parsing never touches the object store.
func ParseSpec(text string) ([]*Entry, error) {
	entries := make([]*Entry, 0, 1)

	rest := text
	for {
		rest = strings.TrimSpace(rest)
		if rest == "" {
			break
		}
		if rest[0] != '[' {
			return nil, fmt.Errorf("%w: entry must start with [source:target], got %q", ErrInvalidSpec, firstLine(rest))
		}

		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil, fmt.Errorf("%w: unterminated [source:target] in %q", ErrInvalidSpec, firstLine(rest))
		}

		fromto := strings.TrimSpace(rest[1:end])
		rest = rest[end+1:]

		ftext := rest
		if next := strings.IndexByte(rest, '['); next >= 0 {
			ftext, rest = rest[:next], rest[next:]
		} else {
			rest = ""
		}
		ftext = strings.TrimSpace(ftext)

		source, target, found := strings.Cut(fromto, ":")
		if !found {
			return nil, fmt.Errorf("%w: missing \":\" separator in %q", ErrInvalidSpec, fromto)
		}

		f, err := ParseFilter(ftext)
		if err != nil {
			return nil, fmt.Errorf("entry [%s]: %w", fromto, err)
		}

		entries = append(entries, &Entry{
			Source:     strings.TrimSpace(source),
			Target:     strings.TrimSpace(target),
			Filter:     f,
			FilterText: ftext,
		})
	}

	return entries, nil
}

// ParseFilter parses a filter expression: a sequence of colon-prefixed
// operators, each optionally carrying an "=value". Operators compose left to
// right into [Chain] nodes, the last operator outermost. The empty expression
// parses to [Nop].
func ParseFilter(text string) (Filter, error) {
	text = strings.TrimSpace(text)

	var result Filter = Nop{}

	if text == "" {
		return result, nil
	}
	if text[0] != ':' {
		return nil, fmt.Errorf("%w: filter expression must start with \":\", got %q", ErrInvalidSpec, firstLine(text))
	}

	i := 0
	for i < len(text) {
		i++ // consume ':'

		j := i
		for j < len(text) && text[j] != ':' && text[j] != '=' {
			j++
		}
		name := text[i:j]
		if name == "" {
			return nil, fmt.Errorf("%w: empty operator name in %q", ErrInvalidSpec, text)
		}

		value := ""
		hasvalue := false
		if j < len(text) && text[j] == '=' {
			hasvalue = true
			j++
			k, depth := j, 0
		valueloop:
			for k < len(text) {
				switch text[k] {
				case '(':
					depth++
				case ')':
					depth--
				case ':':
					if depth == 0 {
						break valueloop
					}
				}
				k++
			}
			if depth != 0 {
				return nil, fmt.Errorf("%w: unbalanced parentheses in %q", ErrInvalidSpec, text)
			}
			value = text[j:k]
			j = k
		}

		node, err := buildFilterOp(name, value, hasvalue)
		if err != nil {
			return nil, err
		}

		result = NewChain(result, node)
		i = j
	}

	return result, nil
}

func buildFilterOp(name, value string, hasvalue bool) (Filter, error) {
	needValue := func() error {
		if !hasvalue || value == "" {
			return fmt.Errorf("%w: operator %q requires a value", ErrInvalidSpec, name)
		}

		return nil
	}

	switch name {
	case "subdir":
		if err := needValue(); err != nil {
			return nil, err
		}

		return NewSubdir(value), nil
	case "prefix":
		if err := needValue(); err != nil {
			return nil, err
		}

		return NewPrefix(value), nil
	case "rename":
		if err := needValue(); err != nil {
			return nil, err
		}

		return parseRename(value)
	case "exclude":
		if err := needValue(); err != nil {
			return nil, err
		}

		return parseExclude(value)
	case "workspace":
		if err := needValue(); err != nil {
			return nil, err
		}

		return parseWorkspace(value)
	case "info":
		if !hasvalue {
			return nil, fmt.Errorf("%w: operator %q requires a value", ErrInvalidSpec, name)
		}

		return parseInfo(value)
	case "cutoff":
		if err := needValue(); err != nil {
			return nil, err
		}

		return NewCutoff(value), nil
	default:
		return nil, fmt.Errorf("%w: unknown operator %q", ErrInvalidSpec, name)
	}
}

func parseRename(value string) (Filter, error) {
	parts := splitTopLevel(value, ';')
	pairs := make([]RenamePair, 0, len(parts))
	for _, p := range parts {
		from, to, found := strings.Cut(p, "=")
		if !found {
			return nil, fmt.Errorf("%w: rename pair %q must be from=to", ErrInvalidSpec, p)
		}
		pairs = append(pairs, RenamePair{From: strings.Trim(from, "/"), To: strings.Trim(to, "/")})
	}

	f, err := NewRename(pairs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSpec, err)
	}

	return f, nil
}

func parseExclude(value string) (Filter, error) {
	f, err := NewExclude(splitTopLevel(value, ';'))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSpec, err)
	}

	return f, nil
}

func parseWorkspace(value string) (Filter, error) {
	parts := splitTopLevel(value, ';')
	mounts := make([]WorkspaceMember, 0, len(parts))

	for _, p := range parts {
		mount, nested, found := strings.Cut(p, "=")
		if !found {
			return nil, fmt.Errorf("%w: workspace mount %q must be path=(filter)", ErrInvalidSpec, p)
		}
		if !strings.HasPrefix(nested, "(") || !strings.HasSuffix(nested, ")") {
			return nil, fmt.Errorf("%w: workspace filter for %q must be parenthesized", ErrInvalidSpec, mount)
		}

		sub, err := ParseFilter(nested[1 : len(nested)-1])
		if err != nil {
			return nil, fmt.Errorf("workspace mount %s: %w", mount, err)
		}

		mounts = append(mounts, WorkspaceMember{Path: strings.Trim(mount, "/"), Filter: sub})
	}

	f, err := NewWorkspace(mounts)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSpec, err)
	}

	return f, nil
}

func parseInfo(value string) (Filter, error) {
	parts := splitTopLevel(value, ',')
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: info requires a prefix", ErrInvalidSpec)
	}

	fields := make([]InfoField, 0, len(parts)-1)
	for _, p := range parts[1:] {
		k, v, found := strings.Cut(p, "=")
		if !found {
			return nil, fmt.Errorf("%w: info field %q must be key=value", ErrInvalidSpec, p)
		}
		fields = append(fields, InfoField{Key: k, Value: unescapeInfoValue(v)})
	}

	return NewInfo(parts[0], fields), nil
}

// splitTopLevel splits s on sep, ignoring separators inside parentheses.
func splitTopLevel(s string, sep byte) []string {
	result := make([]string, 0, 2)

	start, depth := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case sep:
			if depth == 0 {
				result = append(result, s[start:i])
				start = i + 1
			}
		}
	}

	return append(result, s[start:])
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}

	return s
}
