package pathutil

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrInvalidPath is returned for paths that cannot be mapped to a backend key.
	ErrInvalidPath = errors.New("invalid path")
	// ErrInvalidName is returned when a single name contains a separator or is empty.
	ErrInvalidName = errors.New("invalid name")
)

const separator = "/"

// Normalize trims leading and trailing separators and validates every segment.
// The empty path (the root) is valid and normalizes to "".
func Normalize(p string) (string, error) {
	trimmed := strings.Trim(p, separator)
	if trimmed == "" {
		return "", nil
	}
	for _, seg := range strings.Split(trimmed, separator) {
		if err := checkSegment(seg); err != nil {
			return "", fmt.Errorf("%w: %q: %v", ErrInvalidPath, p, err)
		}
	}
	return trimmed, nil
}

// Resolve maps a virtual path below root to the escaped backend key.
// Each segment is escaped on its own so a "/" never appears inside one.
func Resolve(root, virtual string) (string, error) {
	r, err := Normalize(root)
	if err != nil {
		return "", err
	}
	v, err := Normalize(virtual)
	if err != nil {
		return "", err
	}
	joined := Join(r, v)
	if joined == "" {
		return "", nil
	}
	segs := strings.Split(joined, separator)
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return strings.Join(segs, separator), nil
}

// Unescape reverses Resolve's per-segment escaping.
func Unescape(key string) (string, error) {
	segs := strings.Split(key, separator)
	for i, seg := range segs {
		s, err := url.PathUnescape(seg)
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, key)
		}
		segs[i] = s
	}
	return strings.Join(segs, separator), nil
}

// Join concatenates non-empty parts with single separators.
func Join(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.Trim(p, separator); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, separator)
}

// Dir returns everything before the last segment, or "" at the top level.
func Dir(p string) string {
	p = strings.Trim(p, separator)
	if i := strings.LastIndex(p, separator); i >= 0 {
		return p[:i]
	}
	return ""
}

// Base returns the last segment.
func Base(p string) string {
	p = strings.Trim(p, separator)
	if i := strings.LastIndex(p, separator); i >= 0 {
		return p[i+1:]
	}
	return p
}

// Sibling returns the path of newName in the same directory as p.
func Sibling(p, newName string) (string, error) {
	if err := ValidateName(newName); err != nil {
		return "", err
	}
	return Join(Dir(p), newName), nil
}

// Rel returns p relative to base. p must be base itself or below it.
func Rel(base, p string) (string, error) {
	base = strings.Trim(base, separator)
	p = strings.Trim(p, separator)
	switch {
	case base == "":
		return p, nil
	case p == base:
		return "", nil
	case strings.HasPrefix(p, base+separator):
		return p[len(base)+1:], nil
	}
	return "", fmt.Errorf("%w: %q is not below %q", ErrInvalidPath, p, base)
}

// IsWithin reports whether p equals base or lies below it.
func IsWithin(base, p string) bool {
	_, err := Rel(base, p)
	return err == nil
}

// ValidateName checks a single path segment supplied by a user.
func ValidateName(name string) error {
	if strings.Contains(name, separator) {
		return fmt.Errorf("%w: %q contains %q", ErrInvalidName, name, separator)
	}
	if err := checkSegment(name); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidName, name, err)
	}
	return nil
}

func checkSegment(seg string) error {
	switch seg {
	case "":
		return errors.New("empty segment")
	case ".", "..":
		return errors.New("relative segment")
	}
	return nil
}
