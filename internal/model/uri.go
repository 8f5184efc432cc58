package model

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultNS is assumed when an address has no explicit namespace prefix.
const DefaultNS = "core"

var (
	uriPattern  = regexp.MustCompile(`^([a-zA-Z_][a-zA-Z0-9_]*)://(.*)$`)
	namePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// ParseURI splits "ns://path/to/node" into (ns, path). Bare paths without a
// prefix fall back to DefaultNS. The path may be empty (namespace root).
func ParseURI(uri string) (ns, path string) {
	uri = strings.TrimSpace(uri)
	if m := uriPattern.FindStringSubmatch(uri); m != nil {
		return strings.ToLower(m[1]), strings.Trim(m[2], "/")
	}
	return DefaultNS, strings.Trim(uri, "/")
}

// MakeURI formats a (ns, path) pair as a full address.
func MakeURI(ns, path string) string {
	return fmt.Sprintf("%s://%s", ns, path)
}

// ValidName reports whether s is usable as a path segment: alphanumerics,
// underscores, and hyphens only. Slashes in particular would silently create
// phantom hierarchy levels.
func ValidName(s string) bool {
	return namePattern.MatchString(s)
}

// ParentOf returns the parent path of p, or "" for a top-level path.
func ParentOf(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[:i]
	}
	return ""
}

// BaseOf returns the last segment of p.
func BaseOf(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}
