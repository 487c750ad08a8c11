// Package image models image references: inline data URLs or remote URLs.
package image

import "strings"

// Ref is an image reference, either a data URL ("data:image/png;base64,....") or a remote URL.
type Ref string

// IsEmpty reports whether the reference is unset.
func (r Ref) IsEmpty() bool { return strings.TrimSpace(string(r)) == "" }

// IsDataURL reports whether the reference carries its bytes inline.
func (r Ref) IsDataURL() bool { return strings.HasPrefix(string(r), "data:") }

// Payload returns the encoded bytes after the metadata prefix, or the whole
// reference when there is no prefix.
func (r Ref) Payload() string {
	s := string(r)
	if _, after, ok := strings.Cut(s, ","); ok {
		return after
	}
	return s
}

// MediaType returns the MIME type of a data URL, or "" for remote URLs.
func (r Ref) MediaType() string {
	if !r.IsDataURL() {
		return ""
	}
	meta, _, _ := strings.Cut(strings.TrimPrefix(string(r), "data:"), ",")
	mt, _, _ := strings.Cut(meta, ";")
	return mt
}

// SameImage reports whether a and b refer to the same image: identical
// references or identical non-empty payloads.
func SameImage(a, b Ref) bool {
	if a.IsEmpty() || b.IsEmpty() {
		return false
	}
	if a == b {
		return true
	}
	pa, pb := a.Payload(), b.Payload()
	return pa != "" && pa == pb
}
