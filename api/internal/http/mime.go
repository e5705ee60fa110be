package httpx

import (
	"mime"
	"path/filepath"
	"strings"
)

const defaultContentType = "application/octet-stream"

// MimeRule maps a path suffix to a content type. Matching is exact and case
// sensitive.
type MimeRule struct {
	Suffix      string
	ContentType string
}

// MimeResolver tries its rules in order and falls back to a generic resolver.
type MimeResolver struct {
	rules    []MimeRule
	fallback func(path string) string
}

// MediaRules are the media types browsers need to stream audio and video.
var MediaRules = []MimeRule{
	{Suffix: ".wav", ContentType: "audio/wav"},
	{Suffix: ".mp4", ContentType: "video/mp4"},
	{Suffix: ".m4v", ContentType: "video/mp4"},
}

func NewMimeResolver(fallback func(string) string, rules ...MimeRule) *MimeResolver {
	if fallback == nil {
		fallback = ExtensionType
	}
	return &MimeResolver{rules: rules, fallback: fallback}
}

// DefaultMimeResolver returns the resolver with MediaRules over ExtensionType.
func DefaultMimeResolver() *MimeResolver {
	return NewMimeResolver(ExtensionType, MediaRules...)
}

// Resolve returns the content type for path. It always returns a value.
func (m *MimeResolver) Resolve(path string) string {
	for _, rule := range m.rules {
		if strings.HasSuffix(path, rule.Suffix) {
			return rule.ContentType
		}
	}
	return m.fallback(path)
}

// ExtensionType guesses from the file extension using the system MIME table.
func ExtensionType(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return defaultContentType
}
