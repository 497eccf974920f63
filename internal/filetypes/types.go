package filetypes

import "strings"

// FileType is one accepted upload type
type FileType struct {
	ID          string   `yaml:"id" json:"id"`
	DisplayName string   `yaml:"display_name" json:"displayName"`
	MimeTypes   []string `yaml:"mime_types" json:"mimeTypes"`
	Extensions  []string `yaml:"extensions" json:"extensions"`

	// Inline types can be shown in the browser rather than downloaded
	Inline bool `yaml:"inline" json:"inline"`

	// CanonicalMimeType replaces the declared type when set (exported formats)
	CanonicalMimeType string `yaml:"canonical_mime_type" json:"canonicalMimeType,omitempty"`
}

// StoredMimeType returns the MIME type a file of this type is saved with
func (t *FileType) StoredMimeType(declared string) string {
	if t.CanonicalMimeType != "" {
		return t.CanonicalMimeType
	}
	for _, m := range t.MimeTypes {
		if strings.EqualFold(m, normalizeMime(declared)) {
			return m
		}
	}
	if len(t.MimeTypes) > 0 {
		return t.MimeTypes[0]
	}
	return "application/octet-stream"
}

type registryFile struct {
	Types []FileType `yaml:"types"`
}
