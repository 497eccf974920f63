package filetypes

import (
	"embed"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

// Registry answers which uploads are accepted. It is read-only after Parse.
type Registry struct {
	types  []FileType
	byMime map[string]*FileType
	byExt  map[string]*FileType
}

// NewRegistry creates a registry from the embedded YAML file
func NewRegistry() (*Registry, error) {
	data, err := configFiles.ReadFile("config/filetypes.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read filetypes.yaml: %w", err)
	}
	return Parse(data)
}

// Parse builds a registry from YAML
func Parse(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal file types: %w", err)
	}

	r := &Registry{
		types:  file.Types,
		byMime: make(map[string]*FileType),
		byExt:  make(map[string]*FileType),
	}
	for i := range r.types {
		t := &r.types[i]
		if t.ID == "" {
			return nil, fmt.Errorf("file type %d has no id", i)
		}
		for _, m := range t.MimeTypes {
			r.byMime[strings.ToLower(m)] = t
		}
		for _, e := range t.Extensions {
			r.byExt[strings.ToLower(strings.TrimPrefix(e, "."))] = t
		}
	}
	return r, nil
}

// Lookup returns the accepted type for a MIME type or file name, MIME first
func (r *Registry) Lookup(mimeType, fileName string) (*FileType, bool) {
	if t, ok := r.byMime[normalizeMime(mimeType)]; ok {
		return t, true
	}
	if ext := Extension(fileName); ext != "" {
		if t, ok := r.byExt[ext]; ok {
			return t, true
		}
	}
	return nil, false
}

// Allowed reports whether an upload is accepted
func (r *Registry) Allowed(mimeType, fileName string) bool {
	_, ok := r.Lookup(mimeType, fileName)
	return ok
}

// Describe lists the accepted extensions for error messages, e.g. "JPG, PNG, PDF"
func (r *Registry) Describe() string {
	var names []string
	seen := make(map[string]bool)
	for _, t := range r.types {
		for _, e := range t.Extensions {
			e = strings.ToUpper(e)
			if e == "JPEG" || seen[e] {
				continue
			}
			seen[e] = true
			names = append(names, e)
		}
	}
	return strings.Join(names, ", ")
}

// Extension returns the lower-cased extension without the dot
func Extension(fileName string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(fileName), "."))
}

// normalizeMime drops parameters such as "; charset=utf-8"
func normalizeMime(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
