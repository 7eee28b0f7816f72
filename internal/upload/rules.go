package upload

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// Rules bound what a single uploaded file may be.
type Rules struct {
	MaxBytes int64
	// AllowedMIME is an exact-match list; MIMEPrefixes matches families such as "image/".
	AllowedMIME  []string
	MIMEPrefixes []string
	AllowedExt   []string
}

// ProjectRules returns the rules for project version submissions.
func ProjectRules(maxBytes int64) Rules {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return Rules{
		MaxBytes:    maxBytes,
		AllowedMIME: []string{"application/zip", "application/x-zip-compressed", "application/pdf", "image/png"},
		AllowedExt:  []string{".zip", ".pdf", ".png"},
	}
}

// AvatarRules returns the rules for profile pictures.
func AvatarRules(maxBytes int64) Rules {
	if maxBytes <= 0 {
		maxBytes = 2 << 20
	}
	return Rules{
		MaxBytes:     maxBytes,
		MIMEPrefixes: []string{"image/"},
		AllowedExt:   []string{".png", ".jpg", ".jpeg", ".gif", ".webp"},
	}
}

func (r Rules) mimeAllowed(mt string) bool {
	mt = strings.ToLower(strings.TrimSpace(mt))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if slices.Contains(r.AllowedMIME, mt) {
		return true
	}
	for _, p := range r.MIMEPrefixes {
		if strings.HasPrefix(mt, p) {
			return true
		}
	}
	return false
}

func (r Rules) extAllowed(name string) bool {
	return slices.Contains(r.AllowedExt, strings.ToLower(filepath.Ext(name)))
}

type ViolationKind string

const (
	ViolationSize      ViolationKind = "size"
	ViolationMIME      ViolationKind = "mime"
	ViolationExtension ViolationKind = "extension"
)

type Violation struct {
	File    string        `json:"file"`
	Kind    ViolationKind `json:"kind"`
	Message string        `json:"message"`
}

// Validate checks every file against every rule and returns all
// violations found, in file order.
func Validate(files []FileInfo, rules Rules) []Violation {
	var out []Violation
	for _, f := range files {
		name := f.Filename
		if name == "" {
			name = "unnamed"
		}
		if rules.MaxBytes > 0 && f.Size > rules.MaxBytes {
			out = append(out, Violation{
				File:    name,
				Kind:    ViolationSize,
				Message: fmt.Sprintf("File %q is too large (%d bytes, max %d bytes)", name, f.Size, rules.MaxBytes),
			})
		}
		if f.ContentType != "" && !rules.mimeAllowed(f.ContentType) {
			out = append(out, Violation{
				File:    name,
				Kind:    ViolationMIME,
				Message: fmt.Sprintf("File %q has disallowed MIME type: %s", name, f.ContentType),
			})
		}
		if f.Filename != "" && !rules.extAllowed(f.Filename) {
			out = append(out, Violation{
				File:    name,
				Kind:    ViolationExtension,
				Message: fmt.Sprintf("File %q has disallowed extension", name),
			})
		}
	}
	return out
}

// Messages flattens violations for the JSON details array.
func Messages(vs []Violation) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Message
	}
	return out
}
