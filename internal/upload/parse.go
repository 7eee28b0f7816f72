package upload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const sniffBytes = 3072

var (
	ErrNotMultipart = errors.New("content type is not multipart/form-data")
	ErrFieldTooLong = errors.New("form field exceeds size limit")
)

// FileInfo describes one file part. Size is the decoded byte count.
type FileInfo struct {
	Field       string
	Filename    string
	ContentType string
	Size        int64
}

type Form struct {
	Fields map[string][]string
	Files  []FileInfo
}

// Value returns the first value of a text field.
func (f *Form) Value(name string) string {
	if v := f.Fields[name]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// IsMultipart reports whether contentType is multipart/form-data with a boundary.
func IsMultipart(contentType string) bool {
	mt, params, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "multipart/form-data" && params["boundary"] != ""
}

// Parse walks a multipart body without keeping file contents. raw is left
// untouched so the caller can forward it verbatim.
func Parse(raw []byte, contentType string, maxFieldBytes int64) (*Form, error) {
	return ParseReader(bytes.NewReader(raw), contentType, maxFieldBytes)
}

// ParseReader is Parse over a stream. File parts are read and discarded, so
// memory use is bounded by the field limit regardless of file sizes.
func ParseReader(body io.Reader, contentType string, maxFieldBytes int64) (*Form, error) {
	mt, params, err := mime.ParseMediaType(contentType)
	if err != nil || mt != "multipart/form-data" {
		return nil, ErrNotMultipart
	}
	boundary := params["boundary"]
	if boundary == "" {
		return nil, ErrNotMultipart
	}
	if maxFieldBytes <= 0 {
		maxFieldBytes = 1 << 20
	}

	form := &Form{Fields: map[string][]string{}}
	mr := multipart.NewReader(body, boundary)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return form, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read part: %w", err)
		}

		if part.FileName() == "" && !isFilePart(part) {
			val, err := readField(part, maxFieldBytes)
			_ = part.Close()
			if err != nil {
				return nil, err
			}
			name := part.FormName()
			form.Fields[name] = append(form.Fields[name], val)
			continue
		}

		info, err := inspectFile(part)
		_ = part.Close()
		if err != nil {
			return nil, err
		}
		form.Files = append(form.Files, info)
	}
}

// isFilePart catches file parts sent with filename="" (an empty file input).
func isFilePart(p *multipart.Part) bool {
	_, params, err := mime.ParseMediaType(p.Header.Get("Content-Disposition"))
	if err != nil {
		return false
	}
	_, ok := params["filename"]
	return ok
}

func readField(p *multipart.Part, limit int64) (string, error) {
	b, err := io.ReadAll(io.LimitReader(p, limit+1))
	if err != nil {
		return "", fmt.Errorf("read field %q: %w", p.FormName(), err)
	}
	if int64(len(b)) > limit {
		return "", fmt.Errorf("%w: %q", ErrFieldTooLong, p.FormName())
	}
	return string(b), nil
}

func inspectFile(p *multipart.Part) (FileInfo, error) {
	info := FileInfo{
		Field:       p.FormName(),
		Filename:    p.FileName(),
		ContentType: strings.TrimSpace(p.Header.Get("Content-Type")),
	}

	head := make([]byte, sniffBytes)
	n, err := io.ReadFull(p, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return FileInfo{}, fmt.Errorf("read file %q: %w", info.Filename, err)
	}
	rest, err := io.Copy(io.Discard, p)
	if err != nil {
		return FileInfo{}, fmt.Errorf("read file %q: %w", info.Filename, err)
	}
	info.Size = int64(n) + rest

	if info.ContentType == "" && n > 0 {
		info.ContentType = mimetype.Detect(head[:n]).String()
	}
	return info, nil
}
