package upload

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type part struct {
	field, filename, contentType string
	body                         []byte
}

func buildMultipart(t *testing.T, fields map[string]string, files ...part) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.field, f.filename))
		if f.contentType != "" {
			h.Set("Content-Type", f.contentType)
		}
		pw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = pw.Write(f.body)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes(), w.FormDataContentType()
}

func TestParse_FieldsAndFiles(t *testing.T) {
	raw, ct := buildMultipart(t, map[string]string{"project_id": "42"},
		part{"file", "demo.zip", "application/zip", bytes.Repeat([]byte("z"), 5000)},
	)
	original := append([]byte(nil), raw...)

	form, err := Parse(raw, ct, 0)
	require.NoError(t, err)
	assert.Equal(t, "42", form.Value("project_id"))
	require.Len(t, form.Files, 1)
	assert.Equal(t, FileInfo{Field: "file", Filename: "demo.zip", ContentType: "application/zip", Size: 5000}, form.Files[0])
	assert.Equal(t, original, raw)
}

func TestParse_SniffsUntypedParts(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	raw, ct := buildMultipart(t, nil, part{"avatar", "me.png", "", png})

	form, err := Parse(raw, ct, 0)
	require.NoError(t, err)
	require.Len(t, form.Files, 1)
	assert.Equal(t, "image/png", form.Files[0].ContentType)
}

func TestParse_RejectsNonMultipart(t *testing.T) {
	_, err := Parse([]byte(`{}`), "application/json", 0)
	assert.ErrorIs(t, err, ErrNotMultipart)
	_, err = Parse(nil, "multipart/form-data", 0)
	assert.ErrorIs(t, err, ErrNotMultipart)
}

func TestParse_FieldLimit(t *testing.T) {
	raw, ct := buildMultipart(t, map[string]string{"notes": "0123456789"})
	_, err := Parse(raw, ct, 4)
	assert.ErrorIs(t, err, ErrFieldTooLong)
}

func TestIsMultipart(t *testing.T) {
	assert.True(t, IsMultipart("multipart/form-data; boundary=abc"))
	assert.False(t, IsMultipart("multipart/form-data"))
	assert.False(t, IsMultipart("application/x-www-form-urlencoded"))
	assert.False(t, IsMultipart(""))
}

func TestValidate_CollectsEveryViolation(t *testing.T) {
	rules := ProjectRules(100)
	files := []FileInfo{
		{Filename: "ok.pdf", ContentType: "application/pdf", Size: 10},
		{Filename: "huge.zip", ContentType: "application/zip", Size: 101},
		{Filename: "tool.exe", ContentType: "application/x-msdownload", Size: 500},
	}

	got := Validate(files, rules)
	require.Len(t, got, 4)
	assert.Equal(t, []string{
		`File "huge.zip" is too large (101 bytes, max 100 bytes)`,
		`File "tool.exe" is too large (500 bytes, max 100 bytes)`,
		`File "tool.exe" has disallowed MIME type: application/x-msdownload`,
		`File "tool.exe" has disallowed extension`,
	}, Messages(got))
	assert.Equal(t, ViolationExtension, got[3].Kind)
}

func TestValidate_ProjectRules(t *testing.T) {
	rules := ProjectRules(0)
	assert.Equal(t, int64(10<<20), rules.MaxBytes)

	ok := []FileInfo{
		{Filename: "a.ZIP", ContentType: "application/x-zip-compressed", Size: 1},
		{Filename: "b.png", ContentType: "image/png", Size: 10 << 20},
	}
	assert.Empty(t, Validate(ok, rules))
	assert.Len(t, Validate([]FileInfo{{Filename: "c.png", ContentType: "image/png", Size: 10<<20 + 1}}, rules), 1)
}

func TestValidate_AvatarRulesAcceptImageFamily(t *testing.T) {
	rules := AvatarRules(0)
	assert.Empty(t, Validate([]FileInfo{{Filename: "me.webp", ContentType: "image/webp", Size: 1024}}, rules))

	got := Validate([]FileInfo{{Filename: "me.pdf", ContentType: "application/pdf", Size: 3 << 20}}, rules)
	kinds := []ViolationKind{}
	for _, v := range got {
		kinds = append(kinds, v.Kind)
	}
	assert.Equal(t, []ViolationKind{ViolationSize, ViolationMIME, ViolationExtension}, kinds)
}

func TestValidate_UnnamedFile(t *testing.T) {
	got := Validate([]FileInfo{{Size: 200}}, ProjectRules(100))
	require.Len(t, got, 1)
	assert.Equal(t, "unnamed", got[0].File)
}

func TestParseReader_SizesLargeFilesWithoutRetainingThem(t *testing.T) {
	raw, ct := buildMultipart(t, map[string]string{"project_id": "9"},
		part{"file", "big.exe", "application/x-msdownload", bytes.Repeat([]byte{0}, 3<<20)},
	)

	form, err := ParseReader(bytes.NewReader(raw), ct, 0)
	require.NoError(t, err)
	require.Len(t, form.Files, 1)
	assert.Equal(t, int64(3<<20), form.Files[0].Size)
	assert.Equal(t, "9", form.Value("project_id"))
}
