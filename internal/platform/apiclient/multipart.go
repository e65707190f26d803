package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/textproto"
)

// File is one uploaded attachment.
type File struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// Multipart is a file-bearing request body. Fields keep insertion order.
type Multipart struct {
	fields [][2]string
	files  []File
}

// Field appends a text field.
func (m *Multipart) Field(name, value string) *Multipart {
	m.fields = append(m.fields, [2]string{name, value})
	return m
}

// File appends a file part.
func (m *Multipart) File(f File) *Multipart {
	m.files = append(m.files, f)
	return m
}

func (m *Multipart) encode() (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for _, f := range m.fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	for _, f := range m.files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.Name))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

// PostMultipart issues a multipart/form-data POST.
func (c *Client) PostMultipart(ctx context.Context, path string, body *Multipart, out any) error {
	buf, ct, err := body.encode()
	if err != nil {
		return fmt.Errorf("encode multipart body: %w", err)
	}
	return c.do(ctx, "POST", path, nil, buf, ct, out)
}
