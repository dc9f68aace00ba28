package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/morezero/apiclient/pkg/transport"
)

const fileLogPrefix = "api:file"

type UploadResult struct {
	URL      string `json:"url"`
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
}

// FileService uploads files as multipart forms. Uploads are binary bodies,
// so concurrent uploads to the same URL never cancel each other.
type FileService struct {
	c *transport.Client
}

// Upload sends content as the "file" form field named fileName.
func (s *FileService) Upload(ctx context.Context, fileName string, content io.Reader, opts ...transport.RequestOption) (*UploadResult, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to create form file: %w", fileLogPrefix, err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("%s - failed to read %s: %w", fileLogPrefix, fileName, err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("%s - failed to close form: %w", fileLogPrefix, err)
	}

	opts = append([]transport.RequestOption{transport.WithHeader("Content-Type", form.FormDataContentType())}, opts...)
	res, err := transport.Do[UploadResult](ctx, s.c, transport.NewRequest(http.MethodPost, PathUpload, &body, opts...))
	if err != nil {
		return nil, err
	}
	return &res, nil
}
