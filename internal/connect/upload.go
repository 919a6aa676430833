package connect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
)

// pathUpload is followed by the lowercase file extension without the dot.
const pathUpload = "/proxy/upload-service-1.1/json/upload/"

// uploadField is the multipart form field carrying the file.
const uploadField = "data"

// UploadFile is one file ready for transport. Name must already be ASCII.
type UploadFile struct {
	Name      string
	Extension string // lowercase, no leading dot
	Content   io.Reader
}

type uploadResponse struct {
	DetailedImportResult importResult `json:"detailedImportResult"`
}

type importResult struct {
	Successes []importEntry `json:"successes"`
	Failures  []importEntry `json:"failures"`
}

type importEntry struct {
	InternalID int64           `json:"internalId"`
	Messages   []importMessage `json:"messages"`
}

type importMessage struct {
	Code    int    `json:"code"`
	Content string `json:"content"`
}

// Upload posts one activity file. A transport or HTTP error is returned as
// an error; a response the service rejected is a Failed outcome with a nil error.
func (s *Session) Upload(ctx context.Context, f UploadFile) (UploadOutcome, error) {
	c := s.client

	body, contentType, err := multipartBody(f)
	if err != nil {
		return UploadOutcome{}, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.connectEndpoint(pathUpload+f.Extension), body)
	if err != nil {
		return UploadOutcome{}, fmt.Errorf("connect: %w", err)
	}

	req.Header.Set("Content-Type", contentType)

	c.logger.Info("uploading activity",
		slog.String("name", f.Name),
		slog.String("extension", f.Extension),
		slog.Int("bytes", body.Len()),
	)

	resp, err := c.do(req)
	if err != nil {
		return UploadOutcome{}, err
	}

	// Duplicates come back as 409 on some service versions, with the same body.
	if !isSuccess(resp.StatusCode) && resp.StatusCode != http.StatusConflict {
		return UploadOutcome{}, statusError(resp)
	}

	raw, err := readBody(resp)
	if err != nil {
		return UploadOutcome{}, err
	}

	var ur uploadResponse
	if err := json.Unmarshal(raw, &ur); err != nil {
		return UploadOutcome{}, fmt.Errorf("connect: decoding upload response: %w", err)
	}

	return c.interpretImport(f.Name, ur.DetailedImportResult), nil
}

func multipartBody(f UploadFile) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer

	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile(uploadField, f.Name)
	if err != nil {
		return nil, "", fmt.Errorf("connect: creating multipart field: %w", err)
	}

	if _, err := io.Copy(part, f.Content); err != nil {
		return nil, "", fmt.Errorf("connect: reading %s: %w", f.Name, err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("connect: closing multipart body: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}

// interpretImport maps the import result to an outcome. The duplicate code is
// undocumented, so any other failure code is logged with its raw payload.
func (c *Client) interpretImport(name string, res importResult) UploadOutcome {
	if len(res.Successes) > 0 {
		return Created(res.Successes[0].InternalID)
	}

	if len(res.Failures) == 0 {
		return Failed("unknown error: empty import result")
	}

	first := res.Failures[0]

	for _, m := range first.Messages {
		if m.Code == c.duplicateCode {
			return AlreadyExists(first.InternalID)
		}
	}

	rawFailure, _ := json.Marshal(first) //nolint:errchkjson // diagnostic only
	c.logger.Warn("upload rejected with unrecognized failure",
		slog.String("name", name),
		slog.String("payload", string(rawFailure)),
	)

	return Failed(failureReason(first.Messages))
}

func failureReason(msgs []importMessage) string {
	if len(msgs) == 0 {
		return "rejected without message"
	}

	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Content != "" {
			parts = append(parts, fmt.Sprintf("%d: %s", m.Code, m.Content))
		} else {
			parts = append(parts, fmt.Sprintf("code %d", m.Code))
		}
	}

	return strings.Join(parts, "; ")
}
