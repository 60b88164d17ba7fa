package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path"
	"time"
)

var ErrUploadRejected = errors.New("storage: upload service rejected the file")

// RemoteStore forwards images to a third-party upload service that accepts
// a multipart "file" field and answers with {"url": "..."}.
type RemoteStore struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewRemoteStore returns a store posting to endpoint. A nil client gets a
// 30 second timeout.
func NewRemoteStore(endpoint, apiKey string, client *http.Client) *RemoteStore {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &RemoteStore{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   client,
	}
}

type uploadResponse struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

func (s *RemoteStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if err = w.WriteField("key", cleanKey); err != nil {
		return "", fmt.Errorf("w.WriteField -> %w", err)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, path.Base(cleanKey)))
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("w.CreatePart -> %w", err)
	}
	if _, err = part.Write(data); err != nil {
		return "", fmt.Errorf("part.Write -> %w", err)
	}
	if err = w.Close(); err != nil {
		return "", fmt.Errorf("w.Close -> %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, body)
	if err != nil {
		return "", fmt.Errorf("http.NewRequestWithContext -> %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("s.client.Do -> %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("io.ReadAll -> %w", err)
	}

	var out uploadResponse
	_ = json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := out.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", fmt.Errorf("%w: %d %s", ErrUploadRejected, resp.StatusCode, msg)
	}
	if out.URL == "" {
		return "", fmt.Errorf("%w: response has no url", ErrUploadRejected)
	}

	return out.URL, nil
}
