package gemini

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/mirrorchat/gemini-bridge/internal/model/chat"
)

var (
	// ErrUploadURLMissing means the handshake response lacked the header that
	// carries the resumable upload target.
	ErrUploadURLMissing = errors.New("upload handshake response missing upload url header")
	// ErrNoMediaReference means the finalize response carried no recognizable
	// media reference.
	ErrNoMediaReference = errors.New("no media reference found in upload response")
)

// mediaReferencePattern mines the finalize response body the same way token
// extraction mines the landing page. The field name is inferred from
// observed Google upload responses and is not a stable contract.
var mediaReferencePattern = regexp.MustCompile(`"media_id":"([^"]+)"`)

// uploadImage performs the two-phase resumable upload: a handshake announcing
// the upload, then a single upload-and-finalize transfer of the raw bytes.
// The whole path is best-effort; callers must treat any error as "proceed
// without an image".
func (s *Service) uploadImage(ctx context.Context, client *http.Client, img *chat.ImageAttachment) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.UploadTimeout)
	defer cancel()

	uploadURL, err := s.startUpload(ctx, client, img)
	if err != nil {
		return "", err
	}
	return s.finalizeUpload(ctx, client, uploadURL, img.Data)
}

func (s *Service) startUpload(ctx context.Context, client *http.Client, img *chat.ImageAttachment) (string, error) {
	handshakeURL := fmt.Sprintf(
		"%s/upload/photomkt/img/1.0/internal/default/media?content_type=%s&protocolVersion=2.0&authuser=0&uploadType=multipart",
		s.cfg.UploadBaseURL, url.QueryEscape(img.MIMEType),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, handshakeURL, strings.NewReader(`{"protocolVersion":"2.0"}`))
	if err != nil {
		return "", fmt.Errorf("failed to build upload handshake request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("X-Goog-Upload-Command", "start")
	req.Header.Set("X-Goog-Upload-Protocol", "resumable")
	req.Header.Set("X-Goog-Upload-Header-Content-Length", strconv.Itoa(len(img.Data)))

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload handshake failed: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	uploadURL := resp.Header.Get("X-Goog-Upload-Url")
	if uploadURL == "" {
		return "", ErrUploadURLMissing
	}
	return uploadURL, nil
}

func (s *Service) finalizeUpload(ctx context.Context, client *http.Client, uploadURL string, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to build upload finalize request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("X-Goog-Upload-Command", "upload, finalize")
	req.Header.Set("X-Goog-Upload-Offset", "0")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload finalize failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("upload finalize returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read upload finalize response: %w", err)
	}

	if m := mediaReferencePattern.FindSubmatch(body); m != nil {
		return string(m[1]), nil
	}
	return "", ErrNoMediaReference
}
