package gemini

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mirrorchat/gemini-bridge/internal/config"
	"github.com/mirrorchat/gemini-bridge/internal/model/chat"
)

const modelName = "gemini"

const chatEndpointPath = "/_/BardChatUi/data/assistant.lamda.BardFrontendService/StreamGenerate"

// Service bridges chat requests to the Gemini web application. It holds
// configuration only; every Ask call derives a fresh session and shares
// nothing with concurrent calls, so a single Service is safe for concurrent
// use without locking.
type Service struct {
	cfg config.GeminiConfig
}

// NewService creates the bridge service.
func NewService(cfg config.GeminiConfig) *Service {
	return &Service{cfg: cfg}
}

// Ask performs one full chat attempt: bootstrap a session, optionally upload
// the image, encode and transmit the payload, and decode the streaming reply.
// Failures surface as a Result with Success=false; nothing panics or escapes.
func (s *Service) Ask(ctx context.Context, req chat.Request) chat.Result {
	start := time.Now()

	client := newBrowserClient()

	session, err := s.bootstrapSession(ctx, client)
	if err != nil {
		log.Printf("[gemini] session bootstrap failed: %v", err)
		return chat.Result{Success: false, Error: "Failed to establish session with Gemini"}
	}

	mediaRef := ""
	if req.Image != nil && s.cfg.UploadEnabled {
		ref, err := s.uploadImage(ctx, client, req.Image)
		if err != nil {
			// Non-fatal: the request proceeds text-only.
			log.Printf("[upload] image upload failed, falling back to text-only: %v", err)
		} else {
			mediaRef = ref
		}
	}

	form, err := encodeForm(payloadInput{
		Prompt:       req.Prompt,
		Token:        session.Token,
		Locale:       s.cfg.Locale,
		MediaRef:     mediaRef,
		SessionToken: newSessionToken(),
		RequestUUID:  newRequestUUID(),
	})
	if err != nil {
		return chat.Result{Success: false, Error: err.Error()}
	}

	body, err := s.transmit(ctx, client, session, form)
	if err != nil {
		return chat.Result{Success: false, Error: err.Error()}
	}

	text, ok := decodeStream(body)
	if !ok {
		return chat.Result{Success: false, Error: "No response received from Gemini"}
	}

	elapsed := time.Since(start)
	log.Printf("[gemini] answered in %.2fs (%d chars)", elapsed.Seconds(), len(text))

	return chat.Result{
		Success:  true,
		Response: text,
		Metadata: &chat.Metadata{
			ResponseTime:   fmt.Sprintf("%.2fs", elapsed.Seconds()),
			Timestamp:      time.Now().UTC().Format(time.RFC3339),
			Model:          modelName,
			CharacterCount: len(text),
			WordCount:      len(strings.Fields(text)),
		},
	}
}

// transmit POSTs the encoded payload to the versioned chat endpoint and
// returns the raw streaming body. The client's jar replays the cookies
// captured during bootstrap.
func (s *Service) transmit(ctx context.Context, client *http.Client, session *chat.Session, form url.Values) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ChatTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s%s?bl=%s&f.sid=%s&hl=%s&_reqid=%d&rt=c",
		s.cfg.BaseURL, chatEndpointPath,
		url.QueryEscape(session.BuildLabel),
		url.QueryEscape(session.SessionID),
		url.QueryEscape(s.cfg.Locale),
		session.RequestID,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build chat request: %w", err)
	}
	s.applyChatHeaders(req)

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := decompressBody(resp)
	if err != nil {
		return "", fmt.Errorf("failed to decompress chat response: %w", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("failed to read chat response: %w", err)
	}
	return string(data), nil
}
