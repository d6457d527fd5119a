package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mirrorchat/gemini-bridge/internal/model/chat"
)

// ErrNoSecurityToken means no extraction strategy found an anti-forgery token
// in the landing page. Without it the host rejects every chat request, so
// bootstrap failure is fatal for the attempt.
var ErrNoSecurityToken = errors.New("no security token found in landing page")

// tokenPatterns lists, in priority order, every key name the host has
// historically used for the anti-forgery token, plus generic catch-alls.
// The first pattern whose capture clears minTokenLength wins.
var tokenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)"SNlM0e":"([^"]+)"`),
	regexp.MustCompile(`(?i)'SNlM0e':'([^']+)'`),
	regexp.MustCompile(`(?i)SNlM0e["']?\s*[:=]\s*["']([^"']+)["']`),
	regexp.MustCompile(`(?i)"FdrFJe":"([^"]+)"`),
	regexp.MustCompile(`(?i)'FdrFJe':'([^']+)'`),
	regexp.MustCompile(`(?i)FdrFJe["']?\s*[:=]\s*["']([^"']+)["']`),
	regexp.MustCompile(`(?i)"cfb2h":"([^"]+)"`),
	regexp.MustCompile(`(?i)'cfb2h':'([^']+)'`),
	regexp.MustCompile(`(?i)cfb2h["']?\s*[:=]\s*["']([^"']+)["']`),
	regexp.MustCompile(`(?i)at["']?\s*[:=]\s*["']([^"']{50,})["']`),
	regexp.MustCompile(`(?i)"at":"([^"]+)"`),
	regexp.MustCompile(`(?i)"token":"([^"]+)"`),
	regexp.MustCompile(`(?i)data-token["']?\s*=\s*["']([^"']+)["']`),
}

const (
	// Guards against short coincidental matches of the generic patterns.
	minTokenLength = 20
	// Minimum length for string values pulled out of embedded JSON blobs.
	minJSONTokenLength = 50
)

// extractToken runs the ordered pattern list against the whole document.
func extractToken(html string) (string, bool) {
	for _, pattern := range tokenPatterns {
		if m := pattern.FindStringSubmatch(html); m != nil && len(m[1]) > minTokenLength {
			return m[1], true
		}
	}
	return "", false
}

// scriptJSONPatterns find brace-delimited JSON-looking substrings inside
// inline script blocks that mention a token-ish key.
var scriptJSONPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\{[^}]*"[^"]*token[^"]*"[^}]*\}`),
	regexp.MustCompile(`(?i)\{[^}]*SNlM0e[^}]*\}`),
	regexp.MustCompile(`(?i)\{[^}]*FdrFJe[^}]*\}`),
}

// extractTokenFromScripts is the fallback strategy: walk every inline script
// block, re-run the pattern list against blocks that mention a known key
// name, then try to parse embedded JSON fragments and take the first
// sufficiently long string value.
func extractTokenFromScripts(html string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}

	var token string
	doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		content := sel.Text()
		if content == "" {
			return true
		}

		if strings.Contains(content, "SNlM0e") || strings.Contains(content, "FdrFJe") {
			if t, ok := extractToken(content); ok {
				token = t
				return false
			}
		}

		for _, pattern := range scriptJSONPatterns {
			for _, fragment := range pattern.FindAllString(content, -1) {
				var obj map[string]any
				if err := json.Unmarshal([]byte(fragment), &obj); err != nil {
					continue
				}
				keys := make([]string, 0, len(obj))
				for key := range obj {
					keys = append(keys, key)
				}
				sort.Strings(keys)
				for _, key := range keys {
					if value, ok := obj[key].(string); ok && len(value) > minJSONTokenLength {
						token = value
						return false
					}
				}
			}
		}
		return true
	})

	return token, token != ""
}

// Routing parameter patterns. These are non-fatal: a miss falls back to a
// documented default because they affect routing and versioning only.
var (
	buildLabelPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)bl["']?\s*[:=]\s*["']([^"']+)["']`),
		regexp.MustCompile(`(?i)"bl":"([^"]+)"`),
		regexp.MustCompile(`(?i)buildLabel["']?\s*[:=]\s*["']([^"']+)["']`),
		regexp.MustCompile(`(?i)boq[_-]assistant[^"']*_(\d+\.\d+[^"']*)`),
		regexp.MustCompile(`(?i)/_/BardChatUi.*?bl=([^&"']+)`),
	}
	sessionIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)f\.sid["']?\s*[:=]\s*["']?([^"'&\s]+)`),
		regexp.MustCompile(`(?i)"fsid":"([^"]+)"`),
		regexp.MustCompile(`(?i)f\.sid=([^&"']+)`),
		regexp.MustCompile(`(?i)sessionId["']?\s*[:=]\s*["']([^"']+)["']`),
	}
	requestIDPattern = regexp.MustCompile(`_reqid["']?\s*[:=]\s*["']?(\d+)`)
)

func firstMatch(patterns []*regexp.Regexp, html string) (string, bool) {
	for _, pattern := range patterns {
		if m := pattern.FindStringSubmatch(html); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// extractRoutingParams mines the build label, session-routing id, and
// request sequence id, substituting synthetic defaults for anything missing.
func (s *Service) extractRoutingParams(html string) (buildLabel, sessionID string, requestID int) {
	buildLabel, ok := firstMatch(buildLabelPatterns, html)
	if !ok {
		buildLabel = s.cfg.BuildLabel
	}

	sessionID, ok = firstMatch(sessionIDPatterns, html)
	if !ok {
		sessionID = strconv.FormatInt(-time.Now().UnixMilli(), 10)
	}

	requestID = int(time.Now().UnixMilli() % 1000000)
	if m := requestIDPattern.FindStringSubmatch(html); m != nil {
		if parsed, err := strconv.Atoi(m[1]); err == nil {
			requestID = parsed
		}
	}

	return buildLabel, sessionID, requestID
}

// bootstrapSession fetches the landing page and mines it for the security
// token, routing parameters, and cookies. The returned session is owned by a
// single chat attempt.
func (s *Service) bootstrapSession(ctx context.Context, client *http.Client) (*chat.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.BootstrapTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+"/app", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build landing page request: %w", err)
	}
	s.applyNavigationHeaders(req)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("landing page fetch failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := decompressBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress landing page: %w", err)
	}
	defer body.Close()

	htmlBytes, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read landing page: %w", err)
	}
	html := string(htmlBytes)

	token, ok := extractToken(html)
	if !ok {
		token, ok = extractTokenFromScripts(html)
	}
	if !ok {
		return nil, ErrNoSecurityToken
	}

	buildLabel, sessionID, requestID := s.extractRoutingParams(html)

	var cookies []*http.Cookie
	if base, err := url.Parse(s.cfg.BaseURL); err == nil && client.Jar != nil {
		cookies = client.Jar.Cookies(base)
	}

	return &chat.Session{
		Cookies:    cookies,
		Token:      token,
		BuildLabel: buildLabel,
		SessionID:  sessionID,
		RequestID:  requestID,
		HTML:       html,
	}, nil
}
