package gemini

import (
	"compress/gzip"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"

	"github.com/andybalholm/brotli"
)

// newBrowserClient builds the per-attempt HTTP client. The cookie jar
// accumulates whatever the host sets during bootstrap and replays it on the
// chat transmission. No timeout is set on the client itself; every call is
// bounded by a per-operation context deadline.
func newBrowserClient() *http.Client {
	jar, _ := cookiejar.New(nil)
	return &http.Client{Jar: jar}
}

// applyNavigationHeaders mimics a Chrome top-level navigation. The host
// serves different markup to clients that do not look like a browser.
func (s *Service) applyNavigationHeaders(req *http.Request) {
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("sec-ch-ua", `"Google Chrome";v="131", "Chromium";v="131", "Not_A Brand";v="24"`)
	req.Header.Set("sec-ch-ua-mobile", "?0")
	req.Header.Set("sec-ch-ua-platform", `"Windows"`)
	req.Header.Set("sec-fetch-site", "none")
	req.Header.Set("sec-fetch-mode", "navigate")
	req.Header.Set("sec-fetch-dest", "document")
	req.Header.Set("upgrade-insecure-requests", "1")
	req.Header.Set("cache-control", "no-cache")
	req.Header.Set("pragma", "no-cache")
}

// applyChatHeaders mimics the same-origin XHR the web app issues for a chat
// turn. x-same-domain is the anti-CSRF marker the endpoint requires.
func (s *Service) applyChatHeaders(req *http.Request) {
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")
	req.Header.Set("x-same-domain", "1")
	req.Header.Set("origin", s.cfg.BaseURL)
	req.Header.Set("referer", s.cfg.BaseURL+"/")
	req.Header.Set("sec-ch-ua", `"Google Chrome";v="131", "Chromium";v="131", "Not_A Brand";v="24"`)
	req.Header.Set("sec-ch-ua-mobile", "?0")
	req.Header.Set("sec-ch-ua-platform", `"Windows"`)
	req.Header.Set("sec-fetch-site", "same-origin")
	req.Header.Set("sec-fetch-mode", "cors")
	req.Header.Set("sec-fetch-dest", "empty")
}

// decompressBody unwraps the response body according to Content-Encoding.
// Accept-Encoding is set manually on outbound requests, which disables the
// transport's automatic gzip handling, so decompression happens here.
func decompressBody(resp *http.Response) (io.ReadCloser, error) {
	switch encoding := resp.Header.Get("Content-Encoding"); encoding {
	case "br":
		return io.NopCloser(brotli.NewReader(resp.Body)), nil
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "":
		return resp.Body, nil
	default:
		// The raw body may still be readable text (e.g. an error page).
		log.Printf("[gemini] unsupported response encoding %q, reading raw body", encoding)
		return resp.Body, nil
	}
}
