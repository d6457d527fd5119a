package chat

import "net/http"

// Session holds the artifacts mined from one landing-page fetch: the
// anti-forgery token, routing parameters, and the cookies the host set.
// A Session serves exactly one chat attempt and is discarded afterwards;
// concurrent attempts never share one.
type Session struct {
	Cookies    []*http.Cookie
	Token      string
	BuildLabel string
	SessionID  string
	RequestID  int
	HTML       string
}
