// Package proxy forwards inbound requests to downstream application
// services with header rewriting and content-type-aware body handling.
package proxy

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/numgate/numgate-server/internal/auth"
)

// forwardHeaders is the allow-list of inbound headers copied to the
// outbound request. Everything else is dropped so unrelated headers never
// leak to downstream backends. Accept-Encoding is deliberately absent: the
// transport negotiates compression itself so response bodies arrive decoded.
var forwardHeaders = []string{
	"authorization",
	"content-type",
	"user-agent",
	"accept",
	"accept-language",
	"cookie",
	auth.HeaderTenantID,
	auth.HeaderUserID,
	auth.HeaderUserEmail,
	auth.HeaderUserRole,
	auth.HeaderIsSuperAdmin,
	auth.HeaderPlatformMode,
}

// stripHeaders is the deny-list of origin response headers removed before
// relaying: hop-by-hop and transport framing headers plus the framework
// identification header.
var stripHeaders = []string{
	"content-encoding",
	"content-length",
	"transfer-encoding",
	"connection",
	"upgrade",
	"x-powered-by",
}

// Engine forwards requests to downstream origins. One outbound call per
// inbound request, no retry: downstream apps carry their own resilience.
type Engine struct {
	client *http.Client
}

// NewEngine creates a proxy engine with an explicit outbound timeout
func NewEngine(timeout time.Duration) *Engine {
	return &Engine{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Forward proxies the inbound request to targetBase joined with extraPath,
// relaying the origin response. mountPath, when non-empty, is the public
// prefix substituted into relative links in HTML responses so they route
// back through the gateway. Network faults surface as a structured 500; they
// never propagate.
func (e *Engine) Forward(w http.ResponseWriter, r *http.Request, targetBase, mountPath string, extraPath ...string) {
	targetURL := buildTargetURL(targetBase, r.URL.RawQuery, extraPath)

	out, err := e.buildRequest(r, targetURL)
	if err != nil {
		log.Error().Err(err).Str("target", targetURL).Msg("Failed to build proxy request")
		respondProxyError(w)
		return
	}

	resp, err := e.client.Do(out)
	if err != nil {
		log.Error().Err(err).
			Str("target", targetURL).
			Str("method", r.Method).
			Msg("Proxy request failed")
		respondProxyError(w)
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error().Err(err).Str("target", targetURL).Msg("Failed to read origin response")
		respondProxyError(w)
		return
	}

	copyResponseHeaders(w.Header(), resp.Header)

	contentType := resp.Header.Get("Content-Type")
	if mountPath != "" && strings.HasPrefix(contentType, "text/html") {
		body = RewriteHTMLLinks(body, mountPath)
	}

	// Origin status is preserved verbatim.
	w.WriteHeader(resp.StatusCode)
	w.Write(body)
}

// buildRequest builds the outbound request: allow-listed headers, identity
// stamp, forwarded-host/proto, and the raw body for methods that carry one.
func (e *Engine) buildRequest(r *http.Request, targetURL string) (*http.Request, error) {
	var body io.Reader
	if r.Method != http.MethodGet && r.Method != http.MethodHead && r.Body != nil {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		// An empty buffer must not force a body onto the request.
		if len(raw) > 0 {
			body = bytes.NewReader(raw)
		}
	}

	out, err := http.NewRequestWithContext(r.Context(), r.Method, targetURL, body)
	if err != nil {
		return nil, err
	}

	for _, name := range forwardHeaders {
		if v := r.Header.Get(name); v != "" {
			out.Header.Set(name, v)
		}
	}

	out.Header.Set("x-proxied-by", "numgate")
	out.Header.Set("x-forwarded-host", r.Host)
	out.Header.Set("x-forwarded-proto", forwardedProto(r))

	return out, nil
}

// buildTargetURL joins the base URL, extra path segments and the original
// query string verbatim.
func buildTargetURL(base, rawQuery string, extraPath []string) string {
	target := strings.TrimSuffix(base, "/")
	for _, seg := range extraPath {
		seg = strings.Trim(seg, "/")
		if seg != "" {
			target += "/" + seg
		}
	}
	if rawQuery != "" {
		target += "?" + rawQuery
	}
	return target
}

// copyResponseHeaders copies origin headers through minus the deny-list
func copyResponseHeaders(dst, src http.Header) {
	for name, values := range src {
		if isStripped(name) {
			continue
		}
		for _, v := range values {
			dst.Add(name, v)
		}
	}
}

func isStripped(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range stripHeaders {
		if lower == s {
			return true
		}
	}
	return false
}

// RewriteHTMLLinks rewrites literal root-relative link prefixes in HTML so
// they point back through the gateway mount path. The scope is deliberately
// narrow: double-quoted href/src/action attributes only, no single quotes,
// no CSS url() references, no script-built URLs.
func RewriteHTMLLinks(body []byte, mountPath string) []byte {
	mount := strings.TrimSuffix(mountPath, "/")
	for _, attr := range []string{"href", "src", "action"} {
		old := []byte(attr + `="/`)
		repl := []byte(attr + `="` + mount + `/`)
		body = bytes.ReplaceAll(body, old, repl)
	}
	return body
}

func forwardedProto(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if proto := r.Header.Get("x-forwarded-proto"); proto != "" {
		return proto
	}
	return "http"
}

// respondProxyError writes the generic proxy failure response. Internal
// details go to the server log only.
func respondProxyError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{
		"error": "proxy request failed",
	})
}
