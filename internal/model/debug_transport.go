package model

import (
	"bytes"
	"io"
	"net/http"
	"regexp"
	"strings"

	"sitebuilder-backend/pkg/logger"
)

var sensitiveHeaders = map[string]bool{
	"authorization": true,
	"x-api-key":     true,
	"x-auth-token":  true,
	"cookie":        true,
}

var sensitiveFieldRe = regexp.MustCompile(`(?i)("(?:api_key|apikey|password|secret|token)"\s*:\s*)"[^"]*"`)

// DebugTransport logs outgoing POST requests with credentials redacted.
type DebugTransport struct {
	base http.RoundTripper
}

func NewDebugTransport(base http.RoundTripper) *DebugTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &DebugTransport{base: base}
}

func (t *DebugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method == http.MethodPost {
		t.logRequest(req)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		logger.Errorf("[model debug] request to %s failed: %v", req.URL.Host, err)
	}
	return resp, err
}

func (t *DebugTransport) logRequest(req *http.Request) {
	var headers []string
	for name, values := range req.Header {
		if sensitiveHeaders[strings.ToLower(name)] {
			headers = append(headers, name+": [REDACTED]")
			continue
		}
		headers = append(headers, name+": "+strings.Join(values, ", "))
	}

	entry := logger.WithFields(map[string]interface{}{
		"method":  req.Method,
		"url":     req.URL.String(),
		"headers": strings.Join(headers, "; "),
	})

	if req.Body == nil {
		entry.Info("[model debug] request")
		return
	}
	body, err := io.ReadAll(req.Body)
	if err != nil {
		entry.Errorf("[model debug] read request body: %v", err)
		return
	}
	// 恢复请求体，以免影响实际请求
	req.Body = io.NopCloser(bytes.NewReader(body))

	entry.WithField("size", len(body)).Infof("[model debug] request body: %s", Redact(string(body)))
}

// Redact masks values of credential-like JSON fields.
func Redact(body string) string {
	return sensitiveFieldRe.ReplaceAllString(body, `$1"[REDACTED]"`)
}
