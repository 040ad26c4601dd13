package httpclient

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"time"

	"github.com/GoCodeAlone/servicetest/logging"
)

// loggingTransport provides verbose logging of HTTP requests and responses.
type loggingTransport struct {
	Transport      http.RoundTripper
	Logger         logging.Logger
	LogHeaders     bool
	LogBody        bool
	MaxBodyLogSize int
}

// RoundTrip implements the http.RoundTripper interface and adds logging.
func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	requestID := fmt.Sprintf("%p", req)
	startTime := time.Now()

	t.logRequest(requestID, req)

	resp, err := t.Transport.RoundTrip(req)
	duration := time.Since(startTime)

	if err != nil {
		t.Logger.Error("Request failed",
			"id", requestID,
			"url", req.URL.String(),
			"method", req.Method,
			"duration_ms", duration.Milliseconds(),
			"error", err,
		)
		return resp, fmt.Errorf("http request failed: %w", err)
	}

	t.logResponse(requestID, req.URL.String(), resp, duration)
	return resp, nil
}

func (t *loggingTransport) logRequest(id string, req *http.Request) {
	basicInfo := req.Method + " " + req.URL.String()

	if !t.LogHeaders && !t.LogBody {
		t.Logger.Info("Outgoing request",
			"id", id,
			"request", basicInfo,
			"content_length", req.ContentLength,
		)
		return
	}

	dump, err := httputil.DumpRequestOut(req, t.LogBody)
	if err != nil {
		t.Logger.Info("Outgoing request (dump failed)", "id", id, "request", basicInfo, "error", err)
		return
	}
	t.Logger.Info("Outgoing request", "id", id, "request", basicInfo, "details", t.truncate(dump))
}

func (t *loggingTransport) logResponse(id, url string, resp *http.Response, duration time.Duration) {
	if resp == nil {
		t.Logger.Warn("Nil response received", "id", id, "url", url, "duration_ms", duration.Milliseconds())
		return
	}

	basicInfo := fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))

	if !t.LogHeaders && !t.LogBody {
		t.Logger.Info("Received response",
			"id", id,
			"url", url,
			"status", basicInfo,
			"duration_ms", duration.Milliseconds(),
		)
		return
	}

	// DumpResponse with body=true restores resp.Body for the caller.
	dump, err := httputil.DumpResponse(resp, t.LogBody)
	if err != nil {
		t.Logger.Info("Received response (dump failed)", "id", id, "url", url, "status", basicInfo, "error", err)
		return
	}
	t.Logger.Info("Received response",
		"id", id,
		"url", url,
		"status", basicInfo,
		"duration_ms", duration.Milliseconds(),
		"details", t.truncate(dump),
	)
}

func (t *loggingTransport) truncate(dump []byte) string {
	if t.MaxBodyLogSize > 0 && len(dump) > t.MaxBodyLogSize {
		return string(dump[:t.MaxBodyLogSize]) + " [truncated]"
	}
	return string(dump)
}
