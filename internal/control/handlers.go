package control

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/openfit/relay/internal/core/domain"
	"github.com/openfit/relay/internal/resilience"
)

// OpTypeHTTPRequest is the built-in queued operation type: an HTTP write
// captured while offline, replayed verbatim when connectivity returns.
const OpTypeHTTPRequest = "http_request"

// replayHTTPRequest re-issues a deferred HTTP request through the
// resilience pipeline. The payload carries method, url, optional body and
// content type, and the breaker service key.
func (a *App) replayHTTPRequest(ctx context.Context, op *domain.QueuedOperation) error {
	method := op.Payload["method"]
	url := op.Payload["url"]
	if method == "" || url == "" {
		return domain.NewError(domain.KindValidationError,
			fmt.Sprintf("queued http_request %s is missing method or url", op.ID))
	}

	service := op.Payload["service"]
	if service == "" {
		service = "backend"
	}

	return resilience.Do(ctx, a.pipeline, "replay:"+op.Type, service, func(ctx context.Context) error {
		var body *strings.Reader
		if b := op.Payload["body"]; b != "" {
			body = strings.NewReader(b)
		} else {
			body = strings.NewReader("")
		}

		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return domain.WrapError(domain.KindValidationError, "invalid queued request", err)
		}
		if ct := op.Payload["content_type"]; ct != "" {
			req.Header.Set("Content-Type", ct)
		}

		resp, err := a.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode < 400:
			return nil
		case resp.StatusCode == http.StatusUnauthorized:
			return domain.NewError(domain.KindAuthenticationFailed,
				fmt.Sprintf("replay rejected with HTTP %d", resp.StatusCode))
		case resp.StatusCode == http.StatusForbidden:
			return domain.NewError(domain.KindPermissionDenied,
				fmt.Sprintf("replay rejected with HTTP %d", resp.StatusCode))
		case resp.StatusCode == http.StatusTooManyRequests:
			return domain.NewError(domain.KindQuotaExceeded,
				fmt.Sprintf("replay throttled with HTTP %d", resp.StatusCode))
		case resp.StatusCode >= 500:
			return domain.NewError(domain.KindServerError,
				fmt.Sprintf("replay failed with HTTP %d", resp.StatusCode))
		default:
			return domain.NewError(domain.KindValidationError,
				fmt.Sprintf("replay rejected with HTTP %d", resp.StatusCode))
		}
	})
}
