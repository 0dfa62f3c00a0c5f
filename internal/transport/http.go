package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"boardpilot/internal/logging"
	"boardpilot/internal/types"
)

// HTTPDispatcher posts GraphQL mutations to the upstream API endpoint. It
// translates HTTP status codes and GraphQL error payloads into *types.OpError
// values the recovery classifier can act on.
type HTTPDispatcher struct {
	endpoint string
	token    string
	client   *http.Client
	log      *zap.Logger
}

// NewHTTPDispatcher builds a dispatcher for the given endpoint and API token.
func NewHTTPDispatcher(endpoint, token string) *HTTPDispatcher {
	return &HTTPDispatcher{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: 30 * time.Second},
		log:      logging.For(logging.CategoryExecute),
	}
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlResponse struct {
	Data   map[string]any `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Dispatch sends the mutation and returns the response data map.
func (d *HTTPDispatcher) Dispatch(ctx context.Context, method, query string, variables map[string]any) (map[string]any, error) {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, types.WrapOpError(types.ErrInvalidData, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, types.WrapOpError(types.ErrUnknown, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", d.token)

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, types.WrapOpError(types.ErrNetwork, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, types.WrapOpError(types.ErrNetwork, err)
	}

	d.log.Debug("dispatched mutation",
		zap.String("method", method),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, payload)
	}

	var parsed graphqlResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, types.WrapOpError(types.ErrInvalidData, err)
	}
	if len(parsed.Errors) > 0 {
		return nil, types.NewOpError(types.ErrInvalidData, parsed.Errors[0].Message)
	}
	return parsed.Data, nil
}

// statusError maps an HTTP failure onto the error taxonomy, carrying the
// Retry-After header for rate limits.
func statusError(resp *http.Response, payload []byte) *types.OpError {
	msg := fmt.Sprintf("upstream returned %s: %s", resp.Status, truncate(payload, 200))
	opErr := &types.OpError{Status: resp.StatusCode, Message: msg}

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		opErr.Kind = types.ErrRateLimit
		if after, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			opErr.RetryAfter = time.Duration(after) * time.Second
		}
	case http.StatusUnauthorized, http.StatusForbidden:
		opErr.Kind = types.ErrPermission
	case http.StatusNotFound:
		opErr.Kind = types.ErrNotFound
	case http.StatusBadRequest:
		opErr.Kind = types.ErrInvalidData
	default:
		if resp.StatusCode >= 500 {
			opErr.Kind = types.ErrNetwork
		} else {
			opErr.Kind = types.ErrUnknown
		}
	}
	return opErr
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
