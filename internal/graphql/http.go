package graphql

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/golang/glog"

	"github.com/drborges/apollo-react-spike/internal/models"
)

const maxErrorBody = 512

// HTTPClient issues queries against a GraphQL HTTP endpoint.
type HTTPClient struct {
	endpoint string
	http     *http.Client
}

// NewHTTPClient creates a client for endpoint. A non-positive timeout disables the per-request limit.
func NewHTTPClient(endpoint string, timeout time.Duration) *HTTPClient {
	c := &http.Client{}
	if timeout > 0 {
		c.Timeout = timeout
	}
	return &HTTPClient{endpoint: endpoint, http: c}
}

// Do sends req and decodes the data member of the response into out.
// GraphQL errors are returned as Errors even when partial data is present.
func (c *HTTPClient) Do(ctx context.Context, req Request, out any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("post %s: %w", req.OperationName, err)
	}
	defer resp.Body.Close()
	glog.V(2).Infof("[q]%s %d in %s\n", req.OperationName, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	}

	var gqlResp Response
	if err := json.NewDecoder(resp.Body).Decode(&gqlResp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(gqlResp.Errors) > 0 {
		return gqlResp.Errors
	}
	if !gqlResp.HasData() {
		return fmt.Errorf("%s: response has no data", req.OperationName)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(gqlResp.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

// FetchUsers reads the full remote user list.
func (c *HTTPClient) FetchUsers(ctx context.Context) ([]models.User, error) {
	var data struct {
		Users []wireUser `json:"users"`
	}
	req := Request{Query: FetchUsersQuery, OperationName: "FetchUsers"}
	if err := c.Do(ctx, req, &data); err != nil {
		return nil, err
	}
	users := make([]models.User, len(data.Users))
	for i, u := range data.Users {
		users[i] = u.model()
	}
	return users, nil
}
