package remote

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mmynk/splitit/internal/syncer"
)

// Client pushes records to another instance's sync endpoint.
type Client struct {
	push  *connect.Client[structpb.Struct, structpb.Struct]
	token string
}

var _ syncer.Remote = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	httpClient connect.HTTPClient
	token      string
}

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(c connect.HTTPClient) ClientOption {
	return func(cfg *clientConfig) { cfg.httpClient = c }
}

// WithToken sends token as a bearer token on every push.
func WithToken(token string) ClientOption {
	return func(cfg *clientConfig) { cfg.token = token }
}

// NewClient creates a client for the instance at baseURL, e.g. "http://peer:8080".
func NewClient(baseURL string, opts ...ClientOption) *Client {
	cfg := clientConfig{httpClient: http.DefaultClient}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Client{
		push: connect.NewClient[structpb.Struct, structpb.Struct](
			cfg.httpClient,
			strings.TrimRight(baseURL, "/")+PushProcedure,
			connect.WithProtoJSON(),
		),
		token: cfg.token,
	}
}

// Push implements syncer.Remote.
func (c *Client) Push(ctx context.Context, records []syncer.Record) (syncer.PushResult, error) {
	msg, err := EncodePush(records)
	if err != nil {
		return syncer.PushResult{}, err
	}

	req := connect.NewRequest(msg)
	if c.token != "" {
		req.Header().Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.push.CallUnary(ctx, req)
	if err != nil {
		return syncer.PushResult{}, fmt.Errorf("sync push failed: %w", err)
	}
	return DecodeResult(resp.Msg)
}
