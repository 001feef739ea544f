package connect

import (
	"context"
	"strings"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
)

// Client calls a remote PlaylistService.
type Client struct {
	preview  *connect.Client[PreviewRequest, PreviewResponse]
	create   *connect.Client[CreateRequest, CreateResponse]
	describe *connect.Client[DescribeRequest, DescribeResponse]
}

// NewClient creates a client for the service at baseURL, authenticating
// with token.
func NewClient(httpClient connect.HTTPClient, baseURL, token string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{
		connect.WithCodec(jsonCodec{}),
		connect.WithInterceptors(NewTokenInterceptor(token)),
	}, opts...)

	return &Client{
		preview:  connect.NewClient[PreviewRequest, PreviewResponse](httpClient, baseURL+PreviewProcedure, opts...),
		create:   connect.NewClient[CreateRequest, CreateResponse](httpClient, baseURL+CreateProcedure, opts...),
		describe: connect.NewClient[DescribeRequest, DescribeResponse](httpClient, baseURL+DescribeProcedure, opts...),
	}
}

// Preview calls PlaylistService.Preview.
func (c *Client) Preview(ctx context.Context, params map[string]string) (*PreviewResponse, error) {
	resp, err := c.preview.CallUnary(ctx, connect.NewRequest(&PreviewRequest{Params: params}))
	if err != nil {
		return nil, errors.Wrap(err, "preview failed")
	}
	return resp.Msg, nil
}

// Create calls PlaylistService.Create.
func (c *Client) Create(ctx context.Context, req *CreateRequest) (*CreateResponse, error) {
	resp, err := c.create.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, errors.Wrap(err, "create failed")
	}
	return resp.Msg, nil
}

// Describe calls PlaylistService.Describe.
func (c *Client) Describe(ctx context.Context, params map[string]string) (string, error) {
	resp, err := c.describe.CallUnary(ctx, connect.NewRequest(&DescribeRequest{Params: params}))
	if err != nil {
		return "", errors.Wrap(err, "describe failed")
	}
	return resp.Msg.Description, nil
}
