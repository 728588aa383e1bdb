package sol

import (
	"github.com/gagliardetto/solana-go/rpc"
)

// Client is the pull-mode RPC transport of spec §6.3: GetAccount plus the
// batched variant the Subscriber needs during bootstrap and vault warmup.
// No websocket logic lives here — that's pkg/subscriber's transport,
// grounded on a different part of the retrieval pack (gorilla/websocket).
type Client struct {
	rpcClient   *rpc.Client
	rateLimiter *RateLimiter
}

// NewClient builds a rate-limited RPC client against endpoint.
func NewClient(endpoint string, reqLimitPerSecond int) *Client {
	return &Client{
		rpcClient:   rpc.New(endpoint),
		rateLimiter: NewRateLimiter(reqLimitPerSecond),
	}
}
