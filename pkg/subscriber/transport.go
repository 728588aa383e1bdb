package subscriber

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
)

// Transport is the duplex of JSON-text frames spec §6.2 abstracts the live
// subscription feed as. Grounded on gorilla/websocket, the same library
// the rest of the retrieval pack's Solana bots use for the identical
// accountSubscribe feed (other_examples/manifests/guidebee-SolRoute,
// svyatogor45-abitrage).
type Transport interface {
	Send(v any) error
	Recv() ([]byte, error)
	Close() error
}

// wsTransport is the real, network-backed Transport.
type wsTransport struct {
	conn *websocket.Conn
}

// Dial opens a websocket connection to a Solana RPC endpoint's feed.
func Dial(ctx context.Context, url string) (Transport, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &wsTransport{conn: conn}, nil
}

func (t *wsTransport) Send(v any) error {
	return t.conn.WriteJSON(v)
}

func (t *wsTransport) Recv() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	return data, err
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}

// subscribeFrame is the outbound accountSubscribe shape of spec §6.2.
type subscribeFrame struct {
	Jsonrpc string        `json:"jsonrpc"`
	Id      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []any `json:"params"`
}

type subscribeOpts struct {
	Encoding   string `json:"encoding"`
	Commitment string `json:"commitment"`
}

func newSubscribeFrame(requestId uint64, address string) subscribeFrame {
	return subscribeFrame{
		Jsonrpc: "2.0",
		Id:      requestId,
		Method:  "accountSubscribe",
		Params:  []any{address, subscribeOpts{Encoding: "base64", Commitment: "confirmed"}},
	}
}

// inboundFrame is a union of the two shapes the feed ever sends: a
// subscribe confirmation ({"id", "result"}) or a notification
// ({"method": "accountNotification", "params": {...}}).
type inboundFrame struct {
	Id     *uint64         `json:"id,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Method string          `json:"method,omitempty"`
	Params *notificationParams `json:"params,omitempty"`
}

type notificationParams struct {
	Subscription uint64             `json:"subscription"`
	Result       notificationResult `json:"result"`
}

type notificationResult struct {
	Context struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
	Value struct {
		Data []string `json:"data"`
	} `json:"value"`
}

func parseInboundFrame(raw []byte) (inboundFrame, error) {
	var f inboundFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return inboundFrame{}, fmt.Errorf("parse inbound frame: %w", err)
	}
	return f, nil
}

// isNotification reports whether f is an accountNotification frame.
func (f inboundFrame) isNotification() bool {
	return f.Method == "accountNotification" && f.Params != nil
}

// isConfirmation reports whether f is a subscribe confirmation, i.e. it
// carries both an id and a result but isn't a notification.
func (f inboundFrame) isConfirmation() bool {
	return f.Id != nil && len(f.Result) > 0 && !f.isNotification()
}

// subscriptionId parses the numeric subscription id out of a
// confirmation's result field.
func (f inboundFrame) subscriptionId() (uint64, error) {
	var id uint64
	if err := json.Unmarshal(f.Result, &id); err != nil {
		return 0, fmt.Errorf("parse subscription id: %w", err)
	}
	return id, nil
}
