package graphql

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/drborges/apollo-react-spike/internal/models"
)

// ErrConnectionRejected is returned when the server refuses connection_init.
var ErrConnectionRejected = errors.New("graphql: connection rejected")

// SubscriptionSettings tunes the websocket protocol, timeouts and reconnect backoff.
type SubscriptionSettings struct {
	Protocol            Protocol
	HandshakeTimeout    time.Duration
	WriteTimeout        time.Duration
	ReconnectTimeout    time.Duration
	MaxReconnectTimeout time.Duration
	ConnectionParams    map[string]any
}

// DefaultSubscriptionSettings speaks graphql-ws and backs off for at most 30s between reconnects.
func DefaultSubscriptionSettings() *SubscriptionSettings {
	return &SubscriptionSettings{
		Protocol:            ProtocolGraphQLWS,
		HandshakeTimeout:    10 * time.Second,
		WriteTimeout:        5 * time.Second,
		ReconnectTimeout:    1 * time.Second,
		MaxReconnectTimeout: 30 * time.Second,
	}
}

// SubscriptionClient runs GraphQL subscriptions over a websocket and
// reconnects while the caller's context is alive.
type SubscriptionClient struct {
	url      string
	settings *SubscriptionSettings
	dialer   *websocket.Dialer
}

// NewSubscriptionClient targets the websocket endpoint at url. Nil settings use the defaults.
func NewSubscriptionClient(url string, settings *SubscriptionSettings) *SubscriptionClient {
	if settings == nil {
		settings = DefaultSubscriptionSettings()
	}
	return &SubscriptionClient{
		url:      url,
		settings: settings,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: settings.HandshakeTimeout,
			Subprotocols:     []string{string(settings.Protocol)},
		},
	}
}

// Subscribe runs req and passes every result frame to handler until ctx is done,
// the server completes the operation (nil), or the server rejects the connection
// or the operation (error). Transport failures reconnect with capped backoff.
func (c *SubscriptionClient) Subscribe(ctx context.Context, req Request, handler func(Response)) error {
	backoff := c.settings.ReconnectTimeout
	for {
		acked, err := c.run(ctx, req, handler)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var gqlErrs Errors
		if errors.Is(err, ErrConnectionRejected) || errors.As(err, &gqlErrs) {
			return err
		}
		if acked {
			backoff = c.settings.ReconnectTimeout
		}
		glog.Infof("[sub]%s error = %s, reconnect in %s\n", req.OperationName, err, backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if c.settings.MaxReconnectTimeout < backoff {
			backoff = c.settings.MaxReconnectTimeout
		}
	}
}

// SubscribeUserAdded runs the onUserAdded subscription. Frames without a user
// payload are delivered as nil.
func (c *SubscriptionClient) SubscribeUserAdded(ctx context.Context, fn func(*models.User)) error {
	req := Request{Query: UserAddedSubscription, OperationName: "onUserAdded"}
	return c.Subscribe(ctx, req, func(resp Response) {
		fn(decodeUserAdded(resp))
	})
}

func decodeUserAdded(resp Response) *models.User {
	if !resp.HasData() {
		return nil
	}
	var data struct {
		UserAdded *wireUser `json:"userAdded"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		glog.Infof("[sub]onUserAdded bad payload = %s\n", err)
		return nil
	}
	if data.UserAdded == nil {
		return nil
	}
	u := data.UserAdded.model()
	return &u
}

// run holds one connection. acked reports whether the handshake completed.
func (c *SubscriptionClient) run(ctx context.Context, req Request, handler func(Response)) (acked bool, err error) {
	ws, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", c.url, err)
	}
	defer ws.Close()

	conn := &wsConn{ws: ws, writeTimeout: c.settings.WriteTimeout}

	if err := c.handshake(conn); err != nil {
		return false, err
	}

	opID := uuid.NewString()
	payload, err := json.Marshal(req)
	if err != nil {
		return true, fmt.Errorf("encode request: %w", err)
	}
	if err := conn.write(message{ID: opID, Type: c.settings.Protocol.subscribeType(), Payload: payload}); err != nil {
		return true, err
	}
	glog.V(2).Infof("[sub]%s subscribed id=%s\n", req.OperationName, opID)

	runCtx, runCancel := context.WithCancel(ctx)
	defer runCancel()
	go func() {
		<-runCtx.Done()
		if ctx.Err() != nil {
			// best effort, the server may already be gone
			conn.write(message{ID: opID, Type: c.settings.Protocol.stopType()})
			if c.settings.Protocol == ProtocolGraphQLWS {
				conn.write(message{Type: msgTerminate})
			}
		}
		ws.Close()
	}()

	for {
		msg, err := readMessage(ws)
		if err != nil {
			return true, fmt.Errorf("read: %w", err)
		}
		switch {
		case msg.Type == msgKeepAlive || msg.Type == msgPong:
			glog.V(2).Infof("[sub]%s<- keepalive\n", req.OperationName)
		case msg.Type == msgPing:
			if err := conn.write(message{Type: msgPong}); err != nil {
				return true, err
			}
		case c.settings.Protocol.isResult(msg.Type):
			if msg.ID != opID {
				continue
			}
			var resp Response
			if len(msg.Payload) > 0 {
				if err := json.Unmarshal(msg.Payload, &resp); err != nil {
					glog.Infof("[sub]%s<- bad frame = %s\n", req.OperationName, err)
				}
			}
			glog.V(2).Infof("[sub]%s<- result\n", req.OperationName)
			handler(resp)
		case msg.Type == msgError:
			if msg.ID != opID {
				continue
			}
			errs := decodeErrorPayload(msg.Payload)
			handler(Response{Errors: errs})
			return true, errs
		case msg.Type == msgComplete:
			if msg.ID != opID {
				continue
			}
			glog.Infof("[sub]%s completed by server\n", req.OperationName)
			return true, nil
		default:
			glog.V(2).Infof("[sub]%s<- other=%s\n", req.OperationName, msg.Type)
		}
	}
}

func (c *SubscriptionClient) handshake(conn *wsConn) error {
	var params json.RawMessage
	if len(c.settings.ConnectionParams) > 0 {
		encoded, err := json.Marshal(c.settings.ConnectionParams)
		if err != nil {
			return fmt.Errorf("encode connection params: %w", err)
		}
		params = encoded
	}
	if err := conn.write(message{Type: msgConnectionInit, Payload: params}); err != nil {
		return err
	}

	if 0 < c.settings.HandshakeTimeout {
		conn.ws.SetReadDeadline(time.Now().Add(c.settings.HandshakeTimeout))
		defer conn.ws.SetReadDeadline(time.Time{})
	}
	for {
		msg, err := readMessage(conn.ws)
		if err != nil {
			return fmt.Errorf("await connection_ack: %w", err)
		}
		switch msg.Type {
		case msgConnectionAck:
			return nil
		case msgKeepAlive, msgPong:
		case msgPing:
			if err := conn.write(message{Type: msgPong}); err != nil {
				return err
			}
		case msgConnectionError:
			return fmt.Errorf("%w: %s", ErrConnectionRejected, string(msg.Payload))
		default:
			return fmt.Errorf("await connection_ack: unexpected %q", msg.Type)
		}
	}
}

// wsConn serializes writes; gorilla/websocket allows one concurrent writer.
type wsConn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
	mu           sync.Mutex
}

func (c *wsConn) write(msg message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if 0 < c.writeTimeout {
		c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	frame, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Type, err)
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("write %s: %w", msg.Type, err)
	}
	return nil
}

func readMessage(ws *websocket.Conn) (message, error) {
	var msg message
	_, frame, err := ws.ReadMessage()
	if err != nil {
		return msg, err
	}
	if err := json.Unmarshal(frame, &msg); err != nil {
		return msg, fmt.Errorf("decode frame: %w", err)
	}
	return msg, nil
}
