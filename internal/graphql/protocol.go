package graphql

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Protocol names a GraphQL-over-websocket subprotocol.
type Protocol string

const (
	// ProtocolGraphQLWS is the legacy subscriptions-transport-ws protocol.
	ProtocolGraphQLWS Protocol = "graphql-ws"
	// ProtocolTransportWS is the graphql-ws library protocol.
	ProtocolTransportWS Protocol = "graphql-transport-ws"
)

// ParseProtocol validates a configured protocol name.
func ParseProtocol(name string) (Protocol, error) {
	switch p := Protocol(name); p {
	case ProtocolGraphQLWS, ProtocolTransportWS:
		return p, nil
	default:
		return "", fmt.Errorf("unknown websocket protocol %q", name)
	}
}

// message types shared by both protocols
const (
	msgConnectionInit  = "connection_init"
	msgConnectionAck   = "connection_ack"
	msgConnectionError = "connection_error"
	msgError           = "error"
	msgComplete        = "complete"

	// legacy only
	msgStart     = "start"
	msgData      = "data"
	msgStop      = "stop"
	msgKeepAlive = "ka"
	msgTerminate = "connection_terminate"

	// graphql-transport-ws only
	msgSubscribe = "subscribe"
	msgNext      = "next"
	msgPing      = "ping"
	msgPong      = "pong"
)

type message struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (p Protocol) subscribeType() string {
	if p == ProtocolTransportWS {
		return msgSubscribe
	}
	return msgStart
}

func (p Protocol) stopType() string {
	if p == ProtocolTransportWS {
		return msgComplete
	}
	return msgStop
}

func (p Protocol) isResult(msgType string) bool {
	if p == ProtocolTransportWS {
		return msgType == msgNext
	}
	return msgType == msgData
}

// decodeErrorPayload accepts both a list of GraphQL errors (graphql-transport-ws)
// and a single error object (legacy).
func decodeErrorPayload(payload json.RawMessage) Errors {
	if len(payload) == 0 {
		return Errors{{Message: "subscription error"}}
	}
	var list Errors
	if err := json.Unmarshal(payload, &list); err == nil && len(list) > 0 {
		return list
	}
	var single Error
	if err := json.Unmarshal(payload, &single); err == nil && single.Message != "" {
		return Errors{single}
	}
	return Errors{{Message: string(payload)}}
}
