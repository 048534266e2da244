// Package wire defines the request/response messages exchanged between a
// queue server and its remote producers and consumers, and the framing used
// to move them over a connection. Messages are JSON objects, one per line,
// strictly one response per request.
package wire

import (
	"encoding/json"
	"fmt"
)

const (
	RoleProducer = "producer"
	RoleConsumer = "consumer"
)

const (
	CommandPut  = "put"
	CommandGet  = "get"
	CommandDone = "done"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Request is the client-to-server message. A registration carries Type and
// Name; every later message carries Command, plus Item for a put. Items are
// opaque JSON so any payload, including null, survives the round trip.
type Request struct {
	Command string          `json:"command,omitempty"`
	Type    string          `json:"type,omitempty"`
	Name    string          `json:"name,omitempty"`
	Item    json.RawMessage `json:"item,omitempty"`
}

// Response is the server-to-client message.
type Response struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Item    json.RawMessage `json:"item,omitempty"`
}

func ValidRole(role string) bool {
	return role == RoleProducer || role == RoleConsumer
}

func Ok() Response {
	return Response{Status: StatusOK}
}

func OkItem(item json.RawMessage) Response {
	if item == nil {
		item = json.RawMessage("null")
	}
	return Response{Status: StatusOK, Item: item}
}

func Error(message string) Response {
	return Response{Status: StatusError, Message: message}
}

func Errorf(format string, args ...any) Response {
	return Error(fmt.Sprintf(format, args...))
}
