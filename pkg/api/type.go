package api

import (
	"encoding/json"

	"github.com/NotCoffee418/uniden_interface/pkg/uniden"
)

// ConsoleReply is sent back for every line received on /ws.
type ConsoleReply struct {
	Command string   `json:"command"`
	OK      bool     `json:"ok"`
	Payload []string `json:"payload,omitempty"`
	Error   string   `json:"error,omitempty"`
	Kind    string   `json:"kind,omitempty"`
}

func (r *ConsoleReply) ToJsonBytes() []byte {
	jsonBytes, err := json.Marshal(r)
	if err != nil {
		return nil
	}
	return jsonBytes
}

func ConsoleReplyFromJsonBytes(data []byte) (*ConsoleReply, error) {
	var reply ConsoleReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// Err rebuilds the error the reply was made from. The result matches the
// uniden sentinels with errors.Is when the kind is known.
func (r *ConsoleReply) Err() error {
	if r.OK || r.Error == "" {
		return nil
	}
	kind, _ := uniden.ParseErrorKind(r.Kind)
	return &RemoteError{Kind: kind, Message: r.Error}
}

// RemoteError is a command failure reported by a scanner_api instance.
type RemoteError struct {
	Kind    uniden.ErrorKind
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

func (e *RemoteError) Unwrap() error { return e.Kind.Sentinel() }

type LevelRequest struct {
	Value *int `json:"value"`
}

type LevelResponse struct {
	Value int `json:"value"`
}

type ChannelResponse struct {
	Channel int      `json:"channel"`
	Fields  []string `json:"fields"`
}

type ScreenResponse struct {
	Fields []string `json:"fields"`
}

type StatusResponse struct {
	Message   string `json:"message"`
	Status    string `json:"status"`
	Connected bool   `json:"connected"`
	Mode      string `json:"mode"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
