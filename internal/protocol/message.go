// Copyright (c) 2026 Streamcache Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package protocol defines the control-message schema exchanged over the
// streamcache wire protocol: a small set of text frames (START, STARTED,
// STOP, STOPPED, GET, ERROR, CONNECTED) that bracket the raw binary data
// frames carrying stream bytes.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Type is the control-message discriminator. The wire form is always
// uppercase; decoding accepts any case.
type Type string

const (
	TypeStart     Type = "START"
	TypeStarted   Type = "STARTED"
	TypeStop      Type = "STOP"
	TypeStopped   Type = "STOPPED"
	TypeGet       Type = "GET"
	TypeError     Type = "ERROR"
	TypeConnected Type = "CONNECTED"
)

// DefaultGetLength is the length applied to a GET message that omits one.
const DefaultGetLength = 64 * 1024

func (t Type) valid() bool {
	switch t {
	case TypeStart, TypeStarted, TypeStop, TypeStopped, TypeGet, TypeError, TypeConnected:
		return true
	default:
		return false
	}
}

// Message is the flat control-message object carried by text frames.
// Optional fields are omitted on the wire rather than emitted as null, so
// every pointer/omitempty field here mirrors that convention.
type Message struct {
	Type     Type    `json:"type"`
	StreamID string  `json:"streamId,omitempty"`
	Offset   *uint64 `json:"offset,omitempty"`
	Length   *uint64 `json:"length,omitempty"`
	Text     string  `json:"message,omitempty"`
}

// rawMessage mirrors Message but keeps Type as a plain string so Decode can
// case-fold it before validating.
type rawMessage struct {
	Type     string  `json:"type"`
	StreamID string  `json:"streamId,omitempty"`
	Offset   *uint64 `json:"offset,omitempty"`
	Length   *uint64 `json:"length,omitempty"`
	Text     string  `json:"message,omitempty"`
}

// Decode parses a text frame's bytes into a Message. The type field is
// matched case-insensitively; an empty or unrecognized type is rejected.
func Decode(data []byte) (*Message, error) {
	var raw rawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding control message: %w", err)
	}

	typ := Type(strings.ToUpper(strings.TrimSpace(raw.Type)))
	if raw.Type == "" {
		return nil, fmt.Errorf("decoding control message: missing type")
	}
	if !typ.valid() {
		return nil, fmt.Errorf("decoding control message: unknown type %q", raw.Type)
	}

	return &Message{
		Type:     typ,
		StreamID: raw.StreamID,
		Offset:   raw.Offset,
		Length:   raw.Length,
		Text:     raw.Text,
	}, nil
}

// Encode serializes m to its wire form. Type is always emitted uppercase
// regardless of how it was constructed.
func Encode(m *Message) ([]byte, error) {
	out := *m
	out.Type = Type(strings.ToUpper(string(m.Type)))
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encoding control message: %w", err)
	}
	return data, nil
}

func uintPtr(v uint64) *uint64 { return &v }

// NewStart builds a START message for streamID.
func NewStart(streamID string) *Message {
	return &Message{Type: TypeStart, StreamID: streamID}
}

// NewStarted builds a STARTED acknowledgement for streamID.
func NewStarted(streamID string) *Message {
	return &Message{Type: TypeStarted, StreamID: streamID}
}

// NewStop builds a STOP message for streamID.
func NewStop(streamID string) *Message {
	return &Message{Type: TypeStop, StreamID: streamID}
}

// NewStopped builds a STOPPED acknowledgement for streamID.
func NewStopped(streamID string) *Message {
	return &Message{Type: TypeStopped, StreamID: streamID}
}

// NewGet builds a GET request for a byte range. A zero length is replaced
// with DefaultGetLength to match the omitted-field default.
func NewGet(streamID string, offset, length uint64) *Message {
	if length == 0 {
		length = DefaultGetLength
	}
	return &Message{
		Type:     TypeGet,
		StreamID: streamID,
		Offset:   uintPtr(offset),
		Length:   uintPtr(length),
	}
}

// NewError builds an ERROR message carrying a human-readable reason.
func NewError(text string) *Message {
	return &Message{Type: TypeError, Text: text}
}

// NewConnected builds the greeting sent when a connection is accepted.
func NewConnected() *Message {
	return &Message{Type: TypeConnected}
}

// GetOffset returns the GET message's offset, defaulting to 0 when omitted.
func (m *Message) GetOffset() uint64 {
	if m.Offset == nil {
		return 0
	}
	return *m.Offset
}

// GetLength returns the GET message's length, defaulting to
// DefaultGetLength when omitted or zero.
func (m *Message) GetLength() uint64 {
	if m.Length == nil || *m.Length == 0 {
		return DefaultGetLength
	}
	return *m.Length
}

// IsError reports whether m is an ERROR message.
func (m *Message) IsError() bool { return m.Type == TypeError }
