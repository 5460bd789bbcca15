package relay

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/oeoc/neverstop/internal/errors"
	"github.com/oeoc/neverstop/internal/event"
)

// Encoding selects the wire format of relayed messages.
type Encoding string

const (
	EncodingCBOR Encoding = "cbor"
	EncodingJSON Encoding = "json"
)

// Encodings lists the supported encodings.
func Encodings() []string {
	return []string{string(EncodingCBOR), string(EncodingJSON)}
}

// ParseEncoding returns the Encoding named by s, case-insensitively.
func ParseEncoding(s string) (Encoding, error) {
	switch e := Encoding(strings.ToLower(strings.TrimSpace(s))); e {
	case EncodingCBOR, EncodingJSON:
		return e, nil
	}
	return "", errors.NewValidationError("unknown relay encoding").
		WithField("relay.encoding").WithValue(s)
}

// ContentType returns the MIME type sent in the message header.
func (e Encoding) ContentType() string {
	if e == EncodingJSON {
		return "application/json"
	}
	return "application/cbor"
}

// Message is the relayed form of a resilience event.
type Message struct {
	ID            string    `cbor:"id" json:"id"`
	Timestamp     time.Time `cbor:"timestamp" json:"timestamp"`
	Type          string    `cbor:"type" json:"type"`
	TargetAgentID string    `cbor:"target_agent_id" json:"target_agent_id"`
	Details       string    `cbor:"details" json:"details"`
	Severity      string    `cbor:"severity" json:"severity"`
}

// MessageFrom converts a bus notification into a Message.
func MessageFrom(e event.ResilienceRecordedEvent) Message {
	return Message{
		ID:            e.ID,
		Timestamp:     e.Timestamp().UTC(),
		Type:          e.Kind,
		TargetAgentID: e.TargetAgentID,
		Details:       e.Details,
		Severity:      e.Severity,
	}
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	var err error
	encMode, err = opts.EncMode()
	if err != nil {
		panic("relay: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("relay: CBOR decoder initialization failed: " + err.Error())
	}
}

// Encode serializes m in the given encoding.
func Encode(enc Encoding, m Message) ([]byte, error) {
	switch enc {
	case EncodingCBOR:
		return encMode.Marshal(m)
	case EncodingJSON:
		return json.Marshal(m)
	}
	return nil, fmt.Errorf("encode: unknown encoding %q", enc)
}

// Decode parses data produced by Encode.
func Decode(enc Encoding, data []byte) (Message, error) {
	var m Message
	var err error
	switch enc {
	case EncodingCBOR:
		err = decMode.Unmarshal(data, &m)
	case EncodingJSON:
		err = json.Unmarshal(data, &m)
	default:
		err = fmt.Errorf("decode: unknown encoding %q", enc)
	}
	return m, err
}
