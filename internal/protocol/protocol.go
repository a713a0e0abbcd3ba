package protocol

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const Version = "1.0"

// Message types.
const (
	TypeSubscribe = "SUBSCRIBE"
	TypeShift     = "SHIFT"
	TypeWindow    = "WINDOW"
	TypeError     = "ERROR"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

var (
	schemaOnce sync.Once
	schemas    map[string]*jsonschema.Schema
	schemaErr  error
)

func compileSchemas() {
	schemas = map[string]*jsonschema.Schema{}
	for typ, name := range map[string]string{
		TypeSubscribe: "subscribe.schema.json",
		TypeShift:     "shift.schema.json",
		TypeWindow:    "window.schema.json",
	} {
		raw, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			schemaErr = err
			return
		}
		s, err := jsonschema.CompileString(name, string(raw))
		if err != nil {
			schemaErr = fmt.Errorf("compile %s: %w", name, err)
			return
		}
		schemas[typ] = s
	}
}

// Validate checks a raw message against the schema for its type.
func Validate(b []byte) (BaseMessage, error) {
	base, err := DecodeBase(b)
	if err != nil {
		return base, err
	}
	schemaOnce.Do(compileSchemas)
	if schemaErr != nil {
		return base, schemaErr
	}
	s, ok := schemas[base.Type]
	if !ok {
		return base, fmt.Errorf("unknown message type %q", base.Type)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return base, err
	}
	if err := s.Validate(doc); err != nil {
		return base, err
	}
	if base.ProtocolVersion != Version {
		return base, fmt.Errorf("protocol_version %q, want %q", base.ProtocolVersion, Version)
	}
	return base, nil
}
