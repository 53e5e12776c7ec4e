// Package persist encodes result documents to files as JSON, YAML or
// LZ4-compressed JSON.
package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pierrec/lz4/v4"
	"gopkg.in/yaml.v3"
)

// Format names accepted by CodecFor.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatLZ4  = "lz4"
)

const (
	jsonExtension = ".json"
	yamlExtension = ".yaml"
	lz4Extension  = ".lz4"
)

const defaultIndent = "  "

// ErrUnknownFormat is returned for a format or extension with no codec.
var ErrUnknownFormat = errors.New("unknown output format")

// Codec serializes values.
type Codec interface {
	Encode(w io.Writer, v any) error
	Decode(r io.Reader, v any) error
	// Extension includes the leading dot, e.g. ".json".
	Extension() string
}

// JSONCodec encodes JSON. An empty Indent writes compact output.
type JSONCodec struct {
	Indent string
}

// NewJSONCodec returns a JSON codec with two-space indentation.
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{Indent: defaultIndent}
}

// Encode implements Codec.
func (c *JSONCodec) Encode(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	if c.Indent != "" {
		encoder.SetIndent("", c.Indent)
	}

	err := encoder.Encode(v)
	if err != nil {
		return fmt.Errorf("json encode: %w", err)
	}

	return nil
}

// Decode implements Codec.
func (c *JSONCodec) Decode(r io.Reader, v any) error {
	err := json.NewDecoder(r).Decode(v)
	if err != nil {
		return fmt.Errorf("json decode: %w", err)
	}

	return nil
}

// Extension implements Codec.
func (c *JSONCodec) Extension() string { return jsonExtension }

// YAMLCodec encodes YAML.
type YAMLCodec struct{}

// Encode implements Codec.
func (YAMLCodec) Encode(w io.Writer, v any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(len(defaultIndent))

	err := encoder.Encode(v)
	if err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}

	err = encoder.Close()
	if err != nil {
		return fmt.Errorf("yaml flush: %w", err)
	}

	return nil
}

// Decode implements Codec.
func (YAMLCodec) Decode(r io.Reader, v any) error {
	err := yaml.NewDecoder(r).Decode(v)
	if err != nil {
		return fmt.Errorf("yaml decode: %w", err)
	}

	return nil
}

// Extension implements Codec.
func (YAMLCodec) Extension() string { return yamlExtension }

// LZ4Codec compresses the output of Inner with an LZ4 frame.
type LZ4Codec struct {
	Inner Codec
}

// NewLZ4Codec returns compact JSON inside an LZ4 frame.
func NewLZ4Codec() *LZ4Codec {
	return &LZ4Codec{Inner: &JSONCodec{}}
}

// Encode implements Codec.
func (c *LZ4Codec) Encode(w io.Writer, v any) error {
	zw := lz4.NewWriter(w)

	err := c.Inner.Encode(zw, v)
	if err != nil {
		return err
	}

	err = zw.Close()
	if err != nil {
		return fmt.Errorf("lz4 close: %w", err)
	}

	return nil
}

// Decode implements Codec.
func (c *LZ4Codec) Decode(r io.Reader, v any) error {
	return c.Inner.Decode(lz4.NewReader(r), v)
}

// Extension implements Codec, e.g. ".json.lz4".
func (c *LZ4Codec) Extension() string { return c.Inner.Extension() + lz4Extension }

// CodecFor returns the codec for a format name.
func CodecFor(format string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatJSON, "":
		return NewJSONCodec(), nil
	case FormatYAML, "yml":
		return YAMLCodec{}, nil
	case FormatLZ4:
		return NewLZ4Codec(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// CodecForPath picks a codec from a file name's extension.
func CodecForPath(path string) (Codec, error) {
	lower := strings.ToLower(path)

	switch {
	case strings.HasSuffix(lower, lz4Extension):
		return NewLZ4Codec(), nil
	case strings.HasSuffix(lower, yamlExtension), strings.HasSuffix(lower, ".yml"):
		return YAMLCodec{}, nil
	case strings.HasSuffix(lower, jsonExtension):
		return NewJSONCodec(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}
