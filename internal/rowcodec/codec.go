// Package rowcodec turns single component instances into their on-disk text
// payloads and back, resolving codecs through the component registry.
// Hierarchy edges are not payload data: the parent pointer is encoded
// directly as the entity row's parent column by the store layer.
package rowcodec

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/zeusync/worldstore/pkg/registry"
	"github.com/zeusync/worldstore/pkg/world"
)

// EncodeError wraps a failure from a component's own serialization, carrying
// the component name and the live entity it sat on.
type EncodeError struct {
	Component string
	Entity    world.Entity
	Err       error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %q on entity %d: %v", e.Component, e.Entity, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// DecodeError wraps a malformed or version-incompatible payload. No
// cross-version migration is attempted: a payload either deserializes or it
// reports failure.
type DecodeError struct {
	Component string
	Durable   int64
	Err       error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %q for durable id %d: %v", e.Component, e.Durable, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Codec encodes and decodes component instances using registered codecs.
type Codec struct {
	reg *registry.Registry
}

func New(reg *registry.Registry) *Codec {
	return &Codec{reg: reg}
}

// Encode serializes one component instance attached to live. Registry misses
// propagate as registry.ErrUnknownComponent; serialization failures come back
// as *EncodeError.
func (c *Codec) Encode(live world.Entity, name string, comp world.Component) (string, error) {
	codec, err := c.reg.Lookup(name)
	if err != nil {
		return "", err
	}
	payload, err := codec.Encode(comp)
	if err != nil {
		return "", &EncodeError{Component: name, Entity: live, Err: err}
	}
	return payload, nil
}

// Decode deserializes one stored payload for the given durable entity.
// Registry misses propagate as registry.ErrUnknownComponent so the load path
// can distinguish them (lenient mode skips exactly those); everything else
// comes back as *DecodeError.
func (c *Codec) Decode(durable int64, name string, payload string) (world.Component, error) {
	codec, err := c.reg.Lookup(name)
	if err != nil {
		return nil, err
	}
	comp, err := codec.Decode(payload)
	if err != nil {
		return nil, &DecodeError{Component: name, Durable: durable, Err: err}
	}
	return comp, nil
}

// Digest fingerprints a payload. The engine compares digests against the
// existing row to skip rewriting components that have not changed since the
// last save.
func Digest(payload string) uint64 {
	return xxhash.Sum64String(payload)
}
