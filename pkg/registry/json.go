package registry

import (
	"encoding/json"
	"fmt"

	"github.com/zeusync/worldstore/pkg/world"
)

// jsonCodec serializes a concrete component type T as JSON. The stateless
// struct keeps two registrations of JSON[T]() for the same T equal, so
// repeated registration stays idempotent.
type jsonCodec[T any] struct{}

// JSON returns a codec that stores components of type T as JSON text.
// T should be a plain data type; values are passed through the adapter
// as T (not *T).
func JSON[T any]() Codec {
	return jsonCodec[T]{}
}

func (jsonCodec[T]) Encode(c world.Component) (string, error) {
	v, ok := c.(T)
	if !ok {
		var want T
		return "", fmt.Errorf("component is %T, codec expects %T", c, want)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (jsonCodec[T]) Decode(data string) (world.Component, error) {
	var v T
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return nil, err
	}
	return v, nil
}
