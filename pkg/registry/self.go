package registry

import (
	"fmt"

	"github.com/zeusync/worldstore/pkg/encoding"
	"github.com/zeusync/worldstore/pkg/world"
)

// selfPtr constrains PT to *T implementing encoding.Serializable, so Decode
// can construct a fresh T and deserialize into it.
type selfPtr[T any] interface {
	*T
	encoding.Serializable
}

type selfCodec[T any, PT selfPtr[T]] struct{}

// Self returns a codec for component types that serialize themselves via
// encoding.Serializable. Values pass through the adapter as T; the
// Serializable methods are expected on *T.
func Self[T any, PT selfPtr[T]]() Codec {
	return selfCodec[T, PT]{}
}

func (selfCodec[T, PT]) Encode(c world.Component) (string, error) {
	v, ok := c.(T)
	if !ok {
		var want T
		return "", fmt.Errorf("component is %T, codec expects %T", c, want)
	}
	raw, err := PT(&v).Serialize()
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (selfCodec[T, PT]) Decode(data string) (world.Component, error) {
	var v T
	if err := PT(&v).Deserialize([]byte(data)); err != nil {
		return nil, err
	}
	return v, nil
}
