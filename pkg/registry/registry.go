// Package registry maps stable component type names to the codecs that
// serialize and deserialize their payloads. The set of registered types is
// open-ended: declaring a new component type needs no schema change on the
// store side, only a registration here.
package registry

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/zeusync/worldstore/pkg/world"
)

var (
	// ErrDuplicateRegistration is returned when a name is already bound to a
	// different codec.
	ErrDuplicateRegistration = errors.New("component type already registered")

	// ErrUnknownComponent is returned when no codec is registered for a
	// name. This is the failure seen when loading data written by a build
	// that declared component types no longer compiled into this world.
	ErrUnknownComponent = errors.New("unknown component type")
)

// Codec serializes one component type to and from its stored text payload.
type Codec interface {
	Encode(c world.Component) (string, error)
	Decode(data string) (world.Component, error)
}

// Registry holds the process-wide name → codec table. Registration happens
// once at startup, before any save or load traffic; after that the table is
// read concurrently and treated as immutable (there is no unregistration).
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Codec
}

func New() *Registry {
	return &Registry{codecs: make(map[string]Codec)}
}

// Register binds name to codec. Registering the same codec twice under the
// same name is a no-op; binding the name to a different codec fails with
// ErrDuplicateRegistration.
func (r *Registry) Register(name string, codec Codec) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.codecs[name]; ok {
		if sameCodec(existing, codec) {
			return nil
		}
		return fmt.Errorf("%q: %w", name, ErrDuplicateRegistration)
	}
	r.codecs[name] = codec
	return nil
}

// Lookup returns the codec for name, or ErrUnknownComponent.
func (r *Registry) Lookup(name string) (Codec, error) {
	r.mu.RLock()
	codec, ok := r.codecs[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownComponent)
	}
	return codec, nil
}

// Names lists the registered component type names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.codecs))
	for name := range r.codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sameCodec(a, b Codec) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
