package persist

import "go.uber.org/zap"

// LoadMode selects how Load treats stored component names that have no
// registered codec. The choice is explicit configuration; there is no
// silent default beyond the zero value being strict.
type LoadMode uint8

const (
	// LoadStrict aborts the whole load on the first unknown component type.
	LoadStrict LoadMode = iota
	// LoadLenient skips the unrecoverable component row, logs it, and
	// continues loading the rest of the subtree.
	LoadLenient
)

// AutoLoadName is the reserved component type name marking entities that
// should be discovered and loaded at startup via LoadAll. Register a codec
// for it (registry.JSON[persist.AutoLoad]() works) before saving the marker.
const AutoLoadName = "worldstore.AutoLoad"

// AutoLoad is the marker component stored under AutoLoadName.
type AutoLoad struct{}

// Options configures an Engine.
type Options struct {
	// Components is the default persisted-type set applied by Save when the
	// caller passes no explicit set. Only component types named here are
	// written; others are skipped even if present on the entity.
	Components []string

	// Mode is the unknown-component policy for Load and LoadAll.
	Mode LoadMode

	// Logger receives structured operation logs; nil means no logging.
	Logger *zap.Logger
}
