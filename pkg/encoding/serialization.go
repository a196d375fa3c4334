package encoding

// Serializable provides a clean, simple interface for component types that
// own their wire format instead of going through a generic codec.
type Serializable interface {
	Serialize() ([]byte, error)
	Deserialize([]byte) error
}
