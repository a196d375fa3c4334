package registry

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// point stores itself as "x,y" text rather than JSON.
type point struct {
	X, Y int
}

func (p *point) Serialize() ([]byte, error) {
	return []byte(fmt.Sprintf("%d,%d", p.X, p.Y)), nil
}

func (p *point) Deserialize(data []byte) error {
	parts := strings.SplitN(string(data), ",", 2)
	if len(parts) != 2 {
		return fmt.Errorf("malformed point %q", data)
	}
	x, err := strconv.Atoi(parts[0])
	if err != nil {
		return err
	}
	y, err := strconv.Atoi(parts[1])
	if err != nil {
		return err
	}
	p.X, p.Y = x, y
	return nil
}

func TestSelfCodecRoundTrip(t *testing.T) {
	codec := Self[point]()

	payload, err := codec.Encode(point{X: 3, Y: 4})
	require.NoError(t, err)
	require.Equal(t, "3,4", payload)

	decoded, err := codec.Decode(payload)
	require.NoError(t, err)
	require.Equal(t, point{X: 3, Y: 4}, decoded)
}

func TestSelfCodecMalformedPayload(t *testing.T) {
	codec := Self[point]()
	_, err := codec.Decode("not-a-point")
	require.Error(t, err)
}

func TestSelfCodecTypeMismatch(t *testing.T) {
	codec := Self[point]()
	_, err := codec.Encode(position{X: 1, Y: 2})
	require.Error(t, err)
}
