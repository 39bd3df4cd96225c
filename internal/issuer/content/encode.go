// Package content stores immutable objects under content-derived ids.
package content

import (
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"

	"proofpass/pkg/domain"
)

const idPrefix = "b3"

var encMode cbor.EncMode

func init() {
	opts := cbor.CoreDetEncOptions()
	opts.TextMarshaler = cbor.TextMarshalerTextString
	mode, err := opts.EncMode()
	if err != nil {
		panic("content: CBOR encoder initialization failed: " + err.Error())
	}
	encMode = mode
}

// Encode returns the stored bytes for v. Byte slices pass through; any other
// value is encoded with CBOR core deterministic encoding so equal objects
// produce equal bytes.
func Encode(v any) ([]byte, error) {
	switch b := v.(type) {
	case nil:
		return nil, fmt.Errorf("content: nil object")
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	}
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("content: encode: %w", err)
	}
	return data, nil
}

// ID derives the content id of data.
func ID(data []byte) domain.ContentID {
	sum := blake3.Sum256(data)
	return domain.ContentID(idPrefix + hex.EncodeToString(sum[:]))
}
