package orderspb_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/nemanja87/master-thesis-bench-runner/internal/orderspb"
)

func TestRequestWireFormat(t *testing.T) {
	in := &orderspb.OrderCreateRequest{
		CustomerID:  "cust-42",
		ItemSkus:    []string{"sku-a", "sku-b"},
		TotalAmount: 19.95,
	}

	data, err := orderspb.Codec{}.Marshal(in)
	require.NoError(t, err)

	var out orderspb.OrderCreateRequest
	require.NoError(t, orderspb.Codec{}.Unmarshal(data, &out))
	assert.Equal(t, *in, out)
}

func TestUnmarshalSkipsUnknownFields(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, "cust-1")
	// A field number this message does not define.
	b = protowire.AppendTag(b, 9, protowire.VarintType)
	b = protowire.AppendVarint(b, 7)

	var out orderspb.OrderCreateRequest
	require.NoError(t, out.Unmarshal(b))
	assert.Equal(t, "cust-1", out.CustomerID)
}

func TestCodecRejectsForeignTypes(t *testing.T) {
	_, err := orderspb.Codec{}.Marshal("not a message")
	assert.Error(t, err)
}
