// Package orderspb carries the wire types and service descriptor for
// orders.OrderService. The messages are encoded with protowire directly,
// matching the layout in orders.proto, so the package stays free of
// generated code.
package orderspb

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// OrderCreateRequest is the Create RPC input.
type OrderCreateRequest struct {
	CustomerID  string
	ItemSkus    []string
	TotalAmount float64
}

// Marshal encodes the request in proto3 wire format.
func (m *OrderCreateRequest) Marshal() ([]byte, error) {
	var b []byte
	if m.CustomerID != "" {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, m.CustomerID)
	}
	for _, sku := range m.ItemSkus {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, sku)
	}
	if m.TotalAmount != 0 {
		b = protowire.AppendTag(b, 3, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(m.TotalAmount))
	}
	return b, nil
}

// Unmarshal decodes the request from proto3 wire format. Unknown fields are
// skipped.
func (m *OrderCreateRequest) Unmarshal(data []byte) error {
	*m = OrderCreateRequest{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]

		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.CustomerID = v
			data = data[n:]
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.ItemSkus = append(m.ItemSkus, v)
			data = data[n:]
		case num == 3 && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.TotalAmount = math.Float64frombits(v)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			data = data[n:]
		}
	}
	return nil
}

// OrderCreateResponse is the Create RPC output.
type OrderCreateResponse struct {
	OrderID  string
	Accepted bool
}

// Marshal encodes the response in proto3 wire format.
func (m *OrderCreateResponse) Marshal() ([]byte, error) {
	var b []byte
	if m.OrderID != "" {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, m.OrderID)
	}
	if m.Accepted {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	return b, nil
}

// Unmarshal decodes the response from proto3 wire format.
func (m *OrderCreateResponse) Unmarshal(data []byte) error {
	*m = OrderCreateResponse{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]

		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.OrderID = v
			data = data[n:]
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.Accepted = v != 0
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			data = data[n:]
		}
	}
	return nil
}

// message is implemented by all wire types in this package.
type message interface {
	Marshal() ([]byte, error)
	Unmarshal([]byte) error
}

// Codec adapts the wire types to the grpc encoding interface. It is forced
// per server and per call; it never registers globally.
type Codec struct{}

// Marshal implements encoding.Codec.
func (Codec) Marshal(v any) ([]byte, error) {
	m, ok := v.(message)
	if !ok {
		return nil, fmt.Errorf("orderspb codec: cannot marshal %T", v)
	}
	return m.Marshal()
}

// Unmarshal implements encoding.Codec.
func (Codec) Unmarshal(data []byte, v any) error {
	m, ok := v.(message)
	if !ok {
		return fmt.Errorf("orderspb codec: cannot unmarshal into %T", v)
	}
	return m.Unmarshal(data)
}

// Name implements encoding.Codec.
func (Codec) Name() string { return "proto" }
