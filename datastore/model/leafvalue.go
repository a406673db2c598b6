package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/damianoneill/ncstore/schema"
)

// LeafValue is a typed scalar in canonical form. Two values are equal iff type and
// canonical value match, so LeafValue may be compared with ==.
type LeafValue struct {
	Type  schema.LeafType
	Value string
}

// Unset is the zero LeafValue. Mapping an attribute to Unset in an update removes the attribute.
var Unset = LeafValue{}

// IsSet reports whether v holds a value.
func (v LeafValue) IsSet() bool {
	return v != Unset
}

func (v LeafValue) String() string {
	return v.Value
}

// StringValue delivers a string typed value.
func StringValue(s string) LeafValue {
	return LeafValue{Type: schema.String, Value: s}
}

var intBits = map[schema.LeafType]int{
	schema.Int8: 8, schema.Int16: 16, schema.Int32: 32, schema.Int64: 64,
}

var uintBits = map[schema.LeafType]int{
	schema.Uint8: 8, schema.Uint16: 16, schema.Uint32: 32, schema.Uint64: 64,
}

// NewLeafValue delivers the canonical value of raw for type t, failing if raw is not a valid
// lexical representation.
func NewLeafValue(t schema.LeafType, raw string) (LeafValue, error) {
	if t == "" {
		t = schema.String
	}
	s := strings.TrimSpace(raw)

	if bits, ok := intBits[t]; ok {
		i, err := strconv.ParseInt(s, 10, bits)
		if err != nil {
			return Unset, fmt.Errorf("invalid %s value %q", t, raw)
		}
		return LeafValue{Type: t, Value: strconv.FormatInt(i, 10)}, nil
	}
	if bits, ok := uintBits[t]; ok {
		u, err := strconv.ParseUint(strings.TrimPrefix(s, "+"), 10, bits)
		if err != nil {
			return Unset, fmt.Errorf("invalid %s value %q", t, raw)
		}
		return LeafValue{Type: t, Value: strconv.FormatUint(u, 10)}, nil
	}

	switch t {
	case schema.Boolean:
		if s != "true" && s != "false" {
			return Unset, fmt.Errorf("invalid boolean value %q", raw)
		}
		return LeafValue{Type: t, Value: s}, nil
	case schema.Decimal64:
		d, err := canonicalDecimal(s)
		if err != nil {
			return Unset, fmt.Errorf("invalid decimal64 value %q", raw)
		}
		return LeafValue{Type: t, Value: d}, nil
	case schema.Empty:
		if s != "" {
			return Unset, fmt.Errorf("empty leaf cannot hold value %q", raw)
		}
		return LeafValue{Type: t}, nil
	case schema.Enumeration, schema.Identityref, schema.InstanceIdentifier, schema.Bits:
		return LeafValue{Type: t, Value: strings.Join(strings.Fields(s), " ")}, nil
	default:
		// Strings keep their whitespace.
		return LeafValue{Type: t, Value: raw}, nil
	}
}

// canonicalDecimal strips redundant signs and zeros: "+007.50" -> "7.5", "3" -> "3.0".
func canonicalDecimal(s string) (string, error) {
	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg, s = true, s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i+1:]
	}
	if intPart == "" && frac == "" {
		return "", fmt.Errorf("no digits")
	}
	for _, c := range intPart + frac {
		if c < '0' || c > '9' {
			return "", fmt.Errorf("not a digit: %q", c)
		}
	}
	intPart = strings.TrimLeft(intPart, "0")
	if intPart == "" {
		intPart = "0"
	}
	frac = strings.TrimRight(frac, "0")
	if frac == "" {
		frac = "0"
	}
	if neg && (intPart != "0" || frac != "0") {
		intPart = "-" + intPart
	}
	return intPart + "." + frac, nil
}
