// Package wire implements the AMQP 0-9-1 frame codec: the binary encoding and
// decoding of method, content-header, content-body and heartbeat frames. It is
// the external collaborator the rest of this module treats as a library --
// nothing above this package knows about field-table tags or bit-packed
// property flags.
package wire

import (
	"fmt"
	"time"
)

// Table is an AMQP field-table: a map of names to typed values. Nested
// Tables, field arrays ([]interface{}) and byte slices are all valid values,
// matching the 0-9-1 field-value grammar.
type Table map[string]interface{}

// Decimal is the AMQP decimal-value field type: a scale and a signed integer
// value such that the decoded value is Value * 10^-Scale.
type Decimal struct {
	Scale uint8
	Value int32
}

// validateField recurses into a field-table value checking that every leaf
// has a representable wire type. Mirrors the value types write.go's field
// encoder accepts.
func validateField(f interface{}) error {
	switch v := f.(type) {
	case nil, bool, byte, int8, int16, int32, int, int64, float32, float64, string, []byte, Decimal, time.Time:
		return nil
	case Table:
		for _, val := range v {
			if err := validateField(val); err != nil {
				return err
			}
		}
		return nil
	case []interface{}:
		for _, val := range v {
			if err := validateField(val); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("wire: unsupported field-table value type %T", v)
	}
}
