package dataset

import (
	"strconv"
)

type valueType uint8

const (
	nullValue valueType = iota
	numberValue
	textValue
)

// Value is one scalar cell: null, a number or a text.
type Value struct {
	t   valueType
	num float64
	str string
}

func Null() Value { return Value{} }
func Number(f float64) Value { return Value{t: numberValue, num: f} }
func Text(s string) Value { return Value{t: textValue, str: s} }
func (v Value) IsNull() bool { return v.t == nullValue }
func (v Value) IsNumber() bool { return v.t == numberValue }
func (v Value) IsText() bool { return v.t == textValue }

// Float returns the numeric value; ok is false for null and text.
func (v Value) Float() (float64, bool) { return v.num, v.t == numberValue }

// Str returns the text value; ok is false for null and numbers.
func (v Value) Str() (string, bool) { return v.str, v.t == textValue }

// Any converts back to a JSON-friendly Go value.
func (v Value) Any() any {
	switch v.t {
	case numberValue:
		return v.num
	case textValue:
		return v.str
	}
	return nil
}

func (v Value) String() string {
	switch v.t {
	case numberValue:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case textValue:
		return v.str
	}
	return "null"
}

type Field struct {
	Name  string
	Value Value
}

// Record is one observation with its fields in source order.
type Record []Field

// Get returns the last value stored under name.
func (r Record) Get(name string) (Value, bool) {
	for i := len(r) - 1; i >= 0; i-- {
		if r[i].Name == name {
			return r[i].Value, true
		}
	}
	return Null(), false
}
