package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// DecodeRecords parses a JSON array of flat objects. The payload is read
// once into a generic document (keeping the field order of each object),
// checked against the records schema, then converted to records.
func DecodeRecords(data []byte) ([]Record, error) {
	const op = "decode records"
	doc, err := parseDocument(data)
	if err != nil {
		return nil, &Error{Kind: KindMalformedInput, Op: op, Err: err}
	}
	if err := validate(recordsSchema(), doc.value); err != nil {
		return nil, schemaError(op, err)
	}
	items := doc.value.([]any)
	out := make([]Record, 0, len(items))
	for i, item := range items {
		r, err := toRecord(item.(map[string]any), doc.keys[i])
		if err != nil {
			return nil, &Error{Kind: KindMalformedInput, Op: op, Err: err, Location: fmt.Sprintf("/%d", i)}
		}
		out = append(out, r)
	}
	return out, nil
}

// DecodeRecord parses one flat JSON object, as stored in a record file.
func DecodeRecord(data []byte) (Record, error) {
	const op = "decode record"
	doc, err := parseDocument(data)
	if err != nil {
		return nil, &Error{Kind: KindMalformedInput, Op: op, Err: err}
	}
	if err := validate(recordSchema(), doc.value); err != nil {
		return nil, schemaError(op, err)
	}
	r, err := toRecord(doc.value.(map[string]any), doc.keys[0])
	if err != nil {
		return nil, &Error{Kind: KindMalformedInput, Op: op, Err: err}
	}
	return r, nil
}

var errTrailing = errors.New("unexpected data after top-level value")

// document is a decoded JSON value plus the key order of every object that
// sits at record level (the top-level object, or the items of the top-level
// array). keys lines up with the records only once the schema accepted value.
type document struct {
	value any
	keys  [][]string
}

func parseDocument(data []byte) (*document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	d := &document{}
	v, err := d.read(dec, 0)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errTrailing
	}
	d.value = v
	return d, nil
}

func (d *document) read(dec *json.Decoder, depth int) (any, error) {
	tok, err := next(dec)
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch delim {
	case '[':
		arr := []any{}
		for dec.More() {
			v, err := d.read(dec, depth+1)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		if _, err := next(dec); err != nil {
			return nil, err
		}
		return arr, nil
	case '{':
		obj := map[string]any{}
		var keys []string
		for dec.More() {
			tok, err := next(dec)
			if err != nil {
				return nil, err
			}
			key, _ := tok.(string)
			v, err := d.read(dec, depth+1)
			if err != nil {
				return nil, err
			}
			if _, dup := obj[key]; !dup {
				keys = append(keys, key)
			}
			obj[key] = v
		}
		if _, err := next(dec); err != nil {
			return nil, err
		}
		if depth <= 1 {
			d.keys = append(d.keys, keys)
		}
		return obj, nil
	}
	return nil, fmt.Errorf("unexpected %v", delim)
}

// next is dec.Token with a premature end of input reported as such.
func next(dec *json.Decoder) (json.Token, error) {
	tok, err := dec.Token()
	if err == io.EOF {
		return nil, io.ErrUnexpectedEOF
	}
	return tok, err
}

// toRecord converts a schema-validated object; values are scalars only.
func toRecord(obj map[string]any, keys []string) (Record, error) {
	r := make(Record, 0, len(keys))
	for _, k := range keys {
		v, err := toValue(obj[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		r = append(r, Field{Name: k, Value: v})
	}
	return r, nil
}

func toValue(x any) (Value, error) {
	switch t := x.(type) {
	case string:
		return Text(t), nil
	case bool:
		if t {
			return Number(1), nil
		}
		return Number(0), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Null(), err
		}
		return Number(f), nil
	}
	return Null(), nil
}

// ReadAll is io.ReadAll with a MalformedInput error when the body is too large.
func ReadAll(r io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, &Error{Kind: KindMalformedInput, Op: "read body", Err: err}
	}
	if int64(len(b)) > limit {
		return nil, Errorf(KindMalformedInput, "read body", "payload exceeds %d bytes", limit)
	}
	return b, nil
}
