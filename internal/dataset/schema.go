package dataset

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const recordSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": {"type": ["number", "string", "boolean", "null"]}
}`

const recordsSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "additionalProperties": {"type": ["number", "string", "boolean", "null"]}
  }
}`

var (
	schemaOnce sync.Once
	schemaErr  error
	recordSch  *jsonschema.Schema
	recordsSch *jsonschema.Schema
)

func compileSchemas() {
	compile := func(url, src string) *jsonschema.Schema {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(url, strings.NewReader(src)); err != nil {
			schemaErr = err
			return nil
		}
		s, err := c.Compile(url)
		if err != nil {
			schemaErr = err
		}
		return s
	}
	recordSch = compile("record.schema.json", recordSchemaJSON)
	recordsSch = compile("records.schema.json", recordsSchemaJSON)
}

func recordSchema() *jsonschema.Schema {
	schemaOnce.Do(compileSchemas)
	return recordSch
}

func recordsSchema() *jsonschema.Schema {
	schemaOnce.Do(compileSchemas)
	return recordsSch
}

// validate checks a document decoded with UseNumber.
func validate(s *jsonschema.Schema, doc any) error {
	if schemaErr != nil {
		return schemaErr
	}
	return s.Validate(doc)
}

// schemaError turns a validation failure into a MalformedInput error that
// points at the first offending value, e.g. /3/src_bytes.
func schemaError(op string, err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &Error{Kind: KindInternal, Op: op, Err: err}
	}
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	loc := leaf.InstanceLocation
	where := loc
	if where == "" {
		where = "/"
	}
	return &Error{Kind: KindMalformedInput, Op: op, Err: fmt.Errorf("%s: %s", where, leaf.Message), Location: loc}
}
