package rules

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaSource string

type schema struct {
	ctx  *cue.Context
	file cue.Value
}

var (
	schemaOnce sync.Once
	schemaVal  *schema
	schemaErr  error
	// cue.Context is not safe for concurrent use.
	schemaMu sync.Mutex
)

func loadSchema() (*schema, error) {
	schemaOnce.Do(func() {
		ctx := cuecontext.New()
		v := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile rule schema: %w", err)
			return
		}
		def := v.LookupPath(cue.ParsePath("#File"))
		if err := def.Err(); err != nil {
			schemaErr = fmt.Errorf("lookup #File: %w", err)
			return
		}
		schemaVal = &schema{ctx: ctx, file: def}
	})
	return schemaVal, schemaErr
}

// checkSchema validates a generically decoded YAML document against #File.
// Every schema violation becomes one E200 error.
func checkSchema(path string, doc any) []ValidationError {
	s, err := loadSchema()
	if err != nil {
		return []ValidationError{{File: path, Field: "schema", Message: err.Error(), Code: ErrSchema}}
	}

	schemaMu.Lock()
	defer schemaMu.Unlock()

	v := s.ctx.Encode(doc)
	if err := v.Err(); err != nil {
		return cueValidationErrors(path, err)
	}
	if err := s.file.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return cueValidationErrors(path, err)
	}
	return nil
}

// cueValidationErrors flattens a CUE error list, keeping the value path of
// each violation.
func cueValidationErrors(path string, err error) []ValidationError {
	var out []ValidationError
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		out = append(out, ValidationError{
			File:    path,
			Field:   strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
			Code:    ErrSchema,
		})
	}
	if len(out) == 0 {
		out = append(out, ValidationError{File: path, Field: "schema", Message: err.Error(), Code: ErrSchema})
	}
	return out
}
