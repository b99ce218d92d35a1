package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// AddTool registers a shield tool. The output type is checked against its
// inferred schema before registration, and every error the handler returns
// reaches the client as a CodedError.
//
// Panics if Out cannot be emitted as valid structured content.
func AddTool[In, Out any](srv *sdkmcp.Server, t *sdkmcp.Tool, h sdkmcp.ToolHandlerFor[In, Out]) {
	CheckOutputSchema[Out](t.Name)
	sdkmcp.AddTool(srv, t, codedHandler(h))
}

// codedHandler maps uncoded handler errors through WrapShieldError.
func codedHandler[In, Out any](h sdkmcp.ToolHandlerFor[In, Out]) sdkmcp.ToolHandlerFor[In, Out] {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, in In) (*sdkmcp.CallToolResult, Out, error) {
		res, out, err := h(ctx, req, in)
		if err != nil {
			return res, out, WrapShieldError(err)
		}
		return res, out, nil
	}
}

// CheckOutputSchema panics when the zero value of T would fail the schema
// the SDK infers for it. A nil slice marshals to null where the schema wants
// an array; tag such fields omitzero or omitempty. Fields typed
// json.RawMessage are rejected outright since the schema describes them as
// byte arrays. Result bodies belong in fields typed any.
func CheckOutputSchema[T any](toolName string) {
	rt := reflect.TypeFor[T]()
	if rt == reflect.TypeFor[any]() {
		return
	}
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}

	if paths := rawMessagePaths(rt); len(paths) > 0 {
		panic(fmt.Sprintf("tool %q: output %s uses json.RawMessage at %s; decode into an any field instead",
			toolName, rt, strings.Join(paths, ", ")))
	}

	schema, err := jsonschema.ForType(rt, &jsonschema.ForOptions{})
	if err != nil {
		return
	}
	resolved, err := schema.Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		return
	}

	data, err := json.Marshal(reflect.Zero(rt).Interface())
	if err != nil {
		return
	}
	var zero map[string]any
	if json.Unmarshal(data, &zero) != nil {
		return
	}
	if err := resolved.Validate(&zero); err != nil {
		panic(fmt.Sprintf("tool %q: zero %s fails its own schema: %v (json: %s); tag nil-defaulting slices omitzero",
			toolName, rt, err, data))
	}
}

var rawMessageType = reflect.TypeFor[json.RawMessage]()

// rawMessagePaths lists the dotted field paths of t that hold a
// json.RawMessage, looking through pointers, slices and map values.
func rawMessagePaths(t reflect.Type) []string {
	var found []string
	seen := make(map[reflect.Type]bool)

	var walk func(t reflect.Type, path string)
	walk = func(t reflect.Type, path string) {
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if t == rawMessageType {
			found = append(found, path)
			return
		}
		if seen[t] {
			return
		}
		seen[t] = true
		defer delete(seen, t)

		switch t.Kind() {
		case reflect.Struct:
			for i := range t.NumField() {
				if f := t.Field(i); f.IsExported() {
					walk(f.Type, joinPath(path, f.Name))
				}
			}
		case reflect.Slice, reflect.Array:
			walk(t.Elem(), path+"[]")
		case reflect.Map:
			walk(t.Elem(), path+"[value]")
		}
	}
	walk(t, "")
	return found
}

func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}
