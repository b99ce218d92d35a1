package tools

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/privacyshield/pkg/shield"
)

func TestCheckOutputSchema(t *testing.T) {
	type nilSlice struct {
		Failed []int `json:"failed"`
	}
	type omitted struct {
		Failed []int `json:"failed,omitzero"`
		Unsent []int `json:"unsent,omitempty"`
	}
	type rawBody struct {
		Body json.RawMessage `json:"body,omitempty"`
	}
	type rawInBatch struct {
		Batches []struct {
			Bodies map[string]json.RawMessage `json:"bodies"`
		} `json:"batches,omitzero"`
	}
	type anyBody struct {
		Bodies []any `json:"bodies,omitzero"`
	}

	assert.Panics(t, func() { CheckOutputSchema[nilSlice]("nil_slice") })
	assert.Panics(t, func() { CheckOutputSchema[rawBody]("raw_body") })
	assert.Panics(t, func() { CheckOutputSchema[rawInBatch]("raw_nested") })

	assert.NotPanics(t, func() { CheckOutputSchema[omitted]("omitted") })
	assert.NotPanics(t, func() { CheckOutputSchema[anyBody]("any_body") })
	assert.NotPanics(t, func() { CheckOutputSchema[any]("untyped") })
}

func TestCheckOutputSchema_shieldTools(t *testing.T) {
	assert.NotPanics(t, func() {
		CheckOutputSchema[ProfilesOutput]("shield_profiles")
		CheckOutputSchema[PlanOutput]("shield_plan")
		CheckOutputSchema[ExecuteOutput]("shield_execute")
		CheckOutputSchema[ModeOutput]("shield_mode")
		CheckOutputSchema[BudgetOutput]("shield_budget")
	})
}

func TestRawMessagePaths(t *testing.T) {
	type inner struct {
		Proof json.RawMessage
	}
	type outer struct {
		Name    string
		Inner   *inner
		Headers map[string]json.RawMessage
	}

	assert.ElementsMatch(t, []string{"Inner.Proof", "Headers[value]"}, rawMessagePaths(reflect.TypeFor[outer]()))
	assert.Empty(t, rawMessagePaths(reflect.TypeFor[shield.QueryResult]()))
}

func TestCodedHandler(t *testing.T) {
	h := codedHandler(func(ctx context.Context, req *sdkmcp.CallToolRequest, in string) (*sdkmcp.CallToolResult, int, error) {
		switch in {
		case "offline":
			return nil, 0, shield.ErrNetworkDisallowed
		case "bad":
			return nil, 0, ErrInvalidInput("bad input")
		case "boom":
			return nil, 0, errors.New("boom")
		}
		return nil, 42, nil
	})

	_, out, err := h(context.Background(), nil, "ok")
	require.NoError(t, err)
	assert.Equal(t, 42, out)

	_, _, err = h(context.Background(), nil, "offline")
	requireCode(t, err, ErrCodeNetworkDisallowed)

	_, _, err = h(context.Background(), nil, "bad")
	requireCode(t, err, ErrCodeInvalidInput)

	_, _, err = h(context.Background(), nil, "boom")
	requireCode(t, err, ErrCodeInternal)
}
