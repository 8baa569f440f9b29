package mcp

import (
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// decode converts tool arguments into T by a JSON round trip. A type
// mismatch names the offending argument, e.g. `argument "items.loc" must
// be int`.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var out T
	raw, err := json.Marshal(req.GetArguments())
	if err != nil {
		return out, fmt.Errorf("arguments are not JSON: %w", err)
	}

	err = json.Unmarshal(raw, &out)
	var typeErr *json.UnmarshalTypeError
	switch {
	case err == nil:
		return out, nil
	case stderrors.As(err, &typeErr) && typeErr.Field != "":
		return out, fmt.Errorf("argument %q must be %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value)
	default:
		return out, fmt.Errorf("invalid arguments: %w", err)
	}
}
