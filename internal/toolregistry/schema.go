package toolregistry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/mcpgateway/mcpgw/internal/gwerrors"
)

// schemaCache memoizes compiled input schemas by their raw JSON text,
// grounded on the teacher's pluginsdk.compileSchema cache — tool specs are
// registered once at startup but validated on every call, so compiling
// once and reusing avoids re-parsing the same schema per invocation.
var schemaCache sync.Map

// validateArguments validates arguments against schema (a tool's
// InputSchema). A tool registered with no schema accepts any arguments.
func validateArguments(toolName string, schema json.RawMessage, arguments json.RawMessage) error {
	if len(schema) == 0 {
		return nil
	}

	compiled, err := compileSchema(toolName, schema)
	if err != nil {
		return gwerrors.Wrap(gwerrors.KindInternal, "compile schema for tool "+toolName, err)
	}

	var decoded any
	if err := json.Unmarshal(arguments, &decoded); err != nil {
		return gwerrors.Wrap(gwerrors.KindValidation, "invalid arguments for tool "+toolName, err)
	}

	if err := compiled.Validate(decoded); err != nil {
		return gwerrors.Wrap(gwerrors.KindValidation, "arguments for tool "+toolName+" do not match its schema", err)
	}
	return nil
}

func compileSchema(toolName string, schema json.RawMessage) (*jsonschema.Schema, error) {
	key := toolName + ":" + string(schema)
	if cached, ok := schemaCache.Load(key); ok {
		if compiled, ok := cached.(*jsonschema.Schema); ok {
			return compiled, nil
		}
	}

	compiled, err := jsonschema.CompileString(fmt.Sprintf("%s.schema.json", toolName), string(schema))
	if err != nil {
		return nil, err
	}
	schemaCache.Store(key, compiled)
	return compiled, nil
}
