// internal/pipeline/schema.go
package pipeline

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// feedRecordSchema is the shape contract for one raw license-feed row
// before it becomes a business record.
const feedRecordSchema = `{
  "type": "object",
  "properties": {
    "business_name": {"type": "string", "minLength": 1},
    "dba_name": {"type": "string"},
    "address": {"type": "string", "minLength": 1},
    "business_type": {"type": "string", "minLength": 1},
    "valid_license_for": {"type": "string", "pattern": "^[0-9]{4}$"}
  },
  "required": ["business_name", "address", "business_type", "valid_license_for"]
}`

var feedSchema = func() *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(feedRecordSchema))
	if err != nil {
		panic(fmt.Sprintf("invalid feed record schema: %v", err))
	}
	return schema
}()

// validateFeedRow checks a raw feed row against the schema and returns a
// joined message of everything wrong with it.
func validateFeedRow(row map[string]interface{}) error {
	result, err := feedSchema.Validate(gojsonschema.NewGoLoader(row))
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if result.Valid() {
		return nil
	}

	messages := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		messages = append(messages, desc.String())
	}
	return fmt.Errorf("invalid feed row: %s", strings.Join(messages, "; "))
}
