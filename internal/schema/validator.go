package schema

import (
	// embed is used to embed the package-envelope schema for offline validation
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/advelops/adcp-salesagent/internal/apperr"
)

// Embedded schema describing the shape of one media-buy package in a
// create_media_buy/update_media_buy request. AdCP's published schemas are
// versioned externally; this embedded copy lets the agent validate offline
// rather than fetch on every call.
//
//go:embed embed_schema.json
var embeddedPackageSchema string

var packageSchemaLoader = gojsonschema.NewStringLoader(embeddedPackageSchema)

// ValidatePackageEnvelope validates one package's raw JSON against the
// AdCP package envelope shape. Locally-added fields on the input are
// tolerated (additionalProperties is left unset/true); the schema only
// enforces required fields are present with sane types.
func ValidatePackageEnvelope(raw []byte) error {
	result, err := gojsonschema.Validate(packageSchemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		var msgs []string
		for _, desc := range result.Errors() {
			msgs = append(msgs, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
		}
		return apperr.Validation("package envelope invalid: %s", strings.Join(msgs, "; "))
	}
	return nil
}
