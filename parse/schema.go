package parse

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/JoshPattman/cvwizard/datamodels"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var parsedCVSchema string

var ErrSchema = errors.New("parsed cv does not match schema")

var schemaLoader = gojsonschema.NewStringLoader(parsedCVSchema)

// DecodeParsedCV validates raw against the ParsedCV JSON schema and decodes it.
func DecodeParsedCV(raw []byte) (datamodels.ParsedCV, error) {
	res, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return datamodels.ParsedCV{}, fmt.Errorf("validate parsed cv: %w", err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return datamodels.ParsedCV{}, fmt.Errorf("%w: %s", ErrSchema, strings.Join(msgs, "; "))
	}
	var cv datamodels.ParsedCV
	if err := json.Unmarshal(raw, &cv); err != nil {
		return datamodels.ParsedCV{}, fmt.Errorf("decode parsed cv: %w", err)
	}
	return cv, nil
}
