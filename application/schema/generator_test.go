package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/ledgerhost/domain/entities"
)

func decode(t *testing.T, raw []byte) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestGenerateSchema_Manifest(t *testing.T) {
	raw, err := GenerateSchema(entities.Manifest{})
	require.NoError(t, err)

	doc := decode(t, raw)
	props, ok := doc["properties"].(map[string]interface{})
	require.True(t, ok, "properties should be a map")
	assert.Contains(t, props, "chain")
	assert.Contains(t, props, "contracts")
	assert.ElementsMatch(t, []interface{}{"chain", "contracts"}, doc["required"])
	assert.Equal(t, false, doc["additionalProperties"])

	// ManifestContract is referenced through $defs.
	defs, ok := doc["$defs"].(map[string]interface{})
	require.True(t, ok)
	contract, ok := defs["ManifestContract"].(map[string]interface{})
	require.True(t, ok)
	cprops := contract["properties"].(map[string]interface{})
	kind := cprops["kind"].(map[string]interface{})
	assert.ElementsMatch(t, []interface{}{"wasm", "abi", "script"}, kind["enum"])
	assert.Contains(t, cprops, "code_file")
	assert.Contains(t, cprops, "gas_limit")
}

func TestGenerateSchema_RequiredFromOmitempty(t *testing.T) {
	type Config struct {
		Required string  `json:"required"`
		Optional *string `json:"optional,omitempty"`
		Count    int     `json:"count,omitempty"`
	}

	raw, err := GenerateSchema(Config{})
	require.NoError(t, err)

	doc := decode(t, raw)
	assert.Equal(t, []interface{}{"required"}, doc["required"])
}

func TestGenerateSchema_Options(t *testing.T) {
	type Config struct {
		Host string `json:"host"`
	}

	raw, err := GenerateSchema(Config{})
	require.NoError(t, err)
	doc := decode(t, raw)
	assert.Contains(t, doc, "$id")
	assert.Equal(t, false, doc["additionalProperties"])

	raw, err = GenerateSchema(Config{}, WithAnonymous(), WithAdditionalProperties(true))
	require.NoError(t, err)
	doc = decode(t, raw)
	assert.NotContains(t, doc, "$id")
	assert.NotEqual(t, false, doc["additionalProperties"])
}

func TestGenerateSchema_EmptyStruct(t *testing.T) {
	type Empty struct{}

	raw, err := GenerateSchema(Empty{})
	require.NoError(t, err)
	assert.NotEmpty(t, decode(t, raw))
}
