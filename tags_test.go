package graphframe

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tagUser struct {
	UserID string `crud:"pk,property:userId"`
	Name   string `crud:"property:name"`
	bare   string
}

func TestParseTagsFromTypeBuildsMetadata(t *testing.T) {
	meta, err := parseTagsFromType(reflect.TypeOf(tagUser{}))
	require.NoError(t, err)
	assert.Equal(t, "tagUser", meta.Label)
	assert.Equal(t, "UserID", meta.PKField)
	assert.Equal(t, "userId", meta.PKProp)
	assert.Equal(t, "name", meta.Mappings["Name"])
	_, hasUnexported := meta.Mappings["bare"]
	assert.False(t, hasUnexported)
}

func TestParseTagsFromTypeMissingPropertyComponent(t *testing.T) {
	type badStruct struct {
		ID string `crud:"pk"`
	}
	_, err := parseTagsFromType(reflect.TypeOf(badStruct{}))
	require.Error(t, err)
	var tagErr *TagMappingError
	require.ErrorAs(t, err, &tagErr)
	assert.Equal(t, "badStruct", tagErr.Struct)
	assert.Equal(t, "ID", tagErr.Field)
}

func TestParseTagsFromTypeMissingPrimaryKey(t *testing.T) {
	type noKey struct {
		Name string `crud:"property:name"`
	}
	_, err := parseTagsFromType(reflect.TypeOf(noKey{}))
	require.Error(t, err)
	var tagErr *TagMappingError
	require.ErrorAs(t, err, &tagErr)
	assert.Equal(t, "noKey", tagErr.Struct)
}

func TestParseTagsFromTypeRejectsInvalidPropertyIdentifier(t *testing.T) {
	type badProp struct {
		ID   string `crud:"pk,property:id"`
		Evil string `crud:"property:1bad-name"`
	}
	_, err := parseTagsFromType(reflect.TypeOf(badProp{}))
	require.Error(t, err)
	var tagErr *TagMappingError
	require.ErrorAs(t, err, &tagErr)
	assert.Equal(t, "Evil", tagErr.Field)

	var idErr *InvalidIdentifierError
	assert.ErrorAs(t, err, &idErr)
}

func TestParseTagsGenericWrapper(t *testing.T) {
	meta, err := parseTags[tagUser]()
	require.NoError(t, err)
	assert.Equal(t, "tagUser", meta.Label)
}
