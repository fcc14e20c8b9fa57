package engine_test

import (
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/schemata/internal/engine"
)

func TestDecode_KeepsNumbers(t *testing.T) {
	v, err := engine.Decode([]byte(`{"a":1,"b":[1.5,"x",true,null],"c":{}}`), engine.EnforceOptions{})
	require.NoError(t, err)
	m := v.(map[string]any)
	assert.Equal(t, json.Number("1"), m["a"])
	assert.Equal(t, []any{json.Number("1.5"), "x", true, nil}, m["b"])
	assert.Equal(t, map[string]any{}, m["c"])
}

func TestDecode_DuplicateKeys(t *testing.T) {
	doc := []byte(`{"a":{"k":1,"k":2}}`)

	_, err := engine.Decode(doc, engine.EnforceOptions{OnDuplicate: engine.DupError})
	require.Error(t, err)
	var ie engine.IssueError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, engine.CodeDuplicateKey, ie.Code)
	assert.Equal(t, "/a/k", ie.Path)

	v, err := engine.Decode(doc, engine.EnforceOptions{OnDuplicate: engine.DupIgnore})
	require.NoError(t, err)
	assert.Equal(t, json.Number("2"), v.(map[string]any)["a"].(map[string]any)["k"])

	_, err = engine.Decode([]byte(`{"a/b":{"~k":1,"~k":2}}`), engine.EnforceOptions{OnDuplicate: engine.DupError})
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "/a~1b/~0k", ie.Path)

	// same key in sibling objects is fine
	_, err = engine.Decode([]byte(`[{"k":1},{"k":2}]`), engine.EnforceOptions{OnDuplicate: engine.DupError})
	require.NoError(t, err)
}

func TestDecode_MaxDepth(t *testing.T) {
	_, err := engine.Decode([]byte(`{"a":{"b":{"c":1}}}`), engine.EnforceOptions{MaxDepth: 2})
	require.Error(t, err)
	var ie engine.IssueError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, engine.CodeParseError, ie.Code)
	assert.Equal(t, "/a/b", ie.Path)

	_, err = engine.Decode([]byte(`{"a":{"b":1}}`), engine.EnforceOptions{MaxDepth: 2})
	require.NoError(t, err)
}

func TestDecode_Malformed(t *testing.T) {
	_, err := engine.Decode([]byte(`{"a":`), engine.EnforceOptions{})
	require.Error(t, err)

	_, err = engine.Decode([]byte(`1 2`), engine.EnforceOptions{})
	require.Error(t, err)

	_, err = engine.Decode(nil, engine.EnforceOptions{})
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))

	_, err = engine.Decode([]byte(`[1,2,3]`), engine.EnforceOptions{MaxBytes: 4})
	require.Error(t, err)
}
