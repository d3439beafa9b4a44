package kv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeSet_SortedAndDeduplicated(t *testing.T) {
	got := EncodeSet([]string{"ten_clicks", "first_click", "ten_clicks"})
	assert.Equal(t, `["first_click","ten_clicks"]`, got)
}

func TestEncodeSet_Empty(t *testing.T) {
	assert.Equal(t, `[]`, EncodeSet(nil))
}

func TestEncodeSet_NoHTMLEscaping(t *testing.T) {
	assert.Equal(t, `["a<b>&c"]`, EncodeSet([]string{"a<b>&c"}))
}

func TestEncodeSet_NormalizesIDs(t *testing.T) {
	got := EncodeSet([]string{"cafe\u0301", "caf\u00e9"})
	assert.Equal(t, "[\"caf\u00e9\"]", got)
}

func TestDecodeSet(t *testing.T) {
	ids, err := DecodeSet(`["valcom_mvc","coding_dojo_teaching"]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"valcom_mvc", "coding_dojo_teaching"}, ids)

	ids, err = DecodeSet(`null`)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestDecodeSet_Malformed(t *testing.T) {
	for _, raw := range []string{``, `{`, `{"a":1}`, `[1,2]`} {
		_, err := DecodeSet(raw)
		assert.Error(t, err, raw)
	}
}
