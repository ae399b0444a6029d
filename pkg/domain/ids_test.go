package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "masters/pkg/domain-errors"
)

func TestParseRecordIDRoundTrip(t *testing.T) {
	id := NewRecordID()
	parsed, err := ParseRecordID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseTypeIDRoundTrip(t *testing.T) {
	id := NewTypeID()
	parsed, err := ParseTypeID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"garbage", "not-a-uuid"},
		{"nil uuid", "00000000-0000-0000-0000-000000000000"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseRecordID(tc.in)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))

			_, err = ParseTypeID(tc.in)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
		})
	}
}

func TestIsNil(t *testing.T) {
	assert.True(t, RecordID{}.IsNil())
	assert.True(t, TypeID{}.IsNil())
	assert.False(t, NewRecordID().IsNil())
}

func TestJSONRendersCanonicalUUID(t *testing.T) {
	id := NewRecordID()
	raw, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"`+id.String()+`"`, string(raw))

	var back RecordID
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, id, back)
}
