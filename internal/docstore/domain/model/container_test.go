package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePartitionKeyPath(t *testing.T) {
	assert.NoError(t, ValidatePartitionKeyPath("/customerId"))
	assert.NoError(t, ValidatePartitionKeyPath("/address/zip"))
	assert.Error(t, ValidatePartitionKeyPath("customerId"))
	assert.Error(t, ValidatePartitionKeyPath("/"))
	assert.Error(t, ValidatePartitionKeyPath(""))
}

func TestParsePartitionKey(t *testing.T) {
	tests := []struct {
		raw, kind string
		want      interface{}
	}{
		{"A", "", "A"},
		{"7", PartitionKeyString, "7"},
		{"7", PartitionKeyNumber, 7.0},
		{"-1.5", PartitionKeyNumber, -1.5},
		{"true", PartitionKeyBool, true},
		{"anything", PartitionKeyNull, nil},
	}
	for _, tt := range tests {
		got, err := ParsePartitionKey(tt.raw, tt.kind)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}

	_, err := ParsePartitionKey("seven", PartitionKeyNumber)
	assert.Error(t, err)
	_, err = ParsePartitionKey("maybe", PartitionKeyBool)
	assert.Error(t, err)
	_, err = ParsePartitionKey("x", "uuid")
	assert.Error(t, err)
}
