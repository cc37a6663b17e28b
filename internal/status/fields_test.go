package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringFieldAliasResolution(t *testing.T) {
	testCases := []struct {
		desc     string
		payload  map[string]any
		aliases  []string
		expected string
	}{
		{
			"first alias wins",
			map[string]any{"orderId": "O1", "order_id": "O2"},
			orderIDAliases,
			"O1",
		},
		{
			"falls through to later alias",
			map[string]any{"order_id": "O2"},
			orderIDAliases,
			"O2",
		},
		{
			"empty value is skipped",
			map[string]any{"fileId": "  ", "file_id": "F1"},
			fileIDAliases,
			"F1",
		},
		{
			"literal null is skipped",
			map[string]any{"fileId": "null", "files_id": "F2"},
			fileIDAliases,
			"F2",
		},
		{
			"nothing matches",
			map[string]any{"unrelated": "x"},
			orderIDAliases,
			"",
		},
		{
			"camel case source service",
			map[string]any{"sourceService": "svc-x"},
			sourceServiceAliases,
			"svc-x",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.expected, stringField(tc.payload, tc.aliases...))
		})
	}
}

func TestIntFieldParsesNumbersAndStrings(t *testing.T) {
	v, ok := intField(map[string]any{"distributorId": float64(7)}, distributorIDAliases...)
	assert.True(t, ok)
	assert.Equal(t, 7, v)

	v, ok = intField(map[string]any{"firm_id": "12"}, distributorIDAliases...)
	assert.True(t, ok)
	assert.Equal(t, 12, v)

	_, ok = intField(map[string]any{"distributorId": "not-a-number"}, distributorIDAliases...)
	assert.False(t, ok)

	_, ok = intField(map[string]any{}, distributorIDAliases...)
	assert.False(t, ok)
}
