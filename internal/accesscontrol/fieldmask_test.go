package accesscontrol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckMaskFlatPaths(t *testing.T) {
	forbidden := []string{"role", "tokens"}

	require.True(t, CheckMask(forbidden, map[string]any{"name": "x"}).OK)

	result := CheckMask(forbidden, map[string]any{"role": "admin"})
	require.False(t, result.OK)
	require.Equal(t, "role", result.ViolatingPath)
}

func TestCheckMaskNestedPaths(t *testing.T) {
	forbidden := []string{"userDetails.branchId"}

	hit := CheckMask(forbidden, map[string]any{
		"userDetails": map[string]any{"branchId": "u2"},
	})
	require.False(t, hit.OK)
	require.Equal(t, "userDetails.branchId", hit.ViolatingPath)

	miss := CheckMask(forbidden, map[string]any{
		"userDetails": map[string]any{"phone": "123"},
	})
	require.True(t, miss.OK)
}

func TestCheckMaskEmptyListMeansNoRestrictions(t *testing.T) {
	payload := map[string]any{"role": "admin", "tokens": []any{"t"}}

	require.True(t, CheckMask(nil, payload).OK)
	require.True(t, CheckMask([]string{}, payload).OK)
}

func TestCheckMaskDecodedJSONPayload(t *testing.T) {
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"name":"a","userDetails":{"phone":"1","batch":2024}}`), &payload))

	result := CheckMask([]string{"role", "userDetails.batch"}, payload)
	require.False(t, result.OK)
	require.Equal(t, "userDetails.batch", result.ViolatingPath)
}

func TestCheckMaskIntermediateScalarIsNotAResolution(t *testing.T) {
	// The full path does not resolve through a scalar, so nothing forbidden
	// was addressed.
	result := CheckMask([]string{"userDetails.branchId"}, map[string]any{"userDetails": "replaced"})
	require.True(t, result.OK)
}
