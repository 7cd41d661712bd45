package middleware_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lintai-dev/lintai-server/internal/middleware"
)

func TestValidateRunType(t *testing.T) {
	require.NoError(t, middleware.ValidateRunType("scan"))
	require.NoError(t, middleware.ValidateRunType("inventory"))
	require.NoError(t, middleware.ValidateRunType("SCAN"))
	require.Error(t, middleware.ValidateRunType("audit"))
	require.Error(t, middleware.ValidateRunType(""))
}

func TestValidateLogLevel(t *testing.T) {
	require.NoError(t, middleware.ValidateLogLevel(""))
	require.NoError(t, middleware.ValidateLogLevel("DEBUG"))
	require.NoError(t, middleware.ValidateLogLevel("info"))
	require.Error(t, middleware.ValidateLogLevel("LOUD"))
}

func TestValidateCallDepth(t *testing.T) {
	require.NoError(t, middleware.ValidateCallDepth(0))
	require.NoError(t, middleware.ValidateCallDepth(10))
	require.Error(t, middleware.ValidateCallDepth(-1))
	require.Error(t, middleware.ValidateCallDepth(11))
}

func TestValidateSubgraphDepth(t *testing.T) {
	require.NoError(t, middleware.ValidateSubgraphDepth(1))
	require.NoError(t, middleware.ValidateSubgraphDepth(5))
	require.Error(t, middleware.ValidateSubgraphDepth(0))
	require.Error(t, middleware.ValidateSubgraphDepth(6))
}

func TestSanitizeString(t *testing.T) {
	require.Equal(t, "src/app", middleware.SanitizeString("src/app\x00"))
	require.Equal(t, "ab", middleware.SanitizeString("a\x01b"))
	require.Equal(t, "spaced", middleware.SanitizeString("  spaced  "))
}
