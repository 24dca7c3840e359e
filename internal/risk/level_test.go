package risk_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/secaudit/internal/risk"
)

func TestLevelForScoreBanding(testInstance *testing.T) {
	testCases := []struct {
		name          string
		score         float64
		expectedLevel risk.Level
	}{
		{name: "maximum", score: 100, expectedLevel: risk.LevelCritical},
		{name: "just_above_critical_threshold", score: 75.5, expectedLevel: risk.LevelCritical},
		{name: "critical_threshold_is_high", score: 75, expectedLevel: risk.LevelHigh},
		{name: "high_lower_bound", score: 50, expectedLevel: risk.LevelHigh},
		{name: "medium_upper", score: 49.9, expectedLevel: risk.LevelMedium},
		{name: "medium_lower_bound", score: 25, expectedLevel: risk.LevelMedium},
		{name: "low", score: 12, expectedLevel: risk.LevelLow},
		{name: "low_lower_bound", score: 5, expectedLevel: risk.LevelLow},
		{name: "none", score: 4.99, expectedLevel: risk.LevelNone},
		{name: "zero", score: 0, expectedLevel: risk.LevelNone},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedLevel, risk.LevelForScore(testCase.score))
		})
	}
}

func TestClampScoreBoundsRange(testInstance *testing.T) {
	require.InDelta(testInstance, 0.0, risk.ClampScore(-12), 0.0001)
	require.InDelta(testInstance, 100.0, risk.ClampScore(140), 0.0001)
	require.InDelta(testInstance, 42.5, risk.ClampScore(42.5), 0.0001)
}

func TestLevelAtLeastHigh(testInstance *testing.T) {
	require.True(testInstance, risk.LevelCritical.AtLeastHigh())
	require.True(testInstance, risk.LevelHigh.AtLeastHigh())
	require.False(testInstance, risk.LevelMedium.AtLeastHigh())
	require.False(testInstance, risk.LevelLow.AtLeastHigh())
	require.False(testInstance, risk.LevelNone.AtLeastHigh())
	require.False(testInstance, risk.Level("unknown").AtLeastHigh())
}

func TestLevelUnmarshalAcceptsAnyCase(testInstance *testing.T) {
	var decodedLevel risk.Level
	require.NoError(testInstance, json.Unmarshal([]byte(`"critical"`), &decodedLevel))
	require.Equal(testInstance, risk.LevelCritical, decodedLevel)

	require.NoError(testInstance, json.Unmarshal([]byte(`" Severe "`), &decodedLevel))
	require.Equal(testInstance, risk.Level("Severe"), decodedLevel)
	require.Equal(testInstance, -1, decodedLevel.Rank())

	unsetLevel := risk.LevelHigh
	require.NoError(testInstance, json.Unmarshal([]byte(`null`), &unsetLevel))
	require.Equal(testInstance, risk.LevelHigh, unsetLevel)

	require.Error(testInstance, json.Unmarshal([]byte(`42`), &decodedLevel))
}
