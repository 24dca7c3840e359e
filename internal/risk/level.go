package risk

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

const (
	criticalLevelValueConstant       = "Critical"
	highLevelValueConstant           = "High"
	mediumLevelValueConstant         = "Medium"
	lowLevelValueConstant            = "Low"
	noneLevelValueConstant           = "None"
	criticalScoreThresholdConstant   = 75.0
	highScoreThresholdConstant       = 50.0
	mediumScoreThresholdConstant     = 25.0
	lowScoreThresholdConstant        = 5.0
	minimumScoreConstant             = 0.0
	maximumScoreConstant             = 100.0
	unsupportedLevelErrorTemplate    = "unsupported risk level %q"
	levelDecodeErrorTemplateConstant = "unable to decode risk level: %w"
	highOrAboveLevelRankThreshold    = 3
	unknownLevelRankConstant         = -1
	noneLevelRankConstant            = 0
	lowLevelRankConstant             = 1
	mediumLevelRankConstant          = 2
	highLevelRankConstant            = 3
	criticalLevelRankConstant        = 4
)

var jsonNullLiteral = []byte("null")

// Level enumerates the coarse risk classification of an audit.
type Level string

// Supported risk levels.
const (
	LevelCritical Level = criticalLevelValueConstant
	LevelHigh     Level = highLevelValueConstant
	LevelMedium   Level = mediumLevelValueConstant
	LevelLow      Level = lowLevelValueConstant
	LevelNone     Level = noneLevelValueConstant
)

var levelRanks = map[Level]int{
	LevelNone:     noneLevelRankConstant,
	LevelLow:      lowLevelRankConstant,
	LevelMedium:   mediumLevelRankConstant,
	LevelHigh:     highLevelRankConstant,
	LevelCritical: criticalLevelRankConstant,
}

// LevelForScore maps a risk score onto its band.
func LevelForScore(score float64) Level {
	switch {
	case score > criticalScoreThresholdConstant:
		return LevelCritical
	case score >= highScoreThresholdConstant:
		return LevelHigh
	case score >= mediumScoreThresholdConstant:
		return LevelMedium
	case score >= lowScoreThresholdConstant:
		return LevelLow
	default:
		return LevelNone
	}
}

// ClampScore bounds a risk score to the inclusive range [0, 100].
func ClampScore(score float64) float64 {
	return math.Max(minimumScoreConstant, math.Min(maximumScoreConstant, score))
}

// ParseLevel interprets a textual level case-insensitively.
func ParseLevel(value string) (Level, error) {
	trimmedValue := strings.TrimSpace(value)
	for candidateLevel := range levelRanks {
		if strings.EqualFold(string(candidateLevel), trimmedValue) {
			return candidateLevel, nil
		}
	}
	return "", fmt.Errorf(unsupportedLevelErrorTemplate, value)
}

// Rank orders levels from None (0) to Critical (4); unknown levels rank below None.
func (level Level) Rank() int {
	rank, known := levelRanks[level]
	if !known {
		return unknownLevelRankConstant
	}
	return rank
}

// AtLeastHigh reports whether the level is High or Critical.
func (level Level) AtLeastHigh() bool {
	return level.Rank() >= highOrAboveLevelRankThreshold
}

// UnmarshalJSON accepts any casing of the supported level names. Null leaves the level unset
// and unrecognized names are kept verbatim, ranking below None.
func (level *Level) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), jsonNullLiteral) {
		return nil
	}
	var textValue string
	if decodeError := json.Unmarshal(data, &textValue); decodeError != nil {
		return fmt.Errorf(levelDecodeErrorTemplateConstant, decodeError)
	}
	parsedLevel, parseError := ParseLevel(textValue)
	if parseError != nil {
		*level = Level(strings.TrimSpace(textValue))
		return nil
	}
	*level = parsedLevel
	return nil
}
