// internal/domain/models/level.go
package models

import "fmt"

// Level is the content difficulty of an article. The set is fixed and
// ordered from Beginner to Expert.
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
	LevelExpert       Level = "expert"
)

// AllLevels lists every valid level in ascending order of difficulty.
var AllLevels = []Level{LevelBeginner, LevelIntermediate, LevelAdvanced, LevelExpert}

// ParseLevel validates a raw level string and returns the typed Level.
func ParseLevel(s string) (Level, error) {
	for _, l := range AllLevels {
		if Level(s) == l {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown level %q (want one of beginner|intermediate|advanced|expert)", s)
}
