package safety

import (
	"encoding/json"
	"fmt"
)

// Level is the severity of a SafetyAlert. The numeric value is the total
// order: Normal < Concern < Urgent < Emergency.
type Level int

const (
	LevelNormal Level = iota
	LevelConcern
	LevelUrgent
	LevelEmergency
)

var levelNames = [...]string{
	LevelNormal:    "normal",
	LevelConcern:   "concern",
	LevelUrgent:    "urgent",
	LevelEmergency: "emergency",
}

func (l Level) String() string {
	if l.Valid() {
		return levelNames[l]
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

func (l Level) Valid() bool {
	return l >= LevelNormal && l <= LevelEmergency
}

// AtLeast reports whether l is as severe as other or more.
func (l Level) AtLeast(other Level) bool { return l >= other }

// RequiresCaregiver reports whether alerts at this level notify the care circle.
func (l Level) RequiresCaregiver() bool { return l >= LevelUrgent }

// MaxLevel returns the more severe of a and b.
func MaxLevel(a, b Level) Level {
	if a >= b {
		return a
	}
	return b
}

// ParseLevel maps a level name back to its Level.
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if name == s {
			return Level(i), nil
		}
	}
	return LevelNormal, fmt.Errorf("unknown severity level %q", s)
}

func (l Level) MarshalJSON() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid severity level %d", int(l))
	}
	return json.Marshal(l.String())
}

func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
