package logger

import (
	"fmt"
	"strings"

	"github.com/go-kit/kit/log/level"
)

// Level is a verbosity threshold. Names follow the --verbose values the
// deployment scripts have always accepted.
type Level string

const (
	LevelDebug    Level = "DEBUG"
	LevelInfo     Level = "INFO"
	LevelWarning  Level = "WARNING"
	LevelError    Level = "ERROR"
	LevelCritical Level = "CRITICAL"
	LevelNone     Level = "NONE"
)

var levels = []Level{LevelDebug, LevelInfo, LevelWarning, LevelError, LevelCritical, LevelNone}

// ParseLevel accepts a level name in any case.
func ParseLevel(s string) (Level, error) {
	want := Level(strings.ToUpper(strings.TrimSpace(s)))
	for _, l := range levels {
		if l == want {
			return l, nil
		}
	}
	return "", fmt.Errorf("invalid verbose level: %s (valid: DEBUG, INFO, WARNING, ERROR, CRITICAL, NONE)", s)
}

// CRITICAL has no go-kit equivalent and is treated as ERROR.
func (l Level) option() level.Option {
	switch l {
	case LevelDebug:
		return level.AllowDebug()
	case LevelWarning:
		return level.AllowWarn()
	case LevelError, LevelCritical:
		return level.AllowError()
	case LevelNone:
		return level.AllowNone()
	default:
		return level.AllowInfo()
	}
}

// LevelValue is a pflag.Value for --verbose.
type LevelValue struct {
	level Level
}

// NewLevelValue returns a LevelValue defaulting to INFO.
func NewLevelValue() *LevelValue {
	return &LevelValue{level: LevelInfo}
}

func (v *LevelValue) String() string {
	return string(v.level)
}

func (v *LevelValue) Set(s string) error {
	l, err := ParseLevel(s)
	if err != nil {
		return err
	}
	v.level = l
	return nil
}

func (v *LevelValue) Type() string {
	return "level"
}

// Level returns the parsed level.
func (v *LevelValue) Level() Level {
	return v.level
}
