package entity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownLevel   = errors.New("unknown level")
	ErrInvalidUpgrade = errors.New("invalid upgrade")
)

// Level is the membership tier of a user. Tiers are ordered and only ever advance.
// The zero value means "not assigned yet"; the creation path replaces it with LevelBasic.
type Level int

const (
	LevelBasic  Level = 1
	LevelSilver Level = 2
	LevelGold   Level = 3
)

func (l Level) Valid() bool {
	return l >= LevelBasic && l <= LevelGold
}

func (l Level) String() string {
	switch l {
	case LevelBasic:
		return "BASIC"
	case LevelSilver:
		return "SILVER"
	case LevelGold:
		return "GOLD"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// Next returns the tier directly above l. GOLD is terminal.
func (l Level) Next() (Level, error) {
	switch l {
	case LevelBasic:
		return LevelSilver, nil
	case LevelSilver:
		return LevelGold, nil
	case LevelGold:
		return 0, fmt.Errorf("%w: %s is the highest level", ErrInvalidUpgrade, l)
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnknownLevel, int(l))
	}
}

// ParseLevel accepts the tier name in any case ("gold", "GOLD").
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BASIC":
		return LevelBasic, nil
	case "SILVER":
		return LevelSilver, nil
	case "GOLD":
		return LevelGold, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
	}
}

func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLevel, int(l))
	}
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(b []byte) error {
	v, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}
