package application

import (
	"fmt"

	"github.com/oksasatya/go-level-upgrade/internal/domain/entity"
)

const (
	DefaultMinLoginCountForSilver   = 50
	DefaultMinRecommendCountForGold = 30
)

// PolicyConfig holds the eligibility thresholds.
type PolicyConfig struct {
	MinLoginCountForSilver   int
	MinRecommendCountForGold int
}

func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		MinLoginCountForSilver:   DefaultMinLoginCountForSilver,
		MinRecommendCountForGold: DefaultMinRecommendCountForGold,
	}
}

// UpgradePolicy decides whether a level advances and to what.
type UpgradePolicy interface {
	IsEligible(level entity.Level, loginCount, recommendCount int) (bool, error)
	NextLevel(level entity.Level) (entity.Level, error)
}

// LevelPolicy is the BASIC -> SILVER -> GOLD state machine. It does no I/O.
type LevelPolicy struct {
	cfg PolicyConfig
}

func NewLevelPolicy(cfg PolicyConfig) LevelPolicy {
	return LevelPolicy{cfg: cfg}
}

func (p LevelPolicy) Config() PolicyConfig { return p.cfg }

// IsEligible reports whether an account at level has enough activity to move up.
// GOLD is never eligible. Levels outside the known set fail with entity.ErrUnknownLevel.
func (p LevelPolicy) IsEligible(level entity.Level, loginCount, recommendCount int) (bool, error) {
	switch level {
	case entity.LevelBasic:
		return loginCount >= p.cfg.MinLoginCountForSilver, nil
	case entity.LevelSilver:
		return recommendCount >= p.cfg.MinRecommendCountForGold, nil
	case entity.LevelGold:
		return false, nil
	default:
		return false, fmt.Errorf("%w: %d", entity.ErrUnknownLevel, int(level))
	}
}

// NextLevel fails with entity.ErrInvalidUpgrade on GOLD; callers check IsEligible first.
func (p LevelPolicy) NextLevel(level entity.Level) (entity.Level, error) {
	return level.Next()
}

var _ UpgradePolicy = LevelPolicy{}
