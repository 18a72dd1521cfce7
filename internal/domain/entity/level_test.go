package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel_Next(t *testing.T) {
	tests := []struct {
		name    string
		level   Level
		want    Level
		wantErr error
	}{
		{name: "basic to silver", level: LevelBasic, want: LevelSilver},
		{name: "silver to gold", level: LevelSilver, want: LevelGold},
		{name: "gold is terminal", level: LevelGold, wantErr: ErrInvalidUpgrade},
		{name: "unset level", level: 0, wantErr: ErrUnknownLevel},
		{name: "out of range", level: 7, wantErr: ErrUnknownLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.level.Next()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel(" silver ")
	require.NoError(t, err)
	assert.Equal(t, LevelSilver, l)

	_, err = ParseLevel("platinum")
	assert.ErrorIs(t, err, ErrUnknownLevel)
}

func TestLevel_JSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Level Level `json:"level"`
	}{LevelGold})
	require.NoError(t, err)
	assert.JSONEq(t, `{"level":"GOLD"}`, string(b))

	var in struct {
		Level Level `json:"level"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"level":"basic"}`), &in))
	assert.Equal(t, LevelBasic, in.Level)

	_, err = json.Marshal(struct{ L Level }{Level(9)})
	assert.Error(t, err)
}

func TestUser_Clone(t *testing.T) {
	u := &User{ID: "a", Level: LevelBasic}
	c := u.Clone()
	c.Level = LevelGold
	assert.Equal(t, LevelBasic, u.Level)
	assert.Nil(t, (*User)(nil).Clone())
}
