package validation

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type createReq struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,pwd"`
	Level      string `json:"level" validate:"level"`
	LoginCount int    `json:"login_count" validate:"counter"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	Register(v)
	return v
}

func TestToDetails(t *testing.T) {
	v := newValidator()

	tests := []struct {
		name string
		req  createReq
		want map[string]string
	}{
		{
			name: "valid",
			req:  createReq{Email: "a@example.com", Password: "password1", Level: "silver"},
		},
		{
			name: "empty level allowed",
			req:  createReq{Email: "a@example.com", Password: "password1"},
		},
		{
			name: "all broken",
			req:  createReq{Email: "nope", Password: "short", Level: "PLATINUM", LoginCount: -1},
			want: map[string]string{
				"email":       "must be a valid email",
				"password":    "min length 8",
				"level":       "must be one of: BASIC, SILVER, GOLD",
				"login_count": "must not be negative",
			},
		},
		{
			name: "missing required",
			req:  createReq{},
			want: map[string]string{
				"email":    "is required",
				"password": "is required",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.req)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			assert.Equal(t, tt.want, ToDetails(err))
		})
	}
}

func TestToDetails_InvalidJSON(t *testing.T) {
	var req createReq
	err := json.Unmarshal([]byte(`{"email":`), &req)
	require.Error(t, err)
	assert.Equal(t, map[string]string{"payload": "invalid json"}, ToDetails(err))
	assert.Nil(t, ToDetails(nil))
}
