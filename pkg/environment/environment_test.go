package environment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/dirbridge/pkg/environment"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want environment.Environment
	}{
		{"production", environment.Production},
		{"prod", environment.Production},
		{"staging", environment.Staging},
		{"stage", environment.Staging},
		{"development", environment.Development},
		{"", environment.Development},
		{"qa", environment.Development},
		{"Production", environment.Production},
		{" stage ", environment.Staging},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, environment.Parse(tt.in))
		})
	}
}

func TestLocal(t *testing.T) {
	t.Parallel()

	assert.True(t, environment.Parse("dev").Local())
	assert.True(t, environment.Parse(" Development ").Local())
	assert.False(t, environment.Parse("PROD").Local())
	assert.False(t, environment.Staging.Local())
}
