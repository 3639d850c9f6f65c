package directory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/dirbridge/pkg/directory"
)

func TestFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		filter directory.Filter
		want   string
	}{
		{"eq", directory.Eq("userName", "jdoe"), `userName eq "jdoe"`},
		{"ne", directory.Ne("active", "true"), `active ne "true"`},
		{"co", directory.Co("emails.value", "@example.com"), `emails.value co "@example.com"`},
		{"sw", directory.Sw("displayName", "J"), `displayName sw "J"`},
		{"pr", directory.Pr("title"), `title pr`},
		{"escaping", directory.Eq("displayName", `O"Brien \ <x>`), `displayName eq "O\"Brien \\ <x>"`},
		{"and", directory.And(directory.Eq("a", "1"), directory.Eq("b", "2")), `a eq "1" and b eq "2"`},
		{"nested", directory.And(
			directory.Eq("userName", "jdoe"),
			directory.Or(directory.Pr("emails"), directory.Sw("displayName", "J")),
		), `userName eq "jdoe" and (emails pr or displayName sw "J")`},
		{"single child", directory.Or(directory.Eq("a", "x)")), `a eq "x)"`},
		{"empty children dropped", directory.And(directory.Filter{}, directory.Pr("a")), `a pr`},
		{"empty", directory.And(), ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.NoError(t, tt.filter.Err())
			assert.Equal(t, tt.want, tt.filter.String())
		})
	}

	assert.True(t, directory.Filter{}.IsZero())
	assert.False(t, directory.Pr("a").IsZero())
}

func TestFilter_InvalidAttribute(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, directory.Eq("user name", "x").Err(), directory.ErrInvalidFilter)
	assert.ErrorIs(t, directory.Pr(`a" or "1`).Err(), directory.ErrInvalidFilter)

	combined := directory.And(directory.Eq("ok", "1"), directory.Sw("", "x"))
	assert.ErrorIs(t, combined.Err(), directory.ErrInvalidFilter)
	assert.Empty(t, combined.String())
	assert.False(t, combined.IsZero())
}
