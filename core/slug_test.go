package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "spaces", in: "Cohort 7", want: "cohort-7"},
		{name: "surrounding spaces", in: "  Cohort 7  ", want: "cohort-7"},
		{name: "diacritics", in: "Été à Kinshasa", want: "ete-a-kinshasa"},
		{name: "punctuation runs", in: "Go -- Advanced!!! (2024)", want: "go-advanced-2024"},
		{name: "underscores", in: "data_science", want: "data-science"},
		{name: "nothing left", in: "¿¡!?", want: "item"},
		{name: "empty", in: "", want: "item"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}

	t.Run("truncated", func(t *testing.T) {
		got := Slugify(strings.Repeat("ab ", 60))
		assert.LessOrEqual(t, len(got), slugMaxLen)
		assert.False(t, strings.HasSuffix(got, "-"))
	})
}

func TestSlugCandidate(t *testing.T) {
	assert.Equal(t, "cohort-7", SlugCandidate("cohort-7", 0))
	assert.Equal(t, "cohort-7-1", SlugCandidate("cohort-7", 1))
	assert.Equal(t, "cohort-7-12", SlugCandidate("cohort-7", 12))

	long := strings.Repeat("a", slugMaxLen)
	got := SlugCandidate(long, 3)
	assert.Len(t, got, slugMaxLen)
	assert.True(t, strings.HasSuffix(got, "-3"))
}

func TestFilterOrderings(t *testing.T) {
	ords := []DBOrdering{{Field: "name", Ascending: true}, {Field: "password"}, {Field: "created_at"}}
	assert.Equal(t, []DBOrdering{{Field: "name", Ascending: true}, {Field: "created_at"}}, FilterOrderings(ords, "name", "created_at"))
	assert.Nil(t, FilterOrderings(nil, "name"))
	assert.Equal(t, "name ASC", ords[0].String())
	assert.Equal(t, "created_at DESC", ords[2].String())
}
