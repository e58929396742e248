package model

import (
	"math"
	"testing"

	"github.com/fredbi/trackviz/internal/pkg/config"

	"github.com/go-openapi/testify/v2/assert"
	"github.com/go-openapi/testify/v2/require"
)

func TestRecordValue(t *testing.T) {
	r := NewRecord()

	for _, field := range config.AllFieldNames() {
		_, ok := r.Value(field)
		assert.False(t, ok, "expected %s to be missing on a new record", field)
	}

	r.SetValue(config.FieldTempo, 120.5)
	v, ok := r.Value(config.FieldTempo)
	require.True(t, ok)
	assert.InDelta(t, 120.5, v, 1e-9)
	assert.InDelta(t, 120.5, r.Tempo, 1e-9)

	r.SetValue("lyrics", 1)
	_, ok = r.Value("lyrics")
	assert.False(t, ok)

	r.SetValue(config.FieldTempo, math.NaN())
	_, ok = r.Value(config.FieldTempo)
	assert.False(t, ok)
}

func TestColorMode(t *testing.T) {
	assert.True(t, ColorByGenre.IsValid())
	assert.True(t, ColorByPopularity.IsValid())
	assert.False(t, ColorMode("energy").IsValid())
}

func TestRange(t *testing.T) {
	r := Range{Lower: 10, Upper: 20}
	assert.True(t, r.Contains(10))
	assert.True(t, r.Contains(20))
	assert.False(t, r.Contains(20.5))
	assert.False(t, r.Contains(math.NaN()))

	assert.Equal(t, Range{Lower: 0, Upper: 100}, Range{Lower: 120, Upper: -5}.Clamp(0, 100))
	assert.Equal(t, Range{Lower: 30, Upper: 40}, Range{Lower: 40, Upper: 30}.Clamp(0, 100))
}

func TestSelection(t *testing.T) {
	t.Run("nil genres select everything", func(t *testing.T) {
		s := Selection{}
		assert.True(t, s.HasGenre("pop"))
	})

	t.Run("empty genres select nothing", func(t *testing.T) {
		s := Selection{Genres: []string{}}
		assert.False(t, s.HasGenre("pop"))
	})

	t.Run("clone does not share genres", func(t *testing.T) {
		s := Selection{Genres: []string{"pop", "rock"}}
		c := s.Clone()
		c.Genres[0] = "edm"

		assert.Equal(t, "pop", s.Genres[0])
		assert.True(t, s.HasGenre("rock"))
		assert.False(t, s.HasGenre("edm"))
	})

	t.Run("clone keeps nil genres", func(t *testing.T) {
		assert.Nil(t, Selection{}.Clone().Genres)
	})
}
