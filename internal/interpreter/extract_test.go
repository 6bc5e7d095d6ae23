// internal/interpreter/extract_test.go
package interpreter

import (
	"testing"

	"github.com/Corphon/DreamScape/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCastleOnly(t *testing.T) {
	els := GenerateElements("I was inside a huge Castle", models.MoodSurreal, &FixedSource{Values: []float64{0.25}})
	require.Len(t, els, 1)
	assert.Equal(t, models.KindLocation, els[0].Kind)
	assert.Equal(t, models.Color("#9CA3AF"), els[0].Color)
	assert.Equal(t, "Castle", els[0].Name)
	assert.Equal(t, "A castle from your dream", els[0].Description)
	assert.Equal(t, "element-0", els[0].ID)
}

func TestPlaceholderWhenNothingMatches(t *testing.T) {
	els := GenerateElements("I walked to the bakery", models.MoodSurreal, DefaultSource())
	require.Len(t, els, 1)
	assert.Equal(t, models.KindLocation, els[0].Kind)
	assert.Equal(t, "Dreamscape", els[0].Name)
	assert.Equal(t, models.Vector3{}, els[0].Position)
	assert.Equal(t, 1.0, els[0].Scale)
}

func TestElementPlacementRanges(t *testing.T) {
	rnd := NewSeededSource(7)
	for i := 0; i < 200; i++ {
		for _, el := range GenerateElements("castle forest ocean dragon light", models.MoodSurreal, rnd) {
			for _, v := range []float64{el.Position.X, el.Position.Y, el.Position.Z} {
				assert.GreaterOrEqual(t, v, -10.0)
				assert.Less(t, v, 10.0)
			}
			assert.GreaterOrEqual(t, el.Scale, 0.5)
			assert.Less(t, el.Scale, 1.0)
		}
	}
}

func TestPlacementUsesInjectedSource(t *testing.T) {
	rnd := &FixedSource{Values: []float64{0, 0.5, 1, 0.5}}
	els := GenerateElements("ocean", models.MoodPeaceful, rnd)
	require.Len(t, els, 1)
	assert.Equal(t, models.Vector3{X: -10, Y: 0, Z: 10}, els[0].Position)
	assert.Equal(t, 0.75, els[0].Scale)
	assert.Equal(t, models.MoodPeaceful, els[0].Mood)
}

func TestMoodPriority(t *testing.T) {
	cases := map[string]models.Mood{
		"I felt calm but then fear took over": models.MoodOminous,
		"a calm, serene lake":                 models.MoodPeaceful,
		"flying on an adventure":              models.MoodExciting,
		"lonely and lost":                     models.MoodMelancholic,
		"a purple teapot":                     models.MoodSurreal,
		"SCARED":                              models.MoodOminous,
		"I was excited but sad":               models.MoodExciting,
		"peaceful but dark":                   models.MoodOminous,
	}
	for narration, want := range cases {
		assert.Equal(t, want, ExtractMood(narration), narration)
	}
}

func TestMoodIsAlwaysKnown(t *testing.T) {
	for _, s := range []string{"", "x", "darkness", "lost in a flying castle", "👻"} {
		_, err := models.ParseMood(string(ExtractMood(s)))
		assert.NoError(t, err)
	}
}

func TestPaletteOrderFollowsFamilies(t *testing.T) {
	want := []models.Color{"#4F9FFF", "#10B981"}
	assert.Equal(t, want, ExtractColors("green and blue"))
	assert.Equal(t, want, ExtractColors("blue and green"))
}

func TestDefaultPalette(t *testing.T) {
	assert.Equal(t, []models.Color{"#4F9FFF", "#8B7BFF", "#111827"}, ExtractColors("nothing here"))
}

func TestLightingFallsBackToPalette(t *testing.T) {
	l := LightingFor(models.MoodExciting, []models.Color{"#10B981"})
	assert.Equal(t, 0.7, l.AmbientIntensity)
	assert.Equal(t, models.Color("#10B981"), l.PrimaryColor)
	assert.Equal(t, models.Color("#FF6B6B"), l.SecondaryColor)
	assert.Equal(t, models.Color("#FEF3C7"), l.FogColor)

	s := LightingFor(models.MoodSurreal, []models.Color{"#4F9FFF", "#8B7BFF", "#111827"})
	assert.Equal(t, models.Color("#4F9FFF"), s.PrimaryColor)
	assert.Equal(t, models.Color("#8B7BFF"), s.SecondaryColor)

	o := LightingFor(models.MoodOminous, []models.Color{"#10B981"})
	assert.Equal(t, models.Color("#FF0000"), o.PrimaryColor)
	assert.Equal(t, 0.3, o.AmbientIntensity)
}

func TestFogByMood(t *testing.T) {
	assert.Equal(t, 0.05, FogFor(models.MoodOminous).Density)
	assert.Equal(t, 0.015, FogFor(models.MoodExciting).Density)
	f := FogFor(models.MoodPeaceful)
	assert.True(t, f.Enabled)
	assert.Equal(t, models.Color("#2D3748"), f.Color)
	assert.Equal(t, 0.1, f.Near)
	assert.Equal(t, 100.0, f.Far)
}

func TestTablesAreExhaustive(t *testing.T) {
	assert.NoError(t, checkTables())
}
