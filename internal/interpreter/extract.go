// internal/interpreter/extract.go
package interpreter

import (
	"fmt"
	"strings"

	"github.com/Corphon/DreamScape/internal/models"
)

// ExtractMood returns the mood of the first keyword group found in the
// narration, or surreal when none matches.
func ExtractMood(narration string) models.Mood {
	lower := strings.ToLower(narration)
	for _, g := range moodGroups {
		for _, kw := range g.keywords {
			if strings.Contains(lower, kw) {
				return g.mood
			}
		}
	}
	return models.MoodSurreal
}

// ExtractColors returns the representative colour of every family named in
// the narration, in family declaration order.
func ExtractColors(narration string) []models.Color {
	lower := strings.ToLower(narration)
	colors := make([]models.Color, 0, len(ColorFamilies))
	for _, f := range ColorFamilies {
		if strings.Contains(lower, f.Name) {
			colors = append(colors, f.Representative())
		}
	}
	if len(colors) == 0 {
		colors = append(colors, DefaultPalette...)
	}
	return colors
}

// MatchedElementRules returns the element rules triggered by the narration.
func MatchedElementRules(narration string) []ElementRule {
	lower := strings.ToLower(narration)
	var out []ElementRule
	for _, r := range ElementRules {
		if strings.Contains(lower, r.Keyword) {
			out = append(out, r)
		}
	}
	return out
}

// GenerateElements builds one element per matched keyword, placed with rnd.
// Ids count from zero within this call.
func GenerateElements(narration string, mood models.Mood, rnd RandomSource) []models.DreamElement {
	rules := MatchedElementRules(narration)
	if len(rules) == 0 {
		return []models.DreamElement{{
			ID:          "element-0",
			Kind:        placeholder.Kind,
			Name:        "Dreamscape",
			Description: "An abstract dreamscape",
			Position:    models.Vector3{},
			Scale:       1,
			Color:       placeholder.Color,
			Mood:        mood,
			Surreal:     true,
		}}
	}

	elements := make([]models.DreamElement, 0, len(rules))
	for i, r := range rules {
		elements = append(elements, models.DreamElement{
			ID:          fmt.Sprintf("element-%d", i),
			Kind:        r.Kind,
			Name:        strings.ToUpper(r.Keyword[:1]) + r.Keyword[1:],
			Description: fmt.Sprintf("A %s from your dream", r.Keyword),
			Position:    randomPosition(rnd),
			Scale:       rnd.Float64()*(maxScale-minScale) + minScale,
			Color:       r.Color,
			Mood:        mood,
			Surreal:     true,
		})
	}
	return elements
}

const (
	positionRange = 20.0 // each axis lands in [-10, 10)
	minScale      = 0.5
	maxScale      = 1.0
)

func randomPosition(rnd RandomSource) models.Vector3 {
	return models.Vector3{
		X: (rnd.Float64() - 0.5) * positionRange,
		Y: (rnd.Float64() - 0.5) * positionRange,
		Z: (rnd.Float64() - 0.5) * positionRange,
	}
}

// LightingFor derives the lighting of a scene from its mood and palette.
func LightingFor(mood models.Mood, colors []models.Color) models.LightingSetup {
	rule, ok := lightingRules[mood]
	if !ok {
		rule = lightingRules[models.MoodSurreal]
	}
	setup := models.LightingSetup{
		AmbientIntensity: rule.ambient,
		PrimaryColor:     rule.primary,
		SecondaryColor:   rule.secondary,
		FogColor:         rule.fog,
	}
	if rule.fromPalette {
		if len(colors) > 0 {
			setup.PrimaryColor = colors[0]
		}
		if len(colors) > 1 {
			setup.SecondaryColor = colors[1]
		}
	}
	return setup
}

// FogFor returns the fog of a scene with the given mood.
func FogFor(mood models.Mood) models.FogSetup {
	density, ok := fogDensity[mood]
	if !ok {
		density = fogDensity[models.MoodSurreal]
	}
	return models.FogSetup{
		Enabled: true,
		Density: density,
		Color:   fogColor,
		Near:    fogNear,
		Far:     fogFar,
	}
}
