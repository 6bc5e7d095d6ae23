// internal/interpreter/tables.go
package interpreter

import (
	"fmt"

	"github.com/Corphon/DreamScape/internal/models"
)

// moodGroup maps a set of trigger words to a mood. Groups are checked in order.
type moodGroup struct {
	mood     models.Mood
	keywords []string
}

var moodGroups = []moodGroup{
	{models.MoodOminous, []string{"fear", "scared", "dark"}},
	{models.MoodPeaceful, []string{"peaceful", "calm", "serene"}},
	{models.MoodExciting, []string{"excited", "adventure", "flying"}},
	{models.MoodMelancholic, []string{"sad", "lonely", "lost"}},
}

// ColorFamily is a named hue with a three step ramp; Shades[0] represents it.
type ColorFamily struct {
	Name   string
	Shades [3]models.Color
}

// Representative is the colour a matching family contributes to a palette.
func (f ColorFamily) Representative() models.Color {
	return f.Shades[0]
}

// ColorFamilies in declaration order, which is also palette order.
var ColorFamilies = []ColorFamily{
	{"blue", [3]models.Color{"#4F9FFF", "#2E5BFF", "#1E3A8A"}},
	{"purple", [3]models.Color{"#8B7BFF", "#7C3AED", "#5B21B6"}},
	{"red", [3]models.Color{"#FF6B6B", "#DC2626", "#7F1D1D"}},
	{"green", [3]models.Color{"#10B981", "#059669", "#065F46"}},
	{"gold", [3]models.Color{"#FBBF24", "#F59E0B", "#B45309"}},
	{"dark", [3]models.Color{"#0A0A0A", "#1F2937", "#111827"}},
}

// DefaultPalette is used when no colour family matches.
var DefaultPalette = []models.Color{"#4F9FFF", "#8B7BFF", "#111827"}

// ElementRule binds a narration keyword to the element it spawns.
type ElementRule struct {
	Keyword string
	Kind    models.ElementKind
	Color   models.Color
}

// ElementRules in declaration order, which is also element order.
var ElementRules = []ElementRule{
	{"castle", models.KindLocation, "#9CA3AF"},
	{"forest", models.KindLocation, "#10B981"},
	{"ocean", models.KindLocation, "#4F9FFF"},
	{"mountain", models.KindLocation, "#8B7BFF"},
	{"sky", models.KindLocation, "#F3F4F6"},
	{"flying", models.KindObject, "#FFD700"},
	{"falling", models.KindObject, "#FF6B6B"},
	{"swimming", models.KindObject, "#4F9FFF"},
	{"creature", models.KindCreature, "#A78BFA"},
	{"dragon", models.KindCreature, "#DC2626"},
	{"angel", models.KindCreature, "#FCD34D"},
	{"light", models.KindAbstract, "#FBBF24"},
	{"darkness", models.KindAbstract, "#1F2937"},
}

// placeholder is inserted when no element keyword matches.
var placeholder = ElementRule{Keyword: "dreamscape", Kind: models.KindLocation, Color: "#4F9FFF"}

// lightingRule describes the lighting for one mood. When fromPalette is set the
// accents come from the first two palette colours, falling back to the fixed ones.
type lightingRule struct {
	ambient     float64
	primary     models.Color
	secondary   models.Color
	fog         models.Color
	fromPalette bool
}

var lightingRules = map[models.Mood]lightingRule{
	models.MoodOminous:     {ambient: 0.3, primary: "#FF0000", secondary: "#111111", fog: "#1F1F1F"},
	models.MoodPeaceful:    {ambient: 0.8, primary: "#87CEEB", secondary: "#E0F2FE", fog: "#F0F9FF"},
	models.MoodExciting:    {ambient: 0.7, primary: "#FFD700", secondary: "#FF6B6B", fog: "#FEF3C7", fromPalette: true},
	models.MoodMelancholic: {ambient: 0.4, primary: "#6B7280", secondary: "#4B5563", fog: "#2D3748"},
	models.MoodSurreal:     {ambient: 0.6, primary: "#8B7BFF", secondary: "#4F9FFF", fog: "#1F2937", fromPalette: true},
}

var fogDensity = map[models.Mood]float64{
	models.MoodOminous:     0.05,
	models.MoodPeaceful:    0.02,
	models.MoodExciting:    0.015,
	models.MoodMelancholic: 0.04,
	models.MoodSurreal:     0.03,
}

const (
	fogColor models.Color = "#2D3748"
	fogNear               = 0.1
	fogFar                = 100.0
)

// checkTables verifies that every closed-set value has an entry and every
// colour literal is well formed.
func checkTables() error {
	for _, m := range models.Moods {
		rule, ok := lightingRules[m]
		if !ok {
			return fmt.Errorf("no lighting rule for mood %s", m)
		}
		for _, c := range []models.Color{rule.primary, rule.secondary, rule.fog} {
			if !c.Valid() {
				return fmt.Errorf("lighting rule for %s: bad color %q", m, c)
			}
		}
		if _, ok := fogDensity[m]; !ok {
			return fmt.Errorf("no fog density for mood %s", m)
		}
	}
	for _, g := range moodGroups {
		if g.mood == models.MoodSurreal {
			return fmt.Errorf("surreal is the fallback mood and cannot have keywords")
		}
	}
	for _, f := range ColorFamilies {
		for _, c := range f.Shades {
			if !c.Valid() {
				return fmt.Errorf("color family %s: bad color %q", f.Name, c)
			}
		}
	}
	kinds := map[models.ElementKind]bool{}
	for _, r := range append(ElementRules, placeholder) {
		if _, err := models.ParseElementKind(string(r.Kind)); err != nil {
			return fmt.Errorf("element rule %s: %w", r.Keyword, err)
		}
		if !r.Color.Valid() {
			return fmt.Errorf("element rule %s: bad color %q", r.Keyword, r.Color)
		}
		kinds[r.Kind] = true
	}
	for _, k := range models.ElementKinds {
		if !kinds[k] {
			return fmt.Errorf("no element rule produces kind %s", k)
		}
	}
	return nil
}

func init() {
	if err := checkTables(); err != nil {
		panic("interpreter: " + err.Error())
	}
}
