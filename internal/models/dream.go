// internal/models/dream.go
package models

import (
	"fmt"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Vector3 is a point in scene space.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vector2 is a point on a drawing surface.
type Vector2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Length returns the distance of v from the origin.
func (v Vector2) Length() float64 {
	return math.Hypot(v.X, v.Y)
}

// Sub returns v - o.
func (v Vector2) Sub(o Vector2) Vector2 {
	return Vector2{X: v.X - o.X, Y: v.Y - o.Y}
}

// ElementKind selects the geometry family and animation style of an element.
type ElementKind string

const (
	KindLocation ElementKind = "location"
	KindObject   ElementKind = "object"
	KindCreature ElementKind = "creature"
	KindAbstract ElementKind = "abstract"
)

// ElementKinds lists every kind in declaration order.
var ElementKinds = []ElementKind{KindLocation, KindObject, KindCreature, KindAbstract}

// ParseElementKind converts a string into a known kind.
func ParseElementKind(s string) (ElementKind, error) {
	for _, k := range ElementKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown element kind %q", s)
}

// UnmarshalText rejects kinds outside the closed set.
func (k *ElementKind) UnmarshalText(text []byte) error {
	parsed, err := ParseElementKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Mood is the categorical tag that drives lighting and fog.
type Mood string

const (
	MoodOminous     Mood = "ominous"
	MoodPeaceful    Mood = "peaceful"
	MoodExciting    Mood = "exciting"
	MoodMelancholic Mood = "melancholic"
	MoodSurreal     Mood = "surreal"
)

// Moods lists every mood in priority order; surreal is the fallback.
var Moods = []Mood{MoodOminous, MoodPeaceful, MoodExciting, MoodMelancholic, MoodSurreal}

// ParseMood converts a string into a known mood.
func ParseMood(s string) (Mood, error) {
	for _, m := range Moods {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mood %q", s)
}

// UnmarshalText rejects moods outside the closed set.
func (m *Mood) UnmarshalText(text []byte) error {
	parsed, err := ParseMood(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// TransitionKind is how one scene hands over to the next.
type TransitionKind string

const (
	TransitionFade     TransitionKind = "fade"
	TransitionMorph    TransitionKind = "morph"
	TransitionFly      TransitionKind = "fly"
	TransitionDissolve TransitionKind = "dissolve"
)

// UnmarshalText rejects transition kinds outside the closed set.
func (t *TransitionKind) UnmarshalText(text []byte) error {
	switch TransitionKind(text) {
	case TransitionFade, TransitionMorph, TransitionFly, TransitionDissolve:
		*t = TransitionKind(text)
		return nil
	}
	return fmt.Errorf("unknown transition kind %q", string(text))
}

// Color is an RGB colour serialised as #RRGGBB.
type Color string

// ParseColor normalises a hex colour string.
func ParseColor(s string) (Color, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return "", fmt.Errorf("invalid color %q: %w", s, err)
	}
	return FromColorful(c), nil
}

// MustColor is ParseColor for package-level tables.
func MustColor(s string) Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// FromColorful converts a colorful.Color into the #RRGGBB form.
func FromColorful(c colorful.Color) Color {
	return Color(strings.ToUpper(c.Clamped().Hex()))
}

// Valid reports whether c is a well formed #RRGGBB string.
func (c Color) Valid() bool {
	if len(c) != 7 || c[0] != '#' {
		return false
	}
	_, err := colorful.Hex(string(c))
	return err == nil
}

// Colorful returns c as a colorful.Color; invalid colours map to black.
func (c Color) Colorful() colorful.Color {
	cc, err := colorful.Hex(string(c))
	if err != nil {
		return colorful.Color{}
	}
	return cc
}

// RGB returns the 8-bit channels of c.
func (c Color) RGB() (r, g, b uint8) {
	return c.Colorful().RGB255()
}

// DreamElement is one visualizable entity placed within a scene.
type DreamElement struct {
	ID          string      `json:"id"`
	Kind        ElementKind `json:"type"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Position    Vector3     `json:"position"`
	Scale       float64     `json:"scale"`
	Color       Color       `json:"color"`
	Mood        Mood        `json:"mood"`
	Surreal     bool        `json:"surreal,omitempty"`
}

// SceneTransition describes how to move between two scenes.
type SceneTransition struct {
	From     string         `json:"from"`
	To       string         `json:"to"`
	Kind     TransitionKind `json:"type"`
	Duration float64        `json:"duration"`
}

// LightingSetup is fixed at generation time from mood and palette.
type LightingSetup struct {
	AmbientIntensity float64 `json:"ambientIntensity"`
	PrimaryColor     Color   `json:"primaryColor"`
	SecondaryColor   Color   `json:"secondaryColor"`
	FogColor         Color   `json:"fogColor"`
}

// FogSetup is the per-scene fog description.
type FogSetup struct {
	Enabled bool    `json:"enabled"`
	Density float64 `json:"density"`
	Color   Color   `json:"color"`
	Near    float64 `json:"near"`
	Far     float64 `json:"far"`
}

// DreamScene is the Scene Model consumed by both renderers.
type DreamScene struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Narration   string            `json:"narration"`
	Timestamp   int64             `json:"timestamp"`
	Mood        Mood              `json:"mood"`
	Colors      []Color           `json:"colors"`
	Elements    []DreamElement    `json:"elements"`
	Transitions []SceneTransition `json:"transitions"`
	Lighting    LightingSetup     `json:"lighting"`
	Fog         FogSetup          `json:"fog"`
}

// Validate checks the structural invariants of a scene.
func (s *DreamScene) Validate() error {
	if s == nil {
		return fmt.Errorf("scene is nil")
	}
	if len(s.Colors) == 0 {
		return fmt.Errorf("scene %s: palette is empty", s.ID)
	}
	for _, c := range s.Colors {
		if !c.Valid() {
			return fmt.Errorf("scene %s: invalid palette color %q", s.ID, c)
		}
	}
	if len(s.Elements) == 0 {
		return fmt.Errorf("scene %s: no elements", s.ID)
	}
	if _, err := ParseMood(string(s.Mood)); err != nil {
		return fmt.Errorf("scene %s: %w", s.ID, err)
	}
	seen := make(map[string]bool, len(s.Elements))
	for _, el := range s.Elements {
		if seen[el.ID] {
			return fmt.Errorf("scene %s: duplicate element id %s", s.ID, el.ID)
		}
		seen[el.ID] = true
		if _, err := ParseElementKind(string(el.Kind)); err != nil {
			return fmt.Errorf("element %s: %w", el.ID, err)
		}
		if el.Scale <= 0 {
			return fmt.Errorf("element %s: scale must be positive", el.ID)
		}
		if !el.Color.Valid() {
			return fmt.Errorf("element %s: invalid color %q", el.ID, el.Color)
		}
	}
	if s.Lighting.AmbientIntensity < 0 || s.Lighting.AmbientIntensity > 1 {
		return fmt.Errorf("scene %s: ambient intensity %v out of range", s.ID, s.Lighting.AmbientIntensity)
	}
	return nil
}

// Clone returns a deep copy so elements are never shared between scenes.
func (s *DreamScene) Clone() *DreamScene {
	if s == nil {
		return nil
	}
	out := *s
	out.Colors = cloneSlice(s.Colors)
	out.Elements = cloneSlice(s.Elements)
	out.Transitions = cloneSlice(s.Transitions)
	return &out
}

// cloneSlice copies s, keeping nil and empty distinct so JSON output is stable.
func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}

// DreamMap is the result of one interpretation call.
type DreamMap struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Narration   string       `json:"narration"`
	Scenes      []DreamScene `json:"scenes"`
	GeneratedAt int64        `json:"generatedAt"`
	IsPublic    bool         `json:"isPublic"`
	ShareToken  string       `json:"shareToken,omitempty"`
}

// Scene returns the scene at index, or false when out of range.
func (m *DreamMap) Scene(index int) (*DreamScene, bool) {
	if m == nil || index < 0 || index >= len(m.Scenes) {
		return nil, false
	}
	return &m.Scenes[index], true
}

// Validate checks every scene of the map.
func (m *DreamMap) Validate() error {
	if m == nil {
		return fmt.Errorf("dream map is nil")
	}
	if len(m.Scenes) == 0 {
		return fmt.Errorf("dream map %s: no scenes", m.ID)
	}
	for i := range m.Scenes {
		if err := m.Scenes[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy of the map.
func (m *DreamMap) Clone() *DreamMap {
	if m == nil {
		return nil
	}
	out := *m
	out.Scenes = make([]DreamScene, len(m.Scenes))
	for i := range m.Scenes {
		out.Scenes[i] = *m.Scenes[i].Clone()
	}
	return &out
}
