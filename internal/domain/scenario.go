package domain

// ScenarioProfile is an immutable background/lighting descriptor used to
// steer the generation prompt. Loaded from a static catalog, never mutated
// by the pipeline.
type ScenarioProfile struct {
	Category       string
	Name           string
	LightingPrompt string
	Keywords       []string
}
