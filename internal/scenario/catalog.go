package scenario

import "server/internal/domain"

// DefaultCategory is used when no keyword rule matches the product tags.
const DefaultCategory = "studio"

// defaultCatalog is the built-in scenario reference data. Profiles within a
// category share a theme so remix can swap backgrounds without breaking it.
var defaultCatalog = []domain.ScenarioProfile{
	{
		Category:       "studio",
		Name:           "studio-softbox",
		LightingPrompt: "clean seamless studio backdrop, large softbox key light, gentle shadow falloff",
		Keywords:       []string{"basic", "camiseta", "t-shirt", "essential", "underwear"},
	},
	{
		Category:       "studio",
		Name:           "studio-highkey",
		LightingPrompt: "bright high-key white studio, even frontal lighting, minimal shadows",
	},
	{
		Category:       "urban",
		Name:           "urban-street",
		LightingPrompt: "downtown street at golden hour, warm sunlight between buildings, soft bokeh traffic",
		Keywords:       []string{"streetwear", "jeans", "denim", "jaqueta", "hoodie", "sneaker", "urban"},
	},
	{
		Category:       "urban",
		Name:           "urban-rooftop",
		LightingPrompt: "rooftop terrace at dusk, city skyline behind, cool ambient light with neon accents",
	},
	{
		Category:       "urban",
		Name:           "urban-concrete",
		LightingPrompt: "raw concrete wall, overcast daylight, flat diffuse shadows",
	},
	{
		Category:       "urban",
		Name:           "urban-crosswalk",
		LightingPrompt: "wide crosswalk scene, midday sun, crisp hard-edged shadows",
	},
	{
		Category:       "nature",
		Name:           "nature-field",
		LightingPrompt: "open grass field, late afternoon sun, warm backlight with lens flare",
		Keywords:       []string{"vestido", "dress", "floral", "linen", "linho", "boho", "praia", "beach"},
	},
	{
		Category:       "nature",
		Name:           "nature-forest",
		LightingPrompt: "forest clearing, dappled light through leaves, soft green fill",
	},
	{
		Category:       "luxury-interior",
		Name:           "luxury-lounge",
		LightingPrompt: "marble lounge interior, warm tungsten accents, soft window light from the left",
		Keywords:       []string{"blazer", "terno", "suit", "gala", "luxury", "couro", "leather", "social"},
	},
	{
		Category:       "luxury-interior",
		Name:           "luxury-hotel",
		LightingPrompt: "boutique hotel corridor, brass fixtures, moody warm lighting",
	},
}
