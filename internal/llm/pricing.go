package llm

// ModelCost is a model's list price in USD per million tokens.
type ModelCost struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// Cost prices one call.
func (c ModelCost) Cost(inputTokens, outputTokens int) float64 {
	const perToken = 1e-6
	return perToken * (float64(inputTokens)*c.InputPerMTok + float64(outputTokens)*c.OutputPerMTok)
}

// LookupCost returns the price of a vendor model id or alias, or nil when
// the model is not listed.
func LookupCost(model string) *ModelCost {
	for _, aliases := range []map[string]string{geminiModels, openaiModels, anthropicModels} {
		if id, ok := aliases[model]; ok {
			model = id
			break
		}
	}
	c, ok := prices[model]
	if !ok {
		return nil
	}
	return &c
}

// Models plausible for a daily batch. Others are logged without a cost.
var prices = map[string]ModelCost{
	"gemini-2.0-flash":                 {0.1, 0.4},
	"gemini-2.0-flash-lite":            {0.075, 0.3},
	"gemini-2.5-flash":                 {0.3, 2.5},
	"gemini-2.5-flash-lite":            {0.1, 0.4},
	"gemini-2.5-flash-preview-09-2025": {0.3, 2.5},
	"gemini-2.5-pro":                   {1.25, 10},
	"gemini-flash-latest":              {0.3, 2.5},

	"gpt-4.1":      {2, 8},
	"gpt-4.1-mini": {0.4, 1.6},
	"gpt-4o":       {2.5, 10},
	"gpt-4o-mini":  {0.15, 0.6},
	"gpt-5-mini":   {0.25, 2},

	"claude-3-5-haiku-latest": {0.8, 4},
	"claude-haiku-4-5":        {1, 5},
	"claude-sonnet-4-5":       {3, 15},
}
