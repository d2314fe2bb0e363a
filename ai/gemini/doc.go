// Package gemini implements the ai service interfaces on the Google Gemini API.
//
//	config := ai.NewConfig(
//	    ai.WithProvider(ai.ProviderGemini),
//	    ai.WithAPIKey(os.Getenv("GEMINI_API_KEY")),
//	    ai.WithEmbeddingModel("text-embedding-004"),
//	    ai.WithGenerationModel("gemini-1.5-flash"),
//	    ai.WithDimension(768),
//	)
//	provider, err := gemini.NewProvider(ctx, config)
package gemini
