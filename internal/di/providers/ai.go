package providers

import (
	"github.com/samber/do/v2"

	"github.com/shelfscout/shelfscout-server/internal/ai"
	"github.com/shelfscout/shelfscout-server/internal/config"
	"github.com/shelfscout/shelfscout-server/internal/logger"
)

// ProvideAIClient provides the OpenAI-compatible client used for
// recommendations and embeddings.
func ProvideAIClient(i do.Injector) (*ai.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.AI.APIKey == "" {
		log.Warn("No AI API key configured, recommendation requests will fail",
			"base_url", cfg.AI.BaseURL,
		)
	}

	client := ai.NewClient(ai.Config{
		BaseURL:        cfg.AI.BaseURL,
		APIKey:         cfg.AI.APIKey,
		Model:          cfg.AI.Model,
		EmbeddingModel: cfg.AI.EmbeddingModel,
		Timeout:        cfg.AI.Timeout,
	}, log.Logger)

	log.Info("AI client configured",
		"base_url", cfg.AI.BaseURL,
		"model", cfg.AI.Model,
		"embedding_model", cfg.AI.EmbeddingModel,
	)

	return client, nil
}
