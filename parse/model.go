package parse

import (
	"log/slog"
	"time"

	"github.com/JoshPattman/jpf"
)

// ModelBuilder builds LLM models.
type ModelBuilder interface {
	// BuildParseModel builds a model for CV parsing, using the specified logger.
	BuildParseModel(*slog.Logger) jpf.Model
}

// NewModelBuilder tries to create a new ModelBuilder with the specified API key.
// Responses are cached to cachePath and the number of concurrent connections is limited to maxConcurrency.
func NewModelBuilder(apiKey, modelName, cachePath string, maxConcurrency int) (ModelBuilder, error) {
	cache, err := jpf.NewFilePersistCache(cachePath)
	if err != nil {
		return nil, err
	}
	return &simpleModelBuilder{
		apiKey:      apiKey,
		modelName:   modelName,
		concLimiter: jpf.NewMaxConcurrentLimiter(maxConcurrency),
		cache:       cache,
	}, nil
}

type simpleModelBuilder struct {
	apiKey      string
	modelName   string
	concLimiter jpf.ConcurrentLimiter
	cache       jpf.ModelResponseCache
}

func (mb *simpleModelBuilder) BuildParseModel(logger *slog.Logger) jpf.Model {
	model := jpf.NewOpenAIModel(mb.apiKey, mb.modelName, jpf.WithTemperature{X: 0})
	model = jpf.NewLoggingModel(model, jpf.NewSlogModelLogger(logger.Debug, false))
	model = jpf.NewRetryModel(model, 3, jpf.WithDelay{X: time.Second * 2})
	model = jpf.NewConcurrentLimitedModel(model, mb.concLimiter)
	model = jpf.NewCachedModel(model, mb.cache)
	return model
}
