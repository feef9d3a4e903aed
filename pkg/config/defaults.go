package config

const (
	defaultReposDir   = "repos"
	defaultUploadsDir = "uploads/tmp"

	defaultServerListen = ":3000"

	defaultClientServerTarget = "http://localhost:3000"

	defaultVectorProvider = "qdrant"
	defaultVectorTarget   = "localhost:6334"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingDimensions = 768

	defaultLLMProvider = "ollama"
	defaultLLMTarget   = "http://localhost:11434"
	defaultLLMModel    = "llama3.2"

	defaultChunkSize       = 40
	defaultConcurrency     = 4
	defaultMaxContextBytes = 200_000

	defaultEventsProvider = "nop"
	defaultEventsTopic    = "codescout.events"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			ReposDir:   defaultReposDir,
			UploadsDir: defaultUploadsDir,
		},
		Server: ServerConfig{
			Listen: defaultServerListen,
		},
		Client: ClientConfig{
			ServerTarget: defaultClientServerTarget,
		},
		VectorStore: VectorStoreConfig{
			Provider: defaultVectorProvider,
			Target:   defaultVectorTarget,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		LLM: LLMConfig{
			Provider: defaultLLMProvider,
			Target:   defaultLLMTarget,
			Model:    defaultLLMModel,
		},
		Ingest: IngestConfig{
			ChunkSize:   defaultChunkSize,
			Concurrency: defaultConcurrency,
		},
		Review: ReviewConfig{
			MaxContextBytes: defaultMaxContextBytes,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
	}
}
