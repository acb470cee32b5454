package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	APIAddr        string
	DataRoot       string
	Sources        string
	LLMProviders   string
	EmbedProviders string
	VisionProvider string

	EmbedDim       int
	EmbedBatchSize int
	ChunkCharMin   int
	ChunkCharMax   int
	SearchLimit    int
	MaxRounds      int
	RetrieveTopN   int

	ExtractFigures bool
	VisionWorkers  int

	MemoryBaseURL string
	MemoryAPIKey  string

	FetchTimeout    time.Duration
	MaxPDFBytes     int64
	OpenAlexMailto  string
	ProviderTimeout time.Duration
}

func Load() Config {
	return Config{
		APIAddr:         getenv("LITSCOUT_API_ADDR", ":8080"),
		DataRoot:        getenv("LITSCOUT_DATA_ROOT", "./data"),
		Sources:         getenv("LITSCOUT_SOURCES", "arxiv"),
		LLMProviders:    getenv("LITSCOUT_LLM_PROVIDERS", "openai"),
		EmbedProviders:  getenv("LITSCOUT_EMBED_PROVIDERS", "openai"),
		VisionProvider:  getenv("LITSCOUT_VISION_PROVIDER", "openai"),
		EmbedDim:        getenvInt("LITSCOUT_EMBED_DIM", 1536),
		EmbedBatchSize:  getenvInt("LITSCOUT_EMBED_BATCH", 32),
		ChunkCharMin:    getenvInt("LITSCOUT_CHUNK_CHAR_MIN", 400),
		ChunkCharMax:    getenvInt("LITSCOUT_CHUNK_CHAR_MAX", 1000),
		SearchLimit:     getenvInt("LITSCOUT_SEARCH_LIMIT", 8),
		MaxRounds:       getenvInt("LITSCOUT_MAX_ROUNDS", 6),
		RetrieveTopN:    getenvInt("LITSCOUT_RETRIEVE_TOP_N", 4),
		ExtractFigures:  getenvBool("LITSCOUT_EXTRACT_FIGURES", false),
		VisionWorkers:   getenvInt("LITSCOUT_VISION_WORKERS", 4),
		MemoryBaseURL:   getenv("LITSCOUT_MEMORY_BASE_URL", ""),
		MemoryAPIKey:    getenv("LITSCOUT_MEMORY_API_KEY", ""),
		FetchTimeout:    getenvDuration("LITSCOUT_FETCH_TIMEOUT", 30*time.Second),
		MaxPDFBytes:     getenvInt64("LITSCOUT_MAX_PDF_BYTES", 100*1024*1024),
		OpenAlexMailto:  getenv("LITSCOUT_OPENALEX_MAILTO", ""),
		ProviderTimeout: getenvDuration("LITSCOUT_PROVIDER_TIMEOUT", 60*time.Second),
	}
}

func getenv(k, fallback string) string {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	return v
}

func getenvInt(k string, fallback int) int {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvInt64(k string, fallback int64) int64 {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(k string, fallback bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvDuration(k string, fallback time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
