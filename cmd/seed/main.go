// Command seed loads knowledge-base passages from a JSON file into the
// vector store so chat turns can be grounded. Expected input is an array
// of {"text": "...", "source": "..."} objects.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/supportchat/backend/internal/llm"
	"github.com/supportchat/backend/internal/retrieval"
	"github.com/supportchat/backend/pkg/config"
	appLogger "github.com/supportchat/backend/pkg/logger"
)

type passage struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

func main() {
	inputPath := flag.String("input", "passages.json", "path to the passages JSON file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	raw, err := os.ReadFile(*inputPath)
	if err != nil {
		appLogger.Fatal("Failed to read input file", zap.Error(err))
	}

	var passages []passage
	if err := json.Unmarshal(raw, &passages); err != nil {
		appLogger.Fatal("Failed to parse input file", zap.Error(err))
	}
	if len(passages) == 0 {
		appLogger.Fatal("Input file contains no passages")
	}

	milvusClient, err := retrieval.NewClient(
		cfg.Milvus.Endpoint,
		cfg.Milvus.APIKey,
		cfg.Milvus.CollectionName,
		cfg.Milvus.VectorDim,
	)
	if err != nil {
		appLogger.Fatal("Failed to create Milvus client", zap.Error(err))
	}
	defer milvusClient.Close()

	ctx := context.Background()
	if err := milvusClient.EnsureCollection(ctx); err != nil {
		appLogger.Fatal("Failed to ensure collection", zap.Error(err))
	}

	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.EmbeddingModel,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
	)

	chunks := make([]retrieval.Chunk, 0, len(passages))
	for i, p := range passages {
		embedding, err := llmClient.GenerateEmbedding(ctx, p.Text)
		if err != nil {
			appLogger.Fatal("Failed to embed passage",
				zap.Int("index", i),
				zap.Error(err),
			)
		}
		chunks = append(chunks, retrieval.Chunk{
			ID:         uuid.New().String(),
			Embedding:  embedding,
			Text:       p.Text,
			Source:     p.Source,
			ChunkIndex: i,
			Timestamp:  time.Now(),
		})
	}

	if err := milvusClient.Insert(ctx, chunks); err != nil {
		appLogger.Fatal("Failed to insert chunks", zap.Error(err))
	}

	appLogger.Info("Knowledge base seeded", zap.Int("passages", len(chunks)))
}
