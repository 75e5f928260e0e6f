// Package retrieval wraps the vector-search collaborator. The pipeline
// consumes already-retrieved text chunks; embedding and similarity
// search live here, outside the scorers.
package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/supportchat/backend/pkg/logger"
	"github.com/supportchat/backend/pkg/retry"
)

// Match is one retrieved chunk. Distance is the L2 distance of the
// match; the orchestrator treats a best distance above its grounded
// threshold as "no usable information".
type Match struct {
	Text       string  `json:"text"`
	Source     string  `json:"source"`
	ChunkIndex int     `json:"chunkIndex"`
	Distance   float64 `json:"distance"`
}

type Client struct {
	client         client.Client
	collectionName string
	vectorDim      int
}

func NewClient(endpoint, apiKey, collectionName string, vectorDim int) (*Client, error) {
	c, err := client.NewGrpcClient(
		context.Background(),
		endpoint,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	logger.Info("Milvus client initialized",
		zap.String("endpoint", endpoint),
		zap.String("collection", collectionName),
	)

	return &Client{
		client:         c,
		collectionName: collectionName,
		vectorDim:      vectorDim,
	}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) EnsureCollection(ctx context.Context) error {
	has, err := c.client.HasCollection(ctx, c.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if has {
		logger.Info("Collection already exists", zap.String("collection", c.collectionName))
		return nil
	}

	schema := &entity.Schema{
		CollectionName: c.collectionName,
		Description:    "Support knowledge base chunks",
		Fields: []*entity.Field{
			{
				Name:       "chunk_id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", c.vectorDim),
				},
			},
			{
				Name:     "text",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "4096",
				},
			},
			{
				Name:     "source",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "512",
				},
			},
			{
				Name:     "chunk_index",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "timestamp",
				DataType: entity.FieldTypeInt64,
			},
		},
	}

	if err = c.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexIvfFlat(entity.L2, 1024)
	if err != nil {
		return fmt.Errorf("failed to build index params: %w", err)
	}
	if err = c.client.CreateIndex(ctx, c.collectionName, "embedding", idx, false); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	if err = c.client.LoadCollection(ctx, c.collectionName, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	logger.Info("Collection created and loaded", zap.String("collection", c.collectionName))

	return nil
}

// Chunk is an insertable knowledge-base fragment.
type Chunk struct {
	ID         string
	Embedding  []float32
	Text       string
	Source     string
	ChunkIndex int
	Timestamp  time.Time
}

func (c *Client) Insert(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	chunkIDs := make([]string, len(chunks))
	embeddings := make([][]float32, len(chunks))
	texts := make([]string, len(chunks))
	sources := make([]string, len(chunks))
	indexes := make([]int64, len(chunks))
	timestamps := make([]int64, len(chunks))

	for i, chunk := range chunks {
		chunkIDs[i] = chunk.ID
		embeddings[i] = chunk.Embedding
		texts[i] = chunk.Text
		sources[i] = chunk.Source
		indexes[i] = int64(chunk.ChunkIndex)
		timestamps[i] = chunk.Timestamp.Unix()
	}

	_, err := c.client.Insert(
		ctx,
		c.collectionName,
		"",
		entity.NewColumnVarChar("chunk_id", chunkIDs),
		entity.NewColumnFloatVector("embedding", c.vectorDim, embeddings),
		entity.NewColumnVarChar("text", texts),
		entity.NewColumnVarChar("source", sources),
		entity.NewColumnInt64("chunk_index", indexes),
		entity.NewColumnInt64("timestamp", timestamps),
	)

	if err != nil {
		return fmt.Errorf("failed to insert chunks: %w", err)
	}

	if err = c.client.Flush(ctx, c.collectionName, false); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	logger.Info("Chunks inserted into vector DB", zap.Int("count", len(chunks)))

	return nil
}

// Search returns the topK nearest chunks by L2 distance, closest first.
func (c *Client) Search(ctx context.Context, queryEmbedding []float32, topK int) ([]Match, error) {
	sp, _ := entity.NewIndexIvfFlatSearchParam(16)

	searchResult, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() ([]client.SearchResult, error) {
		return c.client.Search(
			ctx,
			c.collectionName,
			[]string{},
			"",
			[]string{"chunk_id", "text", "source", "chunk_index"},
			[]entity.Vector{entity.FloatVector(queryEmbedding)},
			"embedding",
			entity.L2,
			topK,
			sp,
		)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]Match, 0)
	for _, sr := range searchResult {
		textCol := sr.Fields.GetColumn("text")
		sourceCol := sr.Fields.GetColumn("source")
		indexCol := sr.Fields.GetColumn("chunk_index")

		for i := 0; i < sr.ResultCount; i++ {
			text, _ := textCol.Get(i)
			source, _ := sourceCol.Get(i)
			chunkIndex, _ := indexCol.Get(i)

			results = append(results, Match{
				Text:       text.(string),
				Source:     source.(string),
				ChunkIndex: int(chunkIndex.(int64)),
				Distance:   float64(sr.Scores[i]),
			})
		}
	}

	logger.Debug("Vector search completed",
		zap.Int("topK", topK),
		zap.Int("results", len(results)),
	)

	return results, nil
}
