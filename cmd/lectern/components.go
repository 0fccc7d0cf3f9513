package main

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/lectern/internal/answer"
	"github.com/hyperjump/lectern/internal/auth"
	"github.com/hyperjump/lectern/internal/classes"
	"github.com/hyperjump/lectern/internal/config"
	"github.com/hyperjump/lectern/internal/embedding"
	"github.com/hyperjump/lectern/internal/extract"
	"github.com/hyperjump/lectern/internal/indexer"
	"github.com/hyperjump/lectern/internal/llm"
	"github.com/hyperjump/lectern/internal/qa"
	"github.com/hyperjump/lectern/internal/search"
	"github.com/hyperjump/lectern/internal/shard"
	"github.com/hyperjump/lectern/internal/storage"
	"github.com/hyperjump/lectern/internal/summary"
)

// Components holds the wired services.
type Components struct {
	Storage  *storage.SQLiteStorage
	Embedder embedding.Embedder
	Shards   *shard.Registry
	Classes  *classes.Registry
	Auth     *auth.Service
	QA       *qa.Service
}

// Close releases resources.
func (c *Components) Close() {
	if c.Shards != nil {
		_ = c.Shards.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

// initializeComponents opens storage and wires every service from cfg.
func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	c := &Components{Storage: store}

	embedder := embedding.NewHashingEmbedder(cfg.Embedding.Dimensions)
	c.Embedder = embedder
	c.Shards = shard.NewRegistry(store, embedder, shard.WithLogger(logger))
	c.Classes = classes.NewRegistry(store, &cfg.Classes, classes.WithLogger(logger))

	composer, summarizer, err := newGenerators(&cfg.LLM, &cfg.Summary)
	if err != nil {
		c.Close()
		return nil, err
	}
	logger.Info("Answer generation configured", zap.String("provider", cfg.LLM.Provider))

	issuer, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("auth: %w", err)
	}
	c.Auth = auth.NewService(store, issuer, cfg.Auth.BcryptCost, logger)

	c.QA = qa.NewService(qa.Deps{
		Store:   store,
		Classes: c.Classes,
		Indexer: indexer.NewIndexer(store, c.Shards, embedder, extract.NewRegistry(), &cfg.Ingest,
			indexer.WithLogger(logger)),
		Retriever: search.NewRetriever(c.Shards,
			embedding.NewCachedEmbedder(embedder, cfg.Embedding.CacheSize), &cfg.Retrieval, logger),
		Composer:  composer,
		Summaries: summary.NewCache(store, summarizer, cfg.Summary.MaxInputChars, logger),
		TopK:      cfg.Retrieval.TopK,
		Logger:    logger,
	})
	return c, nil
}

// newGenerators picks the answer composer and summarizer for the provider.
func newGenerators(llmCfg *config.LLMConfig, sumCfg *config.SummaryConfig) (answer.Composer, summary.Summarizer, error) {
	switch llmCfg.Provider {
	case config.ProviderLocal, "":
		return answer.NewExtractiveComposer(0), summary.NewFrequencySummarizer(sumCfg.MaxSentences), nil
	case config.ProviderAnthropic:
		client, err := llm.NewClient(llmCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("llm: %w", err)
		}
		return answer.NewLLMComposer(client, llmCfg.MaxAnswerTokens),
			summary.NewLLMSummarizer(client, llmCfg.MaxSummaryTokens), nil
	}
	return nil, nil, errors.New("unknown llm provider " + llmCfg.Provider)
}
