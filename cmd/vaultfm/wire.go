package main

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"vaultfm/block"
	"vaultfm/cache"
	"vaultfm/config"
	"vaultfm/db"
	"vaultfm/importpipeline"
	"vaultfm/keys"
	"vaultfm/logger"
	"vaultfm/reassemble"
	"vaultfm/repository"
	"vaultfm/storage"
)

// app bundles every collaborator a subcommand needs, wired once from
// config the way the teacher's cmd package wires config -> storage/db
// clients before handing off to a subcommand's Run.
type app struct {
	cfg *config.Config
	gdb *gorm.DB

	releases  *repository.ReleaseRepository
	tracks    *repository.TrackRepository
	files     *repository.FileRepository
	positions *repository.TrackPositionRepository
	blocks    *repository.BlockRepository

	keyProvider *keys.Provider
	engine      *block.Engine
	pipeline    *importpipeline.Pipeline
	reassembler *reassemble.Reassembler
}

// newApp loads configuration and dials every backing service. Callers
// are responsible for calling close() before the process exits.
func newApp() (*app, error) {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogOutputPath,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAgeDays,
		Compress:   cfg.LogCompress,
	})

	gdb, err := db.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect metadata store: %w", err)
	}

	kp, err := keys.NewProvider(cfg.MasterKeyHex, cfg.ActiveKID)
	if err != nil {
		return nil, fmt.Errorf("construct key provider: %w", err)
	}

	objects, err := storage.NewObjectStore(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("connect object store: %w", err)
	}

	var backing *cache.RedisStore
	backing, err = cache.NewRedisStore(cfg, 24*time.Hour)
	if err != nil {
		logger.Warn("redis cache backend unavailable, running with in-memory-only cache",
			logger.ErrorField(err))
		backing = nil
	}
	lru := cache.NewLRU(cfg.CacheMaxBytes, cfg.CacheMaxCount)
	blockCache := cache.New(lru, backing)

	blockRepo := repository.NewBlockRepository(gdb)
	fileRepo := repository.NewFileRepository(gdb)
	trackRepo := repository.NewTrackRepository(gdb)
	posRepo := repository.NewTrackPositionRepository(gdb)
	releaseRepo := repository.NewReleaseRepository(gdb)

	engine := block.NewEngine(blockCache, objects, blockRepo, kp.KeyFor)

	pipeline := importpipeline.New(importpipeline.Config{
		BlockSizeBytes:        cfg.BlockSizeBytes,
		EncryptWorkers:        cfg.EncryptWorkers,
		UploadWorkers:         cfg.UploadWorkers,
		ReaderChannelCapacity: cfg.ReaderChannelCapacity,
	}, kp, engine, blockRepo, trackRepo, releaseRepo, fileRepo, trackRepo, posRepo)

	reassembler := reassemble.New(engine, posRepo, fileRepo, blockRepo)

	return &app{
		cfg: cfg, gdb: gdb,
		releases: releaseRepo, tracks: trackRepo, files: fileRepo, positions: posRepo, blocks: blockRepo,
		keyProvider: kp, engine: engine, pipeline: pipeline, reassembler: reassembler,
	}, nil
}

func (a *app) close() {
	if err := db.Close(a.gdb); err != nil {
		logger.Warn("error closing metadata store connection", logger.ErrorField(err))
	}
}
