package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docfeed/internal/chunk"
	"github.com/kailas-cloud/docfeed/internal/domain"
	"github.com/kailas-cloud/docfeed/internal/metrics"
)

const seedFileName = "faq.md"

const seedContent = `# Frequently Asked Questions

## What is this document?

This is a seed document created automatically on first run. Replace it
with your own knowledge base files and run the loader again.

## Which files are picked up?

Markdown and plain-text files placed directly in the documents directory.
Each file is split into chunks, every chunk is embedded, and the vectors
are stored in the collection together with the source text.
`

// Report summarizes a batch run.
type Report struct {
	FilesFound     int
	FilesProcessed int
	ChunksUploaded int
}

// Service loads knowledge base files from a directory into the index.
// A failed file is logged and skipped; the run itself never fails.
type Service struct {
	pipe    Pipeline
	rootDir string
	exts    []string
	profile chunk.Profile
	logger  *zap.Logger
}

// New creates a batch loader over rootDir. exts holds the allowed file
// extensions (with leading dot).
func New(pipe Pipeline, rootDir string, exts []string, profile chunk.Profile, logger *zap.Logger) *Service {
	return &Service{
		pipe:    pipe,
		rootDir: rootDir,
		exts:    exts,
		profile: profile,
		logger:  logger,
	}
}

// Run scans the documents directory and feeds every matching file through
// the pipeline. Files are visited in name order, non-recursively. Point ids
// continue across files: each file starts at the running total of points
// written so far in this run.
func (s *Service) Run(ctx context.Context) Report {
	var report Report

	if err := s.ensureRoot(); err != nil {
		s.logger.Error("Documents directory unavailable",
			zap.String("dir", s.rootDir), zap.Error(err))
		return report
	}

	files, err := s.listFiles()
	if err != nil {
		s.logger.Error("Failed to scan documents directory",
			zap.String("dir", s.rootDir), zap.Error(err))
		return report
	}

	report.FilesFound = len(files)
	if len(files) == 0 {
		s.logger.Info("No documents to load", zap.String("dir", s.rootDir))
		return report
	}

	if err := s.pipe.EnsureCollection(ctx); err != nil {
		s.logger.Error("Failed to prepare collection", zap.Error(err))
		return report
	}

	for _, name := range files {
		n, err := s.processFile(ctx, name, uint64(report.ChunksUploaded))
		if err != nil {
			metrics.BatchFilesTotal.WithLabelValues("failed").Inc()
			s.logger.Error("Failed to load file",
				zap.String("file", name), zap.Error(err))
			continue
		}

		// A file only counts as processed when at least one chunk made it in.
		if n == 0 {
			metrics.BatchFilesTotal.WithLabelValues("empty").Inc()
			s.logger.Warn("File produced no chunks", zap.String("file", name))
			continue
		}

		report.FilesProcessed++
		report.ChunksUploaded += n

		metrics.BatchFilesTotal.WithLabelValues("processed").Inc()
		s.logger.Info("File loaded",
			zap.String("file", name),
			zap.Int("chunks", n),
		)
	}

	s.logger.Info("Batch load finished",
		zap.Int("files_found", report.FilesFound),
		zap.Int("files_processed", report.FilesProcessed),
		zap.Int("chunks_uploaded", report.ChunksUploaded),
	)
	return report
}

// ensureRoot creates the documents directory with a seed file when it does
// not exist yet, so a fresh deployment has something to answer from.
func (s *Service) ensureRoot() error {
	if _, err := os.Stat(s.rootDir); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat documents dir: %w", err)
	}

	if err := os.MkdirAll(s.rootDir, 0o755); err != nil {
		return fmt.Errorf("create documents dir: %w", err)
	}

	seedPath := filepath.Join(s.rootDir, seedFileName)
	if err := os.WriteFile(seedPath, []byte(seedContent), 0o644); err != nil {
		return fmt.Errorf("write seed document: %w", err)
	}

	s.logger.Info("Created documents directory with seed file",
		zap.String("dir", s.rootDir),
		zap.String("file", seedFileName),
	)
	return nil
}

// listFiles returns matching file names in name order (os.ReadDir sorts).
func (s *Service) listFiles() ([]string, error) {
	entries, err := os.ReadDir(s.rootDir)
	if err != nil {
		return nil, fmt.Errorf("read documents dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !s.allowedExt(e.Name()) {
			continue
		}
		files = append(files, e.Name())
	}
	return files, nil
}

func (s *Service) allowedExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range s.exts {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

func (s *Service) processFile(ctx context.Context, name string, baseID uint64) (int, error) {
	path := filepath.Join(s.rootDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read file: %w", err)
	}

	rec := domain.FileRecord(string(data), name, path)
	n, err := s.pipe.Process(ctx, rec, s.profile, baseID)
	if err != nil {
		return 0, fmt.Errorf("process file: %w", err)
	}
	return n, nil
}
