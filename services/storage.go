package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cityconnect-be/apperror"
	"cityconnect-be/backend"
	"cityconnect-be/metrics"
)

// File is an upload: the original filename and its content.
type File struct {
	Name        string
	ContentType string
	Reader      io.Reader
}

type StorageService struct {
	objects backend.ObjectStore
	baseURL string
	logger  *zap.Logger
	now     func() time.Time
}

// NewStorageService returns a service whose download locators are rooted at
// baseURL (for example "https://api.example.org").
func NewStorageService(objects backend.ObjectStore, baseURL string, logger *zap.Logger) *StorageService {
	return &StorageService{
		objects: objects,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.Named("storage"),
		now:     time.Now,
	}
}

// sanitizeFilename keeps only the base name and drops path separators and
// NUL bytes.
func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == '\x00' {
			return -1
		}
		return r
	}, name)

	if name == "" || name == "." || name == ".." {
		name = "unnamed"
	}
	return name
}

func cleanPrefix(prefix string) (string, error) {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return "uploads", nil
	}
	for _, part := range strings.Split(prefix, "/") {
		if part == "" || part == "." || part == ".." {
			return "", apperror.ValidationFailed("path", "Invalid upload path")
		}
	}
	return prefix, nil
}

// ObjectKey composes prefix, the current unix milliseconds and the
// filename. Two uploads of the same name under the same prefix in the same
// millisecond collide; the later one wins.
func (s *StorageService) ObjectKey(prefix, filename string) string {
	return fmt.Sprintf("%s/%d_%s", prefix, s.now().UnixMilli(), sanitizeFilename(filename))
}

// URL is the download locator for key.
func (s *StorageService) URL(key string) string {
	return s.baseURL + "/files/" + key
}

func (s *StorageService) put(ctx context.Context, file File, prefix string) (string, error) {
	if file.Reader == nil {
		return "", apperror.ValidationFailed("file", "File is required")
	}
	key := s.ObjectKey(prefix, file.Name)
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := s.objects.Put(ctx, key, contentType, file.Reader); err != nil {
		metrics.Upload(false)
		s.logger.Error("upload failed", zap.String("key", key), zap.Error(err))
		return "", apperror.Write("Failed to upload file", err)
	}
	metrics.Upload(true)
	return key, nil
}

// UploadFile stores one file and returns its download locator.
func (s *StorageService) UploadFile(ctx context.Context, file File, prefix string) (out Envelope[string]) {
	defer guard(s.logger, "UploadFile", &out)

	prefix, err := cleanPrefix(prefix)
	if err != nil {
		return fail[string](err)
	}
	key, err := s.put(ctx, file, prefix)
	if err != nil {
		return fail[string](err)
	}
	return ok(s.URL(key))
}

// UploadMultipleFiles stores all files concurrently. If any upload fails the
// whole call fails, no locator is returned and the objects already stored
// are removed on a best-effort basis.
func (s *StorageService) UploadMultipleFiles(ctx context.Context, files []File, prefix string) (out Envelope[[]string]) {
	defer guard(s.logger, "UploadMultipleFiles", &out)

	prefix, err := cleanPrefix(prefix)
	if err != nil {
		return fail[[]string](err)
	}

	keys := make([]string, len(files))
	var mu sync.Mutex
	stored := make([]string, 0, len(files))

	g, gctx := errgroup.WithContext(ctx)
	for i, file := range files {
		g.Go(func() error {
			key, err := s.put(gctx, file, prefix)
			if err != nil {
				return err
			}
			keys[i] = key
			mu.Lock()
			stored = append(stored, key)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.removeAll(context.WithoutCancel(ctx), stored)
		return fail[[]string](err)
	}

	urls := make([]string, len(keys))
	for i, key := range keys {
		urls[i] = s.URL(key)
	}
	return ok(urls)
}

func (s *StorageService) removeAll(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.objects.Delete(ctx, key); err != nil && !errors.Is(err, backend.ErrNotFound) {
			s.logger.Warn("removing partial upload failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// OpenFile opens the object stored under key. The caller closes it.
func (s *StorageService) OpenFile(ctx context.Context, key string) (out Envelope[*backend.Object]) {
	defer guard(s.logger, "OpenFile", &out)

	obj, err := s.objects.Open(ctx, key)
	if errors.Is(err, backend.ErrNotFound) {
		return fail[*backend.Object](apperror.NotFound("File not found"))
	}
	if err != nil {
		s.logger.Error("opening file failed", zap.String("key", key), zap.Error(err))
		return fail[*backend.Object](apperror.Read("Failed to read file", err))
	}
	return ok(obj)
}
