package resource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vertextoedge/map-bootstrap/internal/domain"
	"github.com/vertextoedge/map-bootstrap/internal/port"
)

// Storage is the local storage used by the engine
type Storage interface {
	port.FileSystem

	// HasFreeSpace reports whether need bytes plus reserve fit on the disk
	HasFreeSpace(need, reserve int64) (bool, *port.DiskUsage, error)
}

// Config contains resource engine settings
type Config struct {
	BaseURL        string
	Files          []string
	MinFreeSpace   int64
	RequestTimeout time.Duration
	ProbeWorkers   int
	TempFileMaxAge time.Duration
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Files:          []string{"World.mwm", "WorldCoasts.mwm"},
		MinFreeSpace:   100 * 1024 * 1024,
		RequestTimeout: 30 * time.Second,
		ProbeWorkers:   4,
		TempFileMaxAge: 24 * time.Hour,
	}
}

// remoteFile is a required file that is missing locally
type remoteFile struct {
	name string
	size int64
}

// Engine downloads the required resource files over HTTP, one at a time
type Engine struct {
	config  Config
	storage Storage
	client  *http.Client
	logger  *zap.Logger

	mu       sync.Mutex
	pending  []remoteFile
	queried  bool
	next     int
	inFlight bool
	cancel   context.CancelFunc
}

// Ensure Engine implements port.ResourceEngine
var _ port.ResourceEngine = (*Engine)(nil)

// New creates a new resource engine
func New(cfg Config, storage Storage, logger *zap.Logger) *Engine {
	if cfg.ProbeWorkers <= 0 {
		cfg.ProbeWorkers = DefaultConfig().ProbeWorkers
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultConfig().RequestTimeout
	}

	transport := &http.Transport{
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   cfg.ProbeWorkers,
		IdleConnTimeout:       90 * time.Second,
		ForceAttemptHTTP2:     true,
		DisableCompression:    true,
		ResponseHeaderTimeout: cfg.RequestTimeout,
	}

	return &Engine{
		config:  cfg,
		storage: storage,
		client: &http.Client{
			Transport: transport,
			Timeout:   0, // No total timeout for downloads
		},
		logger: logger,
	}
}

// fileURL joins the base URL and a file name
func (e *Engine) fileURL(name string) string {
	base := strings.TrimSuffix(e.config.BaseURL, "/")
	return base + "/" + url.PathEscape(name)
}

// QuerySizeToDownload returns the bytes still missing, 0 if everything is in
// place, or a negative domain.ResultCode on error
func (e *Engine) QuerySizeToDownload() int64 {
	if err := e.storage.CheckWritable(); err != nil {
		e.logger.Warn("storage not writable", zap.Error(err))
		return int64(domain.ResultStorageDisconnected)
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.config.RequestTimeout)
	defer cancel()

	sizes := make([]int64, len(e.config.Files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.ProbeWorkers)

	for i, name := range e.config.Files {
		g.Go(func() error {
			size, err := e.remoteSize(gctx, name)
			if err != nil {
				return fmt.Errorf("size of %s: %w", name, err)
			}
			sizes[i] = size
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		code := domain.CodeOf(err)
		e.logger.Warn("size query failed", zap.Error(err), zap.String("code", code.String()))
		return int64(code)
	}

	var pending []remoteFile
	var total int64
	for i, name := range e.config.Files {
		if local, err := e.storage.GetFileSize(name); err == nil && local == sizes[i] {
			continue
		}
		pending = append(pending, remoteFile{name: name, size: sizes[i]})
		total += sizes[i]
	}

	if total > 0 {
		ok, usage, err := e.storage.HasFreeSpace(total, e.config.MinFreeSpace)
		if err != nil {
			e.logger.Warn("failed to read disk usage", zap.Error(err))
			return int64(domain.ResultStorageDisconnected)
		}
		if !ok {
			e.logger.Warn("not enough space for resources",
				zap.Int64("required", total),
				zap.Uint64("free", usage.Free),
			)
			return int64(domain.ResultNotEnoughSpace)
		}
	}

	e.mu.Lock()
	e.pending = pending
	e.queried = true
	e.next = 0
	e.mu.Unlock()

	e.logger.Debug("resources sized",
		zap.Int("missing_files", len(pending)),
		zap.Int64("bytes", total),
	)
	return total
}

// remoteSize issues a HEAD request and returns the content length
func (e *Engine) remoteSize(ctx context.Context, name string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, e.fileURL(name), nil)
	if err != nil {
		return 0, domain.NewCodeError(domain.ResultDownloadError, err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, domain.NewCodeError(domain.ResultDownloadError, fmt.Errorf("request failed: %w", err))
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, domain.NewCodeError(domain.ResultDownloadError, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	if resp.ContentLength < 0 {
		return 0, domain.NewCodeError(domain.ResultDownloadError, errors.New("missing content length"))
	}
	return resp.ContentLength, nil
}

// StartNextFile requests the next missing file. The outcome arrives on the
// listener from the download goroutine.
func (e *Engine) StartNextFile(listener port.ResourceListener) domain.ResultCode {
	e.mu.Lock()
	if e.inFlight {
		e.mu.Unlock()
		e.logger.Error("file requested while another is in flight")
		return domain.ResultDownloadError
	}
	if !e.queried || e.next >= len(e.pending) {
		e.mu.Unlock()
		return domain.ResultOutOfFiles
	}
	if err := e.storage.CheckWritable(); err != nil {
		e.mu.Unlock()
		e.logger.Warn("storage not writable", zap.Error(err))
		return domain.ResultStorageDisconnected
	}

	file := e.pending[e.next]
	isFinal := e.next == len(e.pending)-1
	ctx, cancel := context.WithCancel(context.Background())
	e.inFlight = true
	e.cancel = cancel
	e.mu.Unlock()

	go e.download(ctx, file, isFinal, listener)
	return domain.ResultSuccess
}

// download fetches one file and reports its outcome
func (e *Engine) download(ctx context.Context, file remoteFile, isFinal bool, listener port.ResourceListener) {
	started := time.Now()
	err := e.fetch(ctx, file, isFinal, listener)

	e.mu.Lock()
	e.inFlight = false
	e.cancel = nil
	cancelled := ctx.Err() != nil
	if err == nil {
		e.next++
	}
	e.mu.Unlock()

	if cancelled {
		e.logger.Info("resource download cancelled", zap.String("file", file.name))
		return
	}
	if err != nil {
		code := domain.CodeOf(err)
		e.logger.Warn("resource download failed",
			zap.String("file", file.name),
			zap.String("code", code.String()),
			zap.Error(err),
		)
		listener.OnFinish(code)
		return
	}

	e.logger.Info("resource downloaded",
		zap.String("file", file.name),
		zap.Int64("size", file.size),
		zap.Duration("duration", time.Since(started)),
	)
	listener.OnFinish(domain.ResultSuccess)
}

func (e *Engine) fetch(ctx context.Context, file remoteFile, isFinal bool, listener port.ResourceListener) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.fileURL(file.name), nil)
	if err != nil {
		return domain.NewCodeError(domain.ResultDownloadError, err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return domain.NewCodeError(domain.ResultDownloadError, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.NewCodeError(domain.ResultDownloadError, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body := &progressReader{
		reader: resp.Body,
		onProgress: func(n int64) {
			listener.OnProgress(domain.ProgressUpdate{Value: n, IsFinalFile: isFinal})
		},
	}

	_, written, err := e.storage.WriteFile(file.name, body)
	if err != nil {
		if body.readErr != nil {
			return domain.NewCodeError(domain.ResultDownloadError, err)
		}
		return err
	}
	if file.size > 0 && written != file.size {
		e.storage.DeleteFile(file.name)
		return domain.NewCodeError(domain.ResultDownloadError,
			fmt.Errorf("short download of %s: %d of %d bytes", file.name, written, file.size))
	}
	return nil
}

// CancelCurrentFile aborts the in-flight file, if any
func (e *Engine) CancelCurrentFile() {
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// ReloadMaps verifies the required files are in place and clears stale
// partial downloads
func (e *Engine) ReloadMaps() error {
	for _, name := range e.config.Files {
		if !e.storage.FileExists(name) {
			return fmt.Errorf("%w: %s", domain.ErrNotFound, name)
		}
	}

	if e.config.TempFileMaxAge > 0 {
		removed, err := e.storage.CleanOldTempFiles(e.config.TempFileMaxAge)
		if err != nil {
			e.logger.Warn("failed to clean temp files", zap.Error(err))
		} else if removed > 0 {
			e.logger.Info("removed stale temp files", zap.Int("count", removed))
		}
	}

	e.logger.Info("maps reloaded",
		zap.Int("files", len(e.config.Files)),
		zap.String("dir", e.storage.RootDir()),
	)
	return nil
}
