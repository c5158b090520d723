package region

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vertextoedge/map-bootstrap/internal/domain"
	"github.com/vertextoedge/map-bootstrap/internal/port"
)

// FileSuffix is appended to a region id to form its file name
const FileSuffix = ".mwm"

// Config contains region engine settings
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		RequestTimeout: 30 * time.Second,
	}
}

// Engine downloads map regions and reports through subscription slots
type Engine struct {
	config   Config
	catalog  port.RegionCatalog
	storage  port.FileSystem
	registry *Registry
	client   *http.Client
	logger   *zap.Logger

	mu        sync.Mutex
	listeners map[int]port.RegionListener
	nextSlot  int
	active    map[string]context.CancelFunc
	wg        sync.WaitGroup
}

// Ensure Engine implements port.RegionEngine
var _ port.RegionEngine = (*Engine)(nil)

// New creates a new region engine
func New(cfg Config, catalog port.RegionCatalog, storage port.FileSystem, registry *Registry, logger *zap.Logger) *Engine {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultConfig().RequestTimeout
	}
	return &Engine{
		config:   cfg,
		catalog:  catalog,
		storage:  storage,
		registry: registry,
		client: &http.Client{
			Transport: &http.Transport{
				IdleConnTimeout:       90 * time.Second,
				ForceAttemptHTTP2:     true,
				DisableCompression:    true,
				ResponseHeaderTimeout: cfg.RequestTimeout,
			},
		},
		logger:    logger,
		listeners: make(map[int]port.RegionListener),
		active:    make(map[string]context.CancelFunc),
	}
}

// Subscribe registers a listener and returns its slot handle
func (e *Engine) Subscribe(listener port.RegionListener) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextSlot++
	e.listeners[e.nextSlot] = listener
	e.logger.Debug("region listener subscribed", zap.Int("slot", e.nextSlot))
	return e.nextSlot
}

// Unsubscribe releases a slot handle
func (e *Engine) Unsubscribe(slot int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.listeners[slot]; !ok {
		e.logger.Warn("unsubscribe of unknown slot", zap.Int("slot", slot))
		return
	}
	delete(e.listeners, slot)
	e.logger.Debug("region listener unsubscribed", zap.Int("slot", slot))
}

// Subscribers returns the number of registered listeners
func (e *Engine) Subscribers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners)
}

// Region returns the downloadable region for an id
func (e *Engine) Region(regionID string) (domain.RegionCandidate, error) {
	r, err := e.catalog.GetRegion(regionID)
	if err != nil {
		return domain.RegionCandidate{}, err
	}
	return domain.RegionCandidate{
		ID:             r.ID,
		DisplayName:    r.Name,
		TotalSizeBytes: r.SizeBytes,
	}, nil
}

// Download queues a region download. A region already stored is reported
// done without a transfer.
func (e *Engine) Download(regionID string) error {
	if regionID == "" {
		return domain.ErrEmptyRegionID
	}
	region, err := e.catalog.GetRegion(regionID)
	if err != nil {
		return err
	}

	if rec, err := e.registry.Get(regionID); err == nil && rec.Status == domain.RegionStatusDone && e.storage.FileExists(regionID+FileSuffix) {
		e.logger.Info("region already downloaded", zap.String("region_id", regionID))
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.emit(domain.RegionEvent{
				RegionID:    regionID,
				LocalBytes:  rec.LocalBytes,
				RemoteBytes: rec.SizeBytes,
				Status:      domain.RegionStatusDone,
				IsLeaf:      true,
			})
		}()
		return nil
	}

	e.mu.Lock()
	if _, running := e.active[regionID]; running {
		e.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.active[regionID] = cancel
	e.mu.Unlock()

	if err := e.registry.Put(Record{RegionID: regionID, Status: domain.RegionStatusInQueue, SizeBytes: region.SizeBytes}); err != nil {
		e.logger.Warn("failed to store region status", zap.String("region_id", regionID), zap.Error(err))
	}

	e.wg.Add(1)
	go e.run(ctx, *region)
	return nil
}

func (e *Engine) run(ctx context.Context, region domain.CatalogRegion) {
	defer e.wg.Done()
	defer func() {
		e.mu.Lock()
		if cancel, ok := e.active[region.ID]; ok {
			cancel()
			delete(e.active, region.ID)
		}
		e.mu.Unlock()
	}()

	e.emit(domain.RegionEvent{RegionID: region.ID, RemoteBytes: region.SizeBytes, Status: domain.RegionStatusInQueue, IsLeaf: true})

	written, err := e.fetch(ctx, region)
	if ctx.Err() != nil {
		e.logger.Info("region download cancelled", zap.String("region_id", region.ID))
		return
	}

	rec := Record{RegionID: region.ID, LocalBytes: written, SizeBytes: region.SizeBytes}
	ev := domain.RegionEvent{RegionID: region.ID, LocalBytes: written, RemoteBytes: region.SizeBytes, IsLeaf: true}
	if err != nil {
		code := domain.CodeOf(err)
		e.logger.Warn("region download failed",
			zap.String("region_id", region.ID),
			zap.String("code", code.String()),
			zap.Error(err),
		)
		rec.Status, rec.ErrorCode = domain.RegionStatusFailed, code
		ev.Status, ev.ErrorCode = domain.RegionStatusFailed, code
	} else {
		e.logger.Info("region downloaded", zap.String("region_id", region.ID), zap.Int64("size", written))
		rec.Status = domain.RegionStatusDone
		ev.Status = domain.RegionStatusDone
	}

	if err := e.registry.Put(rec); err != nil {
		e.logger.Warn("failed to store region status", zap.String("region_id", region.ID), zap.Error(err))
	}
	e.emit(ev)
}

func (e *Engine) fetch(ctx context.Context, region domain.CatalogRegion) (int64, error) {
	if err := e.storage.CheckWritable(); err != nil {
		return 0, domain.NewCodeError(domain.ResultStorageDisconnected, err)
	}

	name := region.ID + FileSuffix
	u := strings.TrimSuffix(e.config.BaseURL, "/") + "/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, domain.NewCodeError(domain.ResultDownloadError, err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, domain.NewCodeError(domain.ResultDownloadError, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, domain.NewCodeError(domain.ResultDownloadError, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	remote := region.SizeBytes
	if resp.ContentLength > 0 {
		remote = resp.ContentLength
	}

	e.emit(domain.RegionEvent{RegionID: region.ID, RemoteBytes: remote, Status: domain.RegionStatusProgress, IsLeaf: true})

	body := &countingReader{reader: resp.Body, onRead: func(n int64) {
		e.progress(region.ID, n, remote)
	}}
	_, written, err := e.storage.WriteFile(name, body)
	if err != nil {
		if body.readErr != nil {
			return 0, domain.NewCodeError(domain.ResultDownloadError, err)
		}
		return 0, err
	}
	return written, nil
}

// emit delivers a status event to every subscribed listener
func (e *Engine) emit(ev domain.RegionEvent) {
	for _, l := range e.snapshot() {
		l.OnStatusChanged([]domain.RegionEvent{ev})
	}
}

func (e *Engine) progress(regionID string, local, remote int64) {
	for _, l := range e.snapshot() {
		l.OnProgress(regionID, local, remote)
	}
}

func (e *Engine) snapshot() []port.RegionListener {
	e.mu.Lock()
	defer e.mu.Unlock()
	listeners := make([]port.RegionListener, 0, len(e.listeners))
	for _, l := range e.listeners {
		listeners = append(listeners, l)
	}
	return listeners
}

// Stop cancels running downloads and waits for them to finish
func (e *Engine) Stop() {
	e.mu.Lock()
	for _, cancel := range e.active {
		cancel()
	}
	e.mu.Unlock()
	e.wg.Wait()
}

// countingReader reports the running byte count of a reader
type countingReader struct {
	reader  io.Reader
	read    int64
	readErr error
	onRead  func(n int64)
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.read += int64(n)
		r.onRead(r.read)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		r.readErr = err
	}
	return n, err
}
