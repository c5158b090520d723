package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/vertextoedge/map-bootstrap/internal/domain"
	"github.com/vertextoedge/map-bootstrap/internal/port"
	"github.com/vertextoedge/map-bootstrap/internal/util/ratelimiter"
)

// Config contains console surface settings
type Config struct {
	// Interactive resolves modals and prompts from input lines
	Interactive bool
	// AssumeYes accepts every prompt without asking
	AssumeYes bool
	// ProgressInterval limits how often progress lines are written
	ProgressInterval time.Duration
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		ProgressInterval: 500 * time.Millisecond,
	}
}

var iconLabels = map[domain.Icon]string{
	domain.IconNone:      "",
	domain.IconGlobe:     "[globe]",
	domain.IconWiFiOff:   "[no wifi]",
	domain.IconMapSearch: "[map]",
}

// waiter consumes one input line
type waiter struct {
	id     int
	handle func(line string)
}

// Surface renders the bootstrap screen as lines on a writer
type Surface struct {
	config   Config
	out      io.Writer
	logger   *zap.Logger
	progress *ratelimiter.Limiter

	mu          sync.Mutex
	last        domain.ScreenUpdate
	modalID     int
	modalClose  func()
	modalWaiter int
	waiters     []waiter
	nextWaiter  int
	proceeded   chan struct{}
	proceedOnce sync.Once
}

// Ensure Surface implements port.Surface
var _ port.Surface = (*Surface)(nil)

// New creates a new console surface
func New(cfg Config, out io.Writer, logger *zap.Logger) *Surface {
	return &Surface{
		config:    cfg,
		out:       out,
		logger:    logger,
		progress:  ratelimiter.New(cfg.ProgressInterval),
		proceeded: make(chan struct{}),
	}
}

// Update replaces the screen state
func (s *Surface) Update(u domain.ScreenUpdate) {
	s.mu.Lock()
	prev := s.last
	s.last = u
	s.mu.Unlock()

	if u.Headline != prev.Headline || u.Subtext != prev.Subtext || u.Icon != prev.Icon || u.ProgressMax != prev.ProgressMax {
		parts := []string{}
		if label := iconLabels[u.Icon]; label != "" {
			parts = append(parts, label)
		}
		if u.Headline != "" {
			parts = append(parts, u.Headline)
		}
		if u.Subtext != "" {
			parts = append(parts, "("+u.Subtext+")")
		}
		s.println(strings.Join(parts, " "))
		s.progress.Reset()
	}

	if u.ProgressMax <= 0 || (u.ProgressValue == prev.ProgressValue && u.ProgressMax == prev.ProgressMax) {
		return
	}
	if u.ProgressValue >= u.ProgressMax {
		s.progress.Force()
	} else if ok, _ := s.progress.Allow(); !ok {
		return
	}
	s.println(FormatProgress(u.ProgressValue, u.ProgressMax))
}

// FormatProgress renders a byte progress line
func FormatProgress(value, max int64) string {
	if value < 0 {
		value = 0
	}
	pct := 0.0
	if max > 0 {
		pct = float64(value) * 100 / float64(max)
	}
	return fmt.Sprintf("  %s / %s (%.0f%%)", humanize.Bytes(uint64(value)), humanize.Bytes(uint64(max)), pct)
}

// ShowModal displays a dismissible dialog
func (s *Surface) ShowModal(modal domain.Modal, onDismiss func()) {
	var once sync.Once
	dismiss := func() {
		once.Do(func() {
			if onDismiss != nil {
				onDismiss()
			}
		})
	}

	s.mu.Lock()
	s.modalID++
	id := s.modalID
	s.modalClose = dismiss
	s.mu.Unlock()

	s.println(fmt.Sprintf("!! %s: %s", modal.Title, modal.Message))
	s.logger.Debug("modal shown", zap.String("title", modal.Title))

	if s.config.Interactive {
		s.println("   press Enter to dismiss")
		w := s.wait(func(string) { s.closeModal(id) })
		s.mu.Lock()
		if s.modalID == id {
			s.modalWaiter = w
		}
		s.mu.Unlock()
	}
}

// DismissModal closes the visible dialog, if any
func (s *Surface) DismissModal() {
	s.mu.Lock()
	id := s.modalID
	s.mu.Unlock()
	s.closeModal(id)
}

func (s *Surface) closeModal(id int) {
	s.mu.Lock()
	if s.modalID != id || s.modalClose == nil {
		s.mu.Unlock()
		return
	}
	dismiss := s.modalClose
	s.modalClose = nil
	s.dropWaiter(s.modalWaiter)
	s.modalWaiter = 0
	s.mu.Unlock()
	dismiss()
}

// ModalVisible reports whether a modal is showing
func (s *Surface) ModalVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modalClose != nil
}

// Confirm asks a yes/no question. Without an interactive console the answer
// is AssumeYes.
func (s *Surface) Confirm(prompt domain.Prompt, decide func(accepted bool)) {
	if s.config.AssumeYes || !s.config.Interactive {
		s.println(fmt.Sprintf("?? %s: %s [%s]", prompt.Title, prompt.Message, yesNo(s.config.AssumeYes)))
		decide(s.config.AssumeYes)
		return
	}

	s.println(fmt.Sprintf("?? %s: %s [y/N]", prompt.Title, prompt.Message))
	s.wait(func(line string) {
		answer := strings.ToLower(strings.TrimSpace(line))
		decide(answer == "y" || answer == "yes")
	})
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// Proceed signals that the map can be shown
func (s *Surface) Proceed() {
	s.proceedOnce.Do(func() {
		s.println("ready: maps are available")
		close(s.proceeded)
	})
}

// Proceeded is closed once Proceed has been called
func (s *Surface) Proceeded() <-chan struct{} {
	return s.proceeded
}

// wait queues fn for the next input line and returns its id
func (s *Surface) wait(fn func(line string)) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextWaiter++
	s.waiters = append(s.waiters, waiter{id: s.nextWaiter, handle: fn})
	return s.nextWaiter
}

// dropWaiter removes a queued waiter. Callers hold s.mu.
func (s *Surface) dropWaiter(id int) {
	for i, w := range s.waiters {
		if w.id == id {
			s.waiters = append(s.waiters[:i:i], s.waiters[i+1:]...)
			return
		}
	}
}

// HandleLine hands an input line to the oldest waiting modal or prompt
func (s *Surface) HandleLine(line string) {
	s.mu.Lock()
	if len(s.waiters) == 0 {
		s.mu.Unlock()
		return
	}
	w := s.waiters[0]
	s.waiters = s.waiters[1:]
	s.mu.Unlock()
	w.handle(line)
}

// ReadInput feeds lines from r until ctx is cancelled or r is exhausted
func (s *Surface) ReadInput(ctx context.Context, r io.Reader) error {
	lines := make(chan string)
	errs := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errs <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errs:
			return err
		case line := <-lines:
			s.HandleLine(line)
		}
	}
}

func (s *Surface) println(line string) {
	if line == "" {
		return
	}
	if _, err := fmt.Fprintln(s.out, line); err != nil {
		s.logger.Warn("failed to write to console", zap.Error(err))
	}
}
