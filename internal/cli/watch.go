package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/Rab-crypto/tenax-sub001/internal/service"
)

// defaultDebounce is how long a transcript must stay quiet before it is processed.
const defaultDebounce = 2 * time.Second

var (
	watchDebounce time.Duration
	watchExisting bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Process transcripts as they are written",
	Long: `Watch a directory of JSONL transcripts and process each one once writes
to it settle. The file name without extension is used as the session id.

Examples:
  tenax watch ~/.claude/projects/my-app
  tenax watch ./transcripts --debounce 5s --existing`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd.Context(), newPrinter(cmd.OutOrStdout()), svc, args[0])
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", defaultDebounce, "quiet period before a transcript is processed")
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "process transcripts already in the directory first")
}

func runWatch(ctx context.Context, p *printer, s *service.Service, dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch %s: not a directory", dir)
	}

	handle := func(ctx context.Context, path string) {
		res, err := s.ProcessTranscript(ctx, path, sessionFromPath(path))
		if err != nil {
			p.printf("%s %s: %v\n", p.failure("✗"), filepath.Base(path), err)
			return
		}
		p.printf("%s %s: %s\n", p.success("✓"), res.Session.ID, plural(res.Added.Total(), "new item"))
	}

	if watchExisting {
		paths, err := filepath.Glob(filepath.Join(dir, "*.jsonl"))
		if err != nil {
			return err
		}
		for _, path := range paths {
			if ctx.Err() != nil {
				return nil
			}
			handle(ctx, path)
		}
	}

	w := newTranscriptWatcher(watchDebounce, handle, logger)
	p.printf("%s %s %s\n", p.status("Watching"), dir, p.hint("(Ctrl+C to stop)"))
	return w.Run(ctx, dir)
}

// sessionFromPath derives a session id from a transcript file name.
func sessionFromPath(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// transcriptWatcher calls handle once per transcript after its writes
// settle. Handles run one at a time on the Run goroutine.
type transcriptWatcher struct {
	debounce time.Duration
	handle   func(ctx context.Context, path string)
	logger   *slog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
	ready  chan string
}

func newTranscriptWatcher(debounce time.Duration, handle func(context.Context, string), logger *slog.Logger) *transcriptWatcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &transcriptWatcher{
		debounce: debounce,
		handle:   handle,
		logger:   logger,
		timers:   make(map[string]*time.Timer),
		ready:    make(chan string, 16),
	}
}

// Run watches dir until ctx is cancelled.
func (w *transcriptWatcher) Run(ctx context.Context, dir string) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	defer w.stopAll()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if isTranscriptWrite(event) {
				w.schedule(ctx, event.Name)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		case path := <-w.ready:
			w.logger.Debug("transcript settled", "path", path)
			w.handle(ctx, path)
		}
	}
}

func isTranscriptWrite(event fsnotify.Event) bool {
	if filepath.Ext(event.Name) != ".jsonl" {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}

// schedule (re)starts the quiet-period timer for path.
func (w *transcriptWatcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		select {
		case w.ready <- path:
		case <-ctx.Done():
		}
	})
}

func (w *transcriptWatcher) stopAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}
