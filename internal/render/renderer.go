package render

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofrs/flock"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/torosent/tokenfill/internal/tracing"
)

const lockRetryDelay = 100 * time.Millisecond

// Options controls how a template file is rendered.
type Options struct {
	// Lock takes an advisory lock on the template for the read-modify-write cycle.
	Lock bool
	// Backup copies the original bytes to <path>.<ulid>.bak before overwriting.
	Backup bool
	// Strict fails the render, without writing, if any token survives substitution.
	Strict bool
	// Output receives the rendered text instead of the template file when set.
	Output io.Writer
	Tracer trace.Tracer
	Logger *log.Logger
}

// Result describes a completed render.
type Result struct {
	Path       string        `json:"path"`
	Bytes      int           `json:"bytes"`
	Counts     []TokenCount  `json:"tokens"`
	Residual   []string      `json:"residual,omitempty"`
	BackupPath string        `json:"backup_path,omitempty"`
	Written    bool          `json:"written"`
	Duration   time.Duration `json:"duration"`
}

// Replaced returns the total number of replaced occurrences.
func (r Result) Replaced() int {
	total := 0
	for _, c := range r.Counts {
		total += c.Count
	}
	return total
}

// Renderer reads a template, substitutes tokens and writes the result back.
type Renderer struct {
	opts Options
}

// New creates a Renderer. Nil tracer and logger fall back to no-ops.
func New(opts Options) *Renderer {
	if opts.Tracer == nil {
		opts.Tracer = noop.NewTracerProvider().Tracer("tokenfill")
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Renderer{opts: opts}
}

// RenderFile renders the template at path in place. The write truncates and
// rewrites the file; it is not atomic.
func (r *Renderer) RenderFile(ctx context.Context, path string, subs []Substitution) (result Result, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	result.Path = path

	ctx, span := tracing.StartRenderSpan(ctx, r.opts.Tracer, path, len(subs))
	defer func() {
		result.Duration = time.Since(start)
		tracing.EndSpan(span, err,
			attribute.Int("tokenfill.replaced", result.Replaced()),
			attribute.Bool("tokenfill.written", result.Written),
		)
	}()

	info, err := os.Stat(path)
	if err != nil {
		return result, fmt.Errorf("read template: %w", err)
	}

	if r.opts.Lock && r.opts.Output == nil {
		fileLock := flock.New(path)
		locked, lockErr := fileLock.TryLockContext(ctx, lockRetryDelay)
		if lockErr != nil {
			return result, fmt.Errorf("lock template: %w", lockErr)
		}
		if !locked {
			return result, fmt.Errorf("lock template: %s is locked by another process", path)
		}
		defer func() {
			if unlockErr := fileLock.Unlock(); unlockErr != nil {
				r.opts.Logger.Warn("failed to release template lock", "path", path, "err", unlockErr)
			}
		}()
		r.opts.Logger.Debug("template locked", "path", path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return result, fmt.Errorf("read template: %w", err)
	}
	text := string(raw)
	r.opts.Logger.Debug("template read", "path", path, "bytes", len(raw))

	result.Counts = Count(text, subs)
	rendered := Apply(text, subs)
	result.Bytes = len(rendered)
	result.Residual = Residual(rendered, Tokens(subs))

	for _, c := range result.Counts {
		r.opts.Logger.Debug("token substituted", "token", c.Token, "occurrences", c.Count)
	}

	if len(result.Residual) > 0 {
		if r.opts.Strict {
			return result, &ResidualTokensError{Tokens: result.Residual}
		}
		r.opts.Logger.Warn("tokens remain after rendering", "tokens", result.Residual)
	}

	if r.opts.Output != nil {
		if _, err := io.WriteString(r.opts.Output, rendered); err != nil {
			return result, fmt.Errorf("write output: %w", err)
		}
		return result, nil
	}

	if r.opts.Backup {
		backupPath := fmt.Sprintf("%s.%s.bak", path, ulid.Make().String())
		if err := os.WriteFile(backupPath, raw, info.Mode().Perm()); err != nil {
			return result, fmt.Errorf("write backup: %w", err)
		}
		result.BackupPath = backupPath
		r.opts.Logger.Info("template backed up", "backup", backupPath)
	}

	if err := os.WriteFile(path, []byte(rendered), info.Mode().Perm()); err != nil {
		return result, fmt.Errorf("write template: %w", err)
	}
	result.Written = true
	r.opts.Logger.Info("template rendered", "path", path, "replaced", result.Replaced())

	return result, nil
}
