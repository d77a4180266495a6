package transfer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/justyntemme/twinpane/internal/debug"
	"github.com/justyntemme/twinpane/internal/logging"
	"github.com/justyntemme/twinpane/internal/provider"
)

// DefaultAudioExtensions are the extensions eligible for conversion.
var DefaultAudioExtensions = []string{".wav", ".aif", ".aiff", ".flac", ".mp3", ".m4a", ".ogg", ".opus"}

// Config tunes an Engine.
type Config struct {
	AudioExtensions []string
	FallbackToCopy  bool // plain copy when conversion fails
	CountWorkers    int
}

// Engine runs transfers against one provider.
type Engine struct {
	prov  provider.Provider
	cfg   Config
	audio map[string]bool
	now   func() time.Time
}

// New returns an Engine. Zero config fields take defaults.
func New(p provider.Provider, cfg Config) *Engine {
	if len(cfg.AudioExtensions) == 0 {
		cfg.AudioExtensions = DefaultAudioExtensions
	}
	if cfg.CountWorkers <= 0 {
		cfg.CountWorkers = 4
	}
	audio := make(map[string]bool, len(cfg.AudioExtensions))
	for _, ext := range cfg.AudioExtensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		audio[ext] = true
	}
	return &Engine{prov: p, cfg: cfg, audio: audio, now: time.Now}
}

// Run executes req. The returned error is ErrSelfCopy (nothing written), the
// context error, or a *BatchError listing every failed item. The report is
// valid in all cases.
func (e *Engine) Run(ctx context.Context, req Request, sink ProgressSink, refresh Refresher) (Report, error) {
	started := e.now()
	rep := Report{ID: uuid.NewString()}

	if err := CheckSelfCopy(req); err != nil {
		debug.Log(debug.XFER, "Run: rejected: %v", err)
		return rep, err
	}

	p, err := e.count(ctx, req)
	if err != nil {
		return rep, err
	}
	rep.Total = p.files
	rep.Bytes = p.bytes

	if p.files <= 1 {
		sink = nil
	}
	if sink != nil {
		sink.Start(p.files)
	}

	var failures []ItemError
	var failedDirs []string
	current := 0

	for _, s := range p.steps {
		if ctx.Err() != nil {
			break
		}
		if s.kind != stepFailed && underAny(s.destDir, failedDirs) {
			continue
		}

		switch s.kind {
		case stepFailed:
			failures = append(failures, ItemError{Name: s.rel, Err: s.err})

		case stepMkdir:
			err := e.prov.CreateFolder(ctx, s.destDir, s.name)
			if err != nil && !provider.IsExists(err) {
				failures = append(failures, ItemError{Name: s.rel, Err: err})
				failedDirs = append(failedDirs, filepath.Join(s.destDir, s.name))
			}

		case stepFile:
			current++
			if sink != nil {
				sink.Advance(Progress{Current: current, Total: p.files, CurrentItemName: s.name})
			}
			if err := e.copyOne(ctx, req, s, &rep); err != nil {
				failures = append(failures, ItemError{Name: s.rel, Err: err})
			}
		}
	}

	for _, dir := range destinations(req) {
		if refresh == nil {
			break
		}
		if err := refresh.Refresh(context.WithoutCancel(ctx), dir); err != nil {
			logging.L().Warn("refresh after transfer failed", zap.String("dir", dir), zap.Error(err))
		}
	}
	if sink != nil {
		sink.Finish()
	}

	rep.Failed = len(failures)
	rep.Duration = e.now().Sub(started)
	debug.Log(debug.XFER, "Run: %s", rep.Summary())

	if err := ctx.Err(); err != nil {
		return rep, err
	}
	if len(failures) > 0 {
		for _, f := range failures {
			logging.L().Warn("transfer item failed", zap.String("item", f.Name), zap.Error(f.Err))
		}
		return rep, &BatchError{Failures: failures, Total: p.files}
	}
	return rep, nil
}

func (e *Engine) copyOne(ctx context.Context, req Request, s step, rep *Report) error {
	if !e.needsConversion(req, s.name) {
		if err := e.prov.CopyFile(ctx, s.src, s.destDir, s.name); err != nil {
			return err
		}
		rep.Copied++
		return nil
	}

	outName := convertedName(s.name, req.Conversion.Format)
	err := e.prov.ConvertAndCopyFile(ctx, s.src, s.destDir, outName, req.Conversion)
	if err == nil {
		rep.Converted++
		return nil
	}
	if !e.cfg.FallbackToCopy || ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ErrConversion, err)
	}

	logging.L().Warn("conversion failed, copying original",
		zap.String("file", s.src), zap.Error(err))
	if cerr := e.prov.CopyFile(ctx, s.src, s.destDir, s.name); cerr != nil {
		return fmt.Errorf("%w: %w (fallback copy: %w)", ErrConversion, err, cerr)
	}
	rep.Copied++
	rep.Fallbacks++
	return nil
}

// needsConversion decides per file. Conversion applies only when enabled,
// when the file crosses panes (an external drop counts as crossing), when it
// is audio, and when at least one setting changes the output.
func (e *Engine) needsConversion(req Request, name string) bool {
	c := req.Conversion
	if !c.Enabled {
		return false
	}
	if !req.External() && req.SourcePane == req.DestPane {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !e.audio[ext] {
		return false
	}
	formatChanges := c.Format != "" && normalizeExt(c.Format) != ext
	return formatChanges || c.SampleRate > 0 || c.BitDepth > 0 || c.Mono || c.Normalize
}

func normalizeExt(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if !strings.HasPrefix(format, ".") {
		format = "." + format
	}
	return format
}

// convertedName rewrites name's extension to the forced output format.
func convertedName(name, format string) string {
	if format == "" {
		return name
	}
	return strings.TrimSuffix(name, filepath.Ext(name)) + normalizeExt(format)
}

// CheckSelfCopy rejects a request in which any destination lies within its
// own source, or would overwrite the source itself. It touches no files.
func CheckSelfCopy(req Request) error {
	for _, it := range req.Items {
		src := filepath.Clean(it.SourcePath)
		dest := filepath.Clean(req.targetDir(it))
		if filepath.Join(dest, it.Name) == src {
			return fmt.Errorf("%s: %w", it.Name, ErrSelfCopy)
		}
		if it.Kind == provider.Folder && provider.Within(dest, src) {
			return fmt.Errorf("%s into %s: %w", src, dest, ErrSelfCopy)
		}
	}
	return nil
}

func underAny(dir string, roots []string) bool {
	for _, r := range roots {
		if provider.Within(dir, r) {
			return true
		}
	}
	return false
}

// destinations returns each distinct target directory once, in item order.
func destinations(req Request) []string {
	seen := make(map[string]bool)
	var out []string
	for _, it := range req.Items {
		d := filepath.Clean(req.targetDir(it))
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	if len(out) == 0 && req.DestDir != "" {
		out = append(out, filepath.Clean(req.DestDir))
	}
	return out
}

// IsSelfCopy reports whether err is a self-copy rejection.
func IsSelfCopy(err error) bool { return errors.Is(err, ErrSelfCopy) }
