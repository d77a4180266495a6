package transfer

import (
	"context"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/justyntemme/twinpane/internal/debug"
	"github.com/justyntemme/twinpane/internal/provider"
)

type stepKind int

const (
	stepFile stepKind = iota
	stepMkdir
	stepFailed // a folder that could not be listed
)

// step is one operation of the copy pass. Steps are produced depth-first, so
// a folder's mkdir always precedes its contents.
type step struct {
	kind    stepKind
	src     string
	destDir string
	name    string
	rel     string // display name relative to the item's parent
	size    int64
	err     error
}

// plan is the outcome of the count pass.
type plan struct {
	steps []step
	files int
	bytes int64
}

// count walks every item through the provider and returns the ordered steps.
// Items are walked concurrently; the result keeps item order. Listing errors
// become stepFailed entries rather than aborting the pass.
func (e *Engine) count(ctx context.Context, req Request) (plan, error) {
	perItem := make([][]step, len(req.Items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.CountWorkers)

	for i, it := range req.Items {
		i, it := i, it
		g.Go(func() error {
			var steps []step
			dest := req.targetDir(it)
			if it.Kind == provider.Folder {
				steps = append(steps, step{kind: stepMkdir, src: it.SourcePath, destDir: dest, name: it.Name, rel: it.Name})
				e.walk(gctx, it.SourcePath, filepath.Join(dest, it.Name), it.Name, &steps)
			} else {
				var size int64
				if st, err := e.prov.GetStats(gctx, it.SourcePath); err == nil {
					size = st.Size
				}
				steps = append(steps, step{kind: stepFile, src: it.SourcePath, destDir: dest, name: it.Name, rel: it.Name, size: size})
			}
			perItem[i] = steps
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return plan{}, err
	}

	var p plan
	for _, steps := range perItem {
		for _, s := range steps {
			if s.kind == stepFile {
				p.files++
				p.bytes += s.size
			}
		}
		p.steps = append(p.steps, steps...)
	}
	debug.Log(debug.XFER, "count: %d items -> %d files, %d bytes", len(req.Items), p.files, p.bytes)
	return p, nil
}

func (e *Engine) walk(ctx context.Context, src, dest, rel string, steps *[]step) {
	if ctx.Err() != nil {
		return
	}
	entries, err := e.prov.ReadDirectory(ctx, src)
	if err != nil {
		*steps = append(*steps, step{kind: stepFailed, src: src, rel: rel, err: err})
		return
	}
	for _, en := range entries {
		childRel := filepath.Join(rel, en.Name)
		if en.IsDir() {
			*steps = append(*steps, step{kind: stepMkdir, src: en.Path, destDir: dest, name: en.Name, rel: childRel})
			e.walk(ctx, en.Path, filepath.Join(dest, en.Name), childRel, steps)
			continue
		}
		*steps = append(*steps, step{kind: stepFile, src: en.Path, destDir: dest, name: en.Name, rel: childRel, size: en.Size})
	}
}
