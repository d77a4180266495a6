package session

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/justyntemme/twinpane/internal/logging"
	"github.com/justyntemme/twinpane/internal/transfer"
)

// DragData encodes the current selection for an in-app drag. Search
// results cannot be dragged.
func (s *Session) DragData() ([]byte, error) {
	if s.overlay.Active() {
		return nil, ErrSearching
	}
	nodes := s.Selected()
	if len(nodes) == 0 {
		return nil, nil
	}
	items := make([]transfer.Item, len(nodes))
	for i, n := range nodes {
		items[i] = transfer.Item{SourcePath: n.Path, Name: n.Name, Kind: n.Kind}
	}
	return transfer.EncodeDragData(s.id, items)
}

// Drop transfers a dragged payload into destDir of this pane. mime selects
// the decoder: the in-app item list or an external URI list. Paths of an
// external drop that cannot be stated are reported alongside the batch
// result.
func (s *Session) Drop(ctx context.Context, mime string, data []byte, destDir string, sink transfer.ProgressSink) (transfer.Report, error) {
	payload, err := transfer.DecodeDragData(mime, data)
	if err != nil {
		return transfer.Report{}, err
	}

	items := payload.Items
	var statErr error
	if payload.External() {
		items, statErr = transfer.ItemsFromPaths(ctx, s.prov, payload.Paths, "")
	}
	if len(items) == 0 {
		return transfer.Report{}, statErr
	}

	rep, err := s.Transfer(ctx, transfer.Request{
		Items:      items,
		DestDir:    destDir,
		SourcePane: payload.Pane,
		DestPane:   s.id,
		Conversion: s.conversion,
	}, sink)
	return rep, multierr.Append(statErr, err)
}

// Transfer runs req into this pane and refreshes the directories it wrote to.
func (s *Session) Transfer(ctx context.Context, req transfer.Request, sink transfer.ProgressSink) (transfer.Report, error) {
	if req.DestDir == "" {
		s.mu.Lock()
		req.DestDir = s.currentPath
		s.mu.Unlock()
	}
	if req.DestPane == "" {
		req.DestPane = s.id
	}

	rep, err := s.engine.Run(ctx, req, sink, s)
	if err != nil {
		logging.L().Warn("transfer finished with errors",
			zap.String("pane", s.id), zap.String("job", rep.ID),
			zap.String("dest", req.DestDir), zap.Error(err))
		return rep, fmt.Errorf("transfer to %s: %w", req.DestDir, err)
	}
	logging.L().Info("transfer finished",
		zap.String("pane", s.id), zap.String("job", rep.ID), zap.String("summary", rep.Summary()))
	return rep, nil
}
