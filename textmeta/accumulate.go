package textmeta

import (
	"errors"

	"go.uber.org/zap"

	"github.com/minios-linux/ars/logger"
)

// Snapshot is the effective metadata attributed to one widget.
type Snapshot struct {
	Widget   string
	Metadata Metadata
}

// Accumulate folds the widgets' own metadata left to right, starting from
// empty metadata. The snapshot of widget i is the union of the metadata
// declared by widgets 0..i. A widget without a descriptor, or whose
// descriptor cannot be read, contributes nothing and receives the previous
// widget's accumulation unchanged.
//
// The fold is order dependent and must run sequentially.
func Accumulate(log *zap.Logger, widgets []string, resolver Resolver) []Snapshot {
	log = logger.OrNop(log)

	acc := Metadata{}
	snapshots := make([]Snapshot, 0, len(widgets))
	for _, widget := range widgets {
		own, err := resolver.Resolve(widget)
		switch {
		case err == nil:
			acc = acc.Union(own)
		case errors.Is(err, ErrNoDescriptor):
			log.Debug("widget declares no text metadata", zap.String("widget", widget))
		default:
			log.Warn("ignoring unreadable text metadata", zap.String("widget", widget), zap.Error(err))
		}
		snapshots = append(snapshots, Snapshot{Widget: widget, Metadata: acc.Clone()})
	}
	return snapshots
}

// Index maps each widget to its snapshot metadata.
func Index(snapshots []Snapshot) map[string]Metadata {
	out := make(map[string]Metadata, len(snapshots))
	for _, s := range snapshots {
		out[s.Widget] = s.Metadata
	}
	return out
}
