package observability

import (
	"log/slog"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/events"
)

// Audit logs one line per published event.
func Audit(bus *events.Bus, logger *slog.Logger) {
	for _, ch := range domain.Channels {
		_, _ = bus.Subscribe(ch, func(e domain.Event) {
			attrs := []any{"channel", e.Channel}
			switch {
			case e.Removal != nil:
				attrs = append(attrs,
					"element_id", e.Removal.ElementID,
					"container_id", e.Removal.ContainerID,
					"parent_node_id", e.Removal.ParentNodeID,
					"trashed", e.Removal.Trashed,
				)
			case e.Element != nil:
				attrs = append(attrs, "element_id", e.Element.ID, "container_id", e.Element.ContainerID)
			case e.Tree != nil:
				attrs = append(attrs, "nodes", e.Tree.Count())
			}
			if e.Channel == domain.ChannelFlush {
				attrs = append(attrs, "flushed", e.Flushed)
			}
			logger.Info("tree event", attrs...)
		})
	}
}
