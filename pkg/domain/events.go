package domain

// Channel names one of the four event categories.
type Channel string

const (
	ChannelChange        Channel = "change"
	ChannelFlush         Channel = "flush"
	ChannelElementUpdate Channel = "elementUpdate"
	ChannelElementRemove Channel = "elementRemove"
)

// Channels lists every supported channel, in a stable order.
var Channels = []Channel{ChannelChange, ChannelFlush, ChannelElementUpdate, ChannelElementRemove}

// Valid reports whether c is one of the four supported channels.
func (c Channel) Valid() bool {
	switch c {
	case ChannelChange, ChannelFlush, ChannelElementUpdate, ChannelElementRemove:
		return true
	}
	return false
}

// RemoveEvent is the payload of elementRemove.
// Trashed is true when the removal was requested through a reconcile with a
// dispatch flag, false for a direct single-element removal.
type RemoveEvent struct {
	ElementID    string `json:"elementID,omitempty"`
	ContainerID  string `json:"containerID"`
	ParentNodeID string `json:"parentNodeID"`
	Trashed      bool   `json:"trashed"`
}

// Event is what listeners receive. Exactly one payload field is set, depending on Channel.
type Event struct {
	Channel Channel      `json:"channel"`
	Tree    *Node        `json:"tree,omitempty"`
	Flushed bool         `json:"flushed,omitempty"`
	Element *Element     `json:"element,omitempty"`
	Removal *RemoveEvent `json:"removal,omitempty"`
}
