package textmeta

import (
	"github.com/minios-linux/ars/msgtree"
)

// Content types reported for flattened messages.
const (
	ContentTypeHTML  = "text/html"
	ContentTypePlain = "text/plain"
)

// Message is one string leaf of a translation tree, annotated with
// metadata.
type Message struct {
	Path        string `json:"path"`
	Hideable    bool   `json:"hideable"`
	ContentType string `json:"contentType"`
	Details     any    `json:"details"`
}

// Flatten lists the string leaves of tree in key order. Values that are
// neither strings nor trees are dropped.
func Flatten(tree *msgtree.Tree, meta Metadata) []Message {
	hideable := toSet(meta.Hideable)
	html := toSet(meta.HTML)

	leaves := tree.Leaves()
	messages := make([]Message, 0, len(leaves))
	for _, leaf := range leaves {
		msg := Message{
			Path:        leaf.Path,
			Hideable:    hideable[leaf.Path],
			ContentType: ContentTypePlain,
			Details:     meta.Details[leaf.Path],
		}
		if html[leaf.Path] {
			msg.ContentType = ContentTypeHTML
		}
		messages = append(messages, msg)
	}
	return messages
}
