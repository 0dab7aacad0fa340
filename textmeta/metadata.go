// Package textmeta accumulates per-widget text metadata and flattens
// translation trees into annotated message records.
//
// Metadata marks which strings a host page may hide, which strings carry
// markup, and attaches free-form details to individual strings, all keyed
// by dot-joined message path. Metadata cascades: widgets are folded in
// scan order and every widget observes everything declared by the widgets
// before it.
package textmeta

// Metadata is the text metadata of one widget, or the accumulation of
// several widgets.
type Metadata struct {
	// Hideable lists message paths a host page may hide. No duplicates.
	Hideable []string
	// HTML lists message paths whose text contains markup. No duplicates.
	HTML []string
	// Details maps a message path to an arbitrary annotation.
	Details map[string]any
}

// Union returns a new Metadata holding m followed by the entries of other
// that m lacks. A detail declared by other replaces m's detail for the
// same path. Neither receiver nor argument is modified.
func (m Metadata) Union(other Metadata) Metadata {
	out := Metadata{
		Hideable: unionStrings(m.Hideable, other.Hideable),
		HTML:     unionStrings(m.HTML, other.HTML),
		Details:  make(map[string]any, len(m.Details)+len(other.Details)),
	}
	for k, v := range m.Details {
		out.Details[k] = cloneDetail(v)
	}
	for k, v := range other.Details {
		out.Details[k] = cloneDetail(v)
	}
	return out
}

// cloneDetail deep-copies the JSON container types a detail may hold.
// Other values are returned as is.
func cloneDetail(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = cloneDetail(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneDetail(e)
		}
		return out
	}
	return v
}

// Clone returns a copy that shares no slices or maps with m, including
// maps and slices nested in detail values.
func (m Metadata) Clone() Metadata {
	return Metadata{}.Union(m)
}

// IsEmpty reports whether m declares nothing.
func (m Metadata) IsEmpty() bool {
	return len(m.Hideable) == 0 && len(m.HTML) == 0 && len(m.Details) == 0
}

func unionStrings(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]bool, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			if seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func toSet(list []string) map[string]bool {
	set := make(map[string]bool, len(list))
	for _, s := range list {
		set[s] = true
	}
	return set
}
