package catalog

// Selection is an immutable snapshot of the channels chosen for the live block.
// Build it with NewSelection; ids that are not in the fetched channel set are
// ignored and counted in Missed.
type Selection struct {
	channels []Channel
	missed   int
}

// NewSelection resolves ids against available in the order given. Duplicate ids are kept once.
func NewSelection(available []Channel, ids []int64) Selection {
	byID := make(map[int64]Channel, len(available))
	for _, ch := range available {
		if _, ok := byID[ch.StreamID]; !ok {
			byID[ch.StreamID] = ch
		}
	}
	seen := make(map[int64]bool, len(ids))
	sel := Selection{channels: make([]Channel, 0, len(ids))}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		ch, ok := byID[id]
		if !ok {
			sel.missed++
			continue
		}
		sel.channels = append(sel.channels, ch)
	}
	return sel
}

// Channels returns a copy of the selected channels.
func (s Selection) Channels() []Channel {
	out := make([]Channel, len(s.channels))
	copy(out, s.channels)
	return out
}

// Len is the number of resolved channels.
func (s Selection) Len() int { return len(s.channels) }

// Missed is the number of requested ids that matched nothing.
func (s Selection) Missed() int { return s.missed }

// IDsInCategories returns the stream ids of channels whose resolved category is one of names.
func IDsInCategories(available []Channel, names ...string) []int64 {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var ids []int64
	for _, ch := range available {
		if want[ch.Category] {
			ids = append(ids, ch.StreamID)
		}
	}
	return ids
}
