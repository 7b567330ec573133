package composer

// ChannelMapper assigns each module channel to a visual layer. The default
// policy is identity; channels beyond MaxLayers fold onto existing layers by
// modulo, which bounds resource usage and is deterministic for a given
// (channel count, max layers) pair.
type ChannelMapper struct {
	MaxLayers int
}

// DefaultMaxLayers bounds the number of distinct visual layers per job.
const DefaultMaxLayers = 8

// NewChannelMapper returns a mapper with the given layer bound; values < 1
// fall back to DefaultMaxLayers.
func NewChannelMapper(maxLayers int) ChannelMapper {
	if maxLayers < 1 {
		maxLayers = DefaultMaxLayers
	}
	return ChannelMapper{MaxLayers: maxLayers}
}

// Layer maps a channel index to its visual layer index.
func (m ChannelMapper) Layer(channel int) int {
	return channel % m.MaxLayers
}
