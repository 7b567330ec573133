package composer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChannelMapper(t *testing.T) {
	t.Parallel()

	m := NewChannelMapper(8)
	assert.Equal(t, 0, m.Layer(0))
	assert.Equal(t, 7, m.Layer(7))
	assert.Equal(t, 0, m.Layer(8), "channels beyond the bound fold by modulo")
	assert.Equal(t, 7, m.Layer(39))
}

func TestNewChannelMapper_Default(t *testing.T) {
	t.Parallel()

	m := NewChannelMapper(0)
	assert.Equal(t, DefaultMaxLayers, m.MaxLayers)
	m = NewChannelMapper(-3)
	assert.Equal(t, DefaultMaxLayers, m.MaxLayers)
}
