package mode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSwitchStartsUndecidedInDemo(t *testing.T) {
	s := NewSwitch()
	assert.Equal(t, Demo, s.Mode())
	assert.False(t, s.Decided())
}

func TestDecideOnlyOnce(t *testing.T) {
	s := NewSwitch()
	assert.Equal(t, Live, s.Decide(true))
	assert.Equal(t, Live, s.Decide(false), "second decision must be ignored")
	assert.True(t, s.Decided())

	d := NewSwitch()
	assert.Equal(t, Demo, d.Decide(false))
	assert.Equal(t, Demo, d.Decide(true), "DEMO never becomes LIVE")
}

func TestDegradeIsOneWay(t *testing.T) {
	s := Fixed(Live)
	assert.True(t, s.Degrade())
	assert.False(t, s.Degrade())
	assert.True(t, s.IsDemo())
	assert.Equal(t, Demo, s.Decide(true))
}

func TestDegradeBeforeDecideSticks(t *testing.T) {
	s := NewSwitch()
	assert.False(t, s.Degrade())
	assert.Equal(t, Demo, s.Decide(true))
}
