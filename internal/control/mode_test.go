package control

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relabs-tech/avoidance_rover/internal/buttons"
)

func TestMotorAndDirectionButtons(t *testing.T) {
	m := &mockMotor{}
	c := NewController(DefaultTuning(), m)

	assert.Equal(t, EffectNone, c.HandleButton(short(ButtonMotor)))
	assert.Equal(t, cmd{200, 200}, m.last())

	assert.Equal(t, EffectNone, c.HandleButton(short(ButtonDirection)))
	assert.False(t, c.Mode().MotorForward)
	assert.Equal(t, cmd{-200, -200}, m.last())

	c.HandleButton(short(ButtonMotor))
	assert.False(t, c.Mode().MotorEnabled)
	assert.Equal(t, cmd{0, 0}, m.last())

	// direction still toggles while disabled, motors stay braked
	c.HandleButton(short(ButtonDirection))
	assert.True(t, c.Mode().MotorForward)
	assert.Equal(t, cmd{0, 0}, m.last())
}

func TestDisplayButton(t *testing.T) {
	m := &mockMotor{}
	c := NewController(DefaultTuning(), m)

	assert.Equal(t, EffectNone, c.HandleButton(short(ButtonDisplay)))
	assert.True(t, c.Mode().DisplayEnabled)
	assert.Equal(t, EffectClearDisplay, c.HandleButton(short(ButtonDisplay)))
	assert.False(t, c.Mode().DisplayEnabled)
	assert.Empty(t, m.calls)
}

func TestRestartButton(t *testing.T) {
	m := &mockMotor{}
	c := NewController(DefaultTuning(), m)
	assert.Equal(t, EffectRestart, c.HandleButton(short(ButtonRestart)))
	assert.Equal(t, Mode{MotorForward: true}, c.Mode())
	assert.Empty(t, m.calls)
}

func TestLongPressHasNoEffect(t *testing.T) {
	m := &mockMotor{}
	c := NewController(DefaultTuning(), m)
	for i := 0; i < 4; i++ {
		assert.Equal(t, EffectNone, c.HandleButton(buttons.Event{Index: i, Kind: buttons.Long}))
	}
	assert.Equal(t, Mode{MotorForward: true}, c.Mode())
	assert.Empty(t, m.calls)
}

func TestDirectionToggleDuringManeuverWaitsForIdle(t *testing.T) {
	c, m := enabled(t)
	c.Step(at(0), fresh(5), 0)
	m.reset()

	c.HandleButton(short(ButtonDirection))
	assert.Empty(t, m.calls)
	assert.Equal(t, Reversing, c.State())

	c.Step(at(5), stale, 0)
	assert.Equal(t, cmd{-200, -200}, m.last(), "maneuver keeps its own command")
}

func TestUnknownButton(t *testing.T) {
	m := &mockMotor{}
	c := NewController(DefaultTuning(), m)
	assert.Equal(t, EffectNone, c.HandleButton(short(9)))
	assert.Empty(t, m.calls)
}

func TestEffectString(t *testing.T) {
	assert.Equal(t, "none", EffectNone.String())
	assert.Equal(t, "clear-display", EffectClearDisplay.String())
	assert.Equal(t, "restart", EffectRestart.String())
}
