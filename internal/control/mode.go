package control

import (
	"log"

	"github.com/relabs-tech/avoidance_rover/internal/buttons"
)

// Button indices on the control panel.
const (
	ButtonMotor     = 0
	ButtonDisplay   = 1
	ButtonDirection = 2
	ButtonRestart   = 3
)

// Effect is a side effect the loop owner carries out after a button event.
type Effect int

const (
	EffectNone Effect = iota
	EffectClearDisplay
	EffectRestart
)

func (e Effect) String() string {
	switch e {
	case EffectClearDisplay:
		return "clear-display"
	case EffectRestart:
		return "restart"
	default:
		return "none"
	}
}

// HandleButton applies one button event to the vehicle mode.
func (c *Controller) HandleButton(ev buttons.Event) Effect {
	if ev.Kind == buttons.Long {
		log.Printf("control: button %d long press", ev.Index+1)
		return EffectNone
	}

	switch ev.Index {
	case ButtonMotor:
		c.toggleMotor()
		log.Printf("control: motor %s", onOff(c.mode.MotorEnabled))
	case ButtonDisplay:
		c.mode.DisplayEnabled = !c.mode.DisplayEnabled
		log.Printf("control: display %s", onOff(c.mode.DisplayEnabled))
		if !c.mode.DisplayEnabled {
			return EffectClearDisplay
		}
	case ButtonDirection:
		c.toggleDirection()
		if c.mode.MotorForward {
			log.Println("control: direction forward")
		} else {
			log.Println("control: direction reverse")
		}
	case ButtonRestart:
		log.Println("control: restart requested")
		return EffectRestart
	default:
		log.Printf("control: ignoring short press on unknown button %d", ev.Index)
	}
	return EffectNone
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
