package entity

import "fmt"

// Port identifies a display port slot of the GVT device model. Slots
// A through D carry digital signals; slot E is the analog VGA output.
// Slot A is the internal eDP panel and is never hotpluggable.
type Port int

const (
	// PortA is the eDP internal panel slot.
	PortA Port = iota
	// PortB is the first external digital slot.
	PortB
	// PortC is the second external digital slot.
	PortC
	// PortD is the third external digital slot.
	PortD
	// PortE is the analog VGA slot.
	PortE
	// PortIllegal is the sentinel for unknown or out-of-range ports.
	PortIllegal
)

// i915 connector names as exposed under /sys/class/drm. A slot accepts
// either a DisplayPort or an HDMI physical signal, so two connector
// names map to the same slot.
var i915Names = map[string]Port{
	"card0-eDP-1":    PortA,
	"card0-DP-1":     PortB,
	"card0-HDMI-A-1": PortB,
	"card0-DP-2":     PortC,
	"card0-HDMI-A-2": PortC,
	"card0-DP-3":     PortD,
	"card0-HDMI-A-3": PortD,
	"card0-VGA-1":    PortE,
}

func (p Port) String() string {
	switch p {
	case PortA:
		return "eDP"
	case PortB:
		return "DP-B"
	case PortC:
		return "DP-C"
	case PortD:
		return "DP-D"
	case PortE:
		return "VGA"
	default:
		return "illegal"
	}
}

// IsValid returns true only for the five defined slots.
func (p Port) IsValid() bool {
	switch p {
	case PortA, PortB, PortC, PortD, PortE:
		return true
	default:
		return false
	}
}

// ControlName returns the token naming this slot in the vgt control
// interface ("PORT_A" ... "PORT_E").
func (p Port) ControlName() (string, error) {
	switch p {
	case PortA:
		return "PORT_A", nil
	case PortB:
		return "PORT_B", nil
	case PortC:
		return "PORT_C", nil
	case PortD:
		return "PORT_D", nil
	case PortE:
		return "PORT_E", nil
	default:
		return "", fmt.Errorf("no control name for port %d", int(p))
	}
}

// IsDigital returns true for every slot except the analog VGA one.
func (p Port) IsDigital() bool {
	return p.IsValid() && p != PortE
}

// IsHotpluggable returns true for every valid slot except eDP, which
// is a fixed internal panel.
func (p Port) IsHotpluggable() bool {
	return p.IsValid() && p != PortA
}

// I915Name returns the canonical i915 connector name for the slot, or
// "INVALID" for an unmapped value. The mapping is lossy: a slot that
// accepts both DP and HDMI signals translates back to its HDMI name.
func (p Port) I915Name() string {
	switch p {
	case PortA:
		return "card0-eDP-1"
	case PortB:
		return "card0-HDMI-A-1"
	case PortC:
		return "card0-HDMI-A-2"
	case PortD:
		return "card0-HDMI-A-3"
	case PortE:
		return "card0-VGA-1"
	default:
		return "INVALID"
	}
}

// PortFromI915Name maps an i915 connector name to its slot. Unknown
// names map to PortIllegal.
func PortFromI915Name(name string) Port {
	if p, ok := i915Names[name]; ok {
		return p
	}
	return PortIllegal
}

// ParsePort accepts either a control token ("PORT_B") or a short slot
// name ("B", "eDP", "VGA"). Used by callers taking ports on a command
// line.
func ParsePort(s string) (Port, error) {
	switch s {
	case "PORT_A", "A", "eDP":
		return PortA, nil
	case "PORT_B", "B":
		return PortB, nil
	case "PORT_C", "C":
		return PortC, nil
	case "PORT_D", "D":
		return PortD, nil
	case "PORT_E", "E", "VGA":
		return PortE, nil
	default:
		return PortIllegal, fmt.Errorf("unknown port %q", s)
	}
}
