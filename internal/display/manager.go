// Package display orchestrates virtual display attachment for GVT
// guests: instance creation, foreground selection and monitor
// hotplug. All state lives in the vgt control interface; every call
// re-derives it, nothing is cached.
package display

import (
	"fmt"

	"github.com/openxt/govgt/internal/edid"
	"github.com/openxt/govgt/internal/entity"
	"github.com/openxt/govgt/internal/report"
	"github.com/openxt/govgt/internal/sysfs"
)

const (
	attrPortOverride = "port_override"
	attrEDID         = "edid"
	attrConnection   = "connection"
	attrPresence     = "presence"

	fileForegroundVM   = "foreground_vm"
	fileCreateInstance = "create_vgt_instance"

	tokenConnect    = "connect"
	tokenDisconnect = "disconnect"
	tokenConnected  = "connected"
	tokenPresent    = "present"

	// trailing field of a creation record; reserved by the driver.
	createRecordFlag = -1
)

// Manager drives plug, unplug and foreground-vm transitions through
// the control-path gateway.
type Manager struct {
	gw       *sysfs.Gateway
	reporter report.Reporter
}

// Option configures a Manager.
type Option func(*Manager)

// WithReporter installs a reporting sink other than the zap-backed
// default.
func WithReporter(r report.Reporter) Option {
	return func(m *Manager) {
		m.reporter = r
	}
}

// New returns a manager over the given gateway.
func New(gw *sysfs.Gateway, opts ...Option) *Manager {
	m := &Manager{
		gw:       gw,
		reporter: report.Default(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// SetReporter swaps the reporting sink and returns the previous one.
func (m *Manager) SetReporter(r report.Reporter) report.Reporter {
	prev := m.reporter
	if r == nil {
		r = report.Default()
	}
	m.reporter = r
	return prev
}

// IsAvailable reports whether the vgt control interface is present at
// all, i.e. the driver is loaded.
func (m *Manager) IsAvailable() bool {
	return m.gw.DirExists(m.gw.Root())
}

// IsEnabled reports whether a virtual GT instance exists for the
// guest. Guest 0 is the privileged host domain and is never enabled as
// a hotplug target.
func (m *Manager) IsEnabled(domid uint) bool {
	if domid == 0 {
		return false
	}
	return m.gw.DirExists(m.gw.InstancePath(domid))
}

// CreateInstance writes a creation record for the guest. The driver
// allocates asynchronously; whether the instance actually appeared is
// observable afterwards through IsEnabled.
func (m *Manager) CreateInstance(domid uint, cfg entity.InstanceConfig) error {
	record := fmt.Sprintf("%d,%d,%d,%d,%d\n",
		domid, cfg.ApertureMiB, cfg.GMMiB, cfg.FenceCount, createRecordFlag)

	if err := m.gw.WriteText(m.gw.ControlPath(fileCreateInstance), record); err != nil {
		m.reporter.Errorf("create instance for vm%d: %v", domid, err)
		return m.wrapWrite(fileCreateInstance, err)
	}

	return nil
}

// DestroyInstance writes the negated domid as a deletion record.
func (m *Manager) DestroyInstance(domid uint) error {
	record := fmt.Sprintf("-%d\n", domid)

	if err := m.gw.WriteText(m.gw.ControlPath(fileCreateInstance), record); err != nil {
		m.reporter.Errorf("destroy instance for vm%d: %v", domid, err)
		return m.wrapWrite(fileCreateInstance, err)
	}

	return nil
}

// SetForegroundVM selects which guest owns the physical displays. The
// write is verified by re-reading: the control interface applies
// foreground switches asynchronously and a NotAppliedError means the
// caller may retry.
func (m *Manager) SetForegroundVM(domid uint) error {
	if domid != 0 && !m.gw.DirExists(m.gw.InstancePath(domid)) {
		return InvalidArgumentError{Reason: fmt.Sprintf("vm%d has no vgt instance", domid)}
	}

	fg := m.gw.ControlPath(fileForegroundVM)

	// Already the foreground guest, nothing to write.
	if cur, err := m.gw.ReadInt(fg); err == nil && cur == int(domid) {
		return nil
	}

	if err := m.gw.WriteText(fg, fmt.Sprintf("%d\n", domid)); err != nil {
		m.reporter.Errorf("set foreground vm%d: %v", domid, err)
		return m.wrapWrite(fileForegroundVM, err)
	}

	got, err := m.gw.ReadInt(fg)
	if err != nil {
		return fmt.Errorf("verify foreground vm: %w", err)
	}
	if got != int(domid) {
		return NotAppliedError{Attribute: fileForegroundVM, Want: int(domid), Got: got}
	}

	return nil
}

// ForegroundVM reads the current foreground guest id.
func (m *Manager) ForegroundVM() (uint, error) {
	v, err := m.gw.ReadInt(m.gw.ControlPath(fileForegroundVM))
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("foreground vm: negative domid %d", v)
	}
	return uint(v), nil
}

// PlugDisplay attaches a monitor descriptor to a guest's virtual port
// and maps it onto a physical port. The descriptor is patched in place
// for the port's signal type and truncated to the base block before
// writing; the returned count is how many descriptor bytes actually
// reached the control interface.
//
// The steps are not transactional. A failure partway leaves the port
// state unspecified; callers should re-query IsPortPlugged before
// retrying.
func (m *Manager) PlugDisplay(domid uint, vport entity.Port, edidBytes []byte, pport entity.Port) (int, error) {
	if !m.IsEnabled(domid) {
		return 0, InvalidArgumentError{Reason: fmt.Sprintf("vm%d is not an enabled guest", domid)}
	}
	if !vport.IsValid() {
		return 0, InvalidArgumentError{Reason: fmt.Sprintf("invalid virtual port %d", int(vport))}
	}
	if !pport.IsValid() {
		return 0, InvalidArgumentError{Reason: fmt.Sprintf("invalid physical port %d", int(pport))}
	}
	if len(edidBytes) < edid.BaseBlockSize {
		return 0, InvalidArgumentError{Reason: fmt.Sprintf("edid is %d bytes, need at least %d", len(edidBytes), edid.BaseBlockSize)}
	}

	// Re-plugging a connected port is allowed; detach it first.
	if m.IsPortPlugged(domid, vport) {
		if err := m.UnplugDisplay(domid, vport); err != nil {
			return 0, err
		}
	}

	vname, err := vport.ControlName()
	if err != nil {
		return 0, InvalidArgumentError{Reason: err.Error()}
	}
	pname, err := pport.ControlName()
	if err != nil {
		return 0, InvalidArgumentError{Reason: err.Error()}
	}

	// Tell the virtual port which physical port's signal to imitate.
	overridePath := m.gw.VMAttributePath(domid, vname, attrPortOverride)
	if err := m.gw.WriteText(overridePath, pname+"\n"); err != nil {
		m.reporter.Errorf("vm%d %s: port override: %v", domid, vname, err)
		return 0, m.wrapWrite(attrPortOverride, err)
	}

	if err := edid.Patch(edidBytes, !vport.IsDigital()); err != nil {
		return 0, err
	}

	payload := edidBytes
	if len(payload) > edid.BaseBlockSize {
		// The control interface takes the base block only.
		m.reporter.Warnf("vm%d %s: truncating %d-byte edid to %d",
			domid, vname, len(payload), edid.BaseBlockSize)
		payload = payload[:edid.BaseBlockSize]
	}

	n, err := m.gw.WriteBytes(m.gw.VMAttributePath(domid, vname, attrEDID), payload)
	if err != nil {
		m.reporter.Errorf("vm%d %s: edid: %v", domid, vname, err)
		return n, m.wrapWrite(attrEDID, err)
	}

	if err := m.gw.WriteText(m.gw.VMAttributePath(domid, vname, attrConnection), tokenConnect+"\n"); err != nil {
		m.reporter.Errorf("vm%d %s: connect: %v", domid, vname, err)
		return n, m.wrapWrite(attrConnection, err)
	}

	return n, nil
}

// UnplugDisplay detaches whatever is plugged into the guest's virtual
// port.
func (m *Manager) UnplugDisplay(domid uint, vport entity.Port) error {
	if !m.IsEnabled(domid) {
		return InvalidArgumentError{Reason: fmt.Sprintf("vm%d is not an enabled guest", domid)}
	}
	if !vport.IsValid() {
		return InvalidArgumentError{Reason: fmt.Sprintf("invalid virtual port %d", int(vport))}
	}

	vname, err := vport.ControlName()
	if err != nil {
		return InvalidArgumentError{Reason: err.Error()}
	}

	if err := m.gw.WriteText(m.gw.VMAttributePath(domid, vname, attrConnection), tokenDisconnect+"\n"); err != nil {
		m.reporter.Errorf("vm%d %s: disconnect: %v", domid, vname, err)
		return m.wrapWrite(attrConnection, err)
	}

	return nil
}

// IsPortPlugged reports whether the guest's virtual port currently has
// a display attached. Invalid guests and ports read as unplugged.
func (m *Manager) IsPortPlugged(domid uint, vport entity.Port) bool {
	if !m.IsEnabled(domid) || !vport.IsValid() {
		return false
	}

	vname, err := vport.ControlName()
	if err != nil {
		return false
	}

	tok, err := m.gw.ReadToken(m.gw.VMAttributePath(domid, vname, attrConnection))
	return err == nil && tok == tokenConnected
}

// IsPortPresent reports whether a physical display is attached to the
// port, independent of any guest.
func (m *Manager) IsPortPresent(pport entity.Port) bool {
	name, err := pport.ControlName()
	if err != nil {
		return false
	}

	tok, err := m.gw.ReadToken(m.gw.ControlPath(name, attrPresence))
	return err == nil && tok == tokenPresent
}

// IsPortHotpluggable reports whether the guest's virtual port accepts
// hotplug. The policy itself is per-port; the guest gate only keeps
// the API symmetric with the other predicates.
func (m *Manager) IsPortHotpluggable(domid uint, vport entity.Port) bool {
	return m.IsEnabled(domid) && vport.IsHotpluggable()
}

// wrapWrite classifies a gateway write failure: an absent control file
// means the interface (or the guest's slice of it) is unavailable,
// anything else is a plain I/O failure.
func (m *Manager) wrapWrite(attribute string, err error) error {
	if sysfs.IsNotExist(err) {
		return UnavailableError{Path: attribute, Err: err}
	}
	return fmt.Errorf("%s: %w", attribute, err)
}
