package display_test

import (
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/afero"

	"github.com/openxt/govgt/internal/display"
	"github.com/openxt/govgt/internal/entity"
	"github.com/openxt/govgt/internal/sysfs"
)

var _ = Describe("display manager", func() {
	var (
		mem afero.Fs
		rec *recordingFs
		m   *display.Manager
	)

	BeforeEach(func() {
		mem = afero.NewMemMapFs()
		Expect(newControlTree(mem, 3, 5)).To(Succeed())

		rec = &recordingFs{Fs: mem}
		m = display.New(sysfs.New(rec, testRoot))
	})

	readFile := func(path string) string {
		data, err := afero.ReadFile(mem, path)
		Expect(err).ToNot(HaveOccurred())
		return string(data)
	}

	Describe("availability", func() {
		It("sees the control interface", func() {
			Expect(m.IsAvailable()).To(BeTrue())
		})

		It("reports the driver missing on an empty tree", func() {
			empty := display.New(sysfs.New(afero.NewMemMapFs(), testRoot))
			Expect(empty.IsAvailable()).To(BeFalse())
		})

		It("treats only instantiated guests as enabled", func() {
			Expect(m.IsEnabled(5)).To(BeTrue())
			Expect(m.IsEnabled(7)).To(BeFalse())
		})

		It("never enables the host domain", func() {
			Expect(m.IsEnabled(0)).To(BeFalse())
		})
	})

	Describe("instance lifecycle", func() {
		It("writes a creation record", func() {
			cfg := entity.InstanceConfig{ApertureMiB: 64, GMMiB: 512, FenceCount: 4}
			Expect(m.CreateInstance(6, cfg)).To(Succeed())

			Expect(readFile(testRoot + "/control/create_vgt_instance")).To(Equal("6,64,512,4,-1\n"))
		})

		It("does not verify that the instance appeared", func() {
			// The driver allocates asynchronously; creation success
			// only means the record was written.
			Expect(m.CreateInstance(6, entity.DefaultInstanceConfig())).To(Succeed())
			Expect(m.IsEnabled(6)).To(BeFalse())
		})

		It("writes the negated domid to destroy", func() {
			Expect(m.DestroyInstance(5)).To(Succeed())

			Expect(readFile(testRoot + "/control/create_vgt_instance")).To(Equal("-5\n"))
		})

		It("reports the interface unavailable when the control file is absent", func() {
			bare := afero.NewMemMapFs()
			gone := display.New(sysfs.New(bare, testRoot))

			err := gone.CreateInstance(6, entity.DefaultInstanceConfig())
			var unavailable display.UnavailableError
			Expect(errors.As(err, &unavailable)).To(BeTrue())
		})
	})

	Describe("foreground vm", func() {
		fgPath := testRoot + "/control/foreground_vm"

		It("switches the foreground guest", func() {
			Expect(m.SetForegroundVM(5)).To(Succeed())
			Expect(readFile(fgPath)).To(Equal("5\n"))
		})

		It("short-circuits when the guest is already foreground", func() {
			Expect(afero.WriteFile(mem, fgPath, []byte("3\n"), 0644)).To(Succeed())

			Expect(m.SetForegroundVM(3)).To(Succeed())
			Expect(rec.writes).To(BeEmpty())
		})

		It("allows switching back to the host domain", func() {
			Expect(afero.WriteFile(mem, fgPath, []byte("5\n"), 0644)).To(Succeed())

			Expect(m.SetForegroundVM(0)).To(Succeed())
			Expect(readFile(fgPath)).To(Equal("0\n"))
		})

		It("refuses guests with no instance", func() {
			err := m.SetForegroundVM(9)
			var inv display.InvalidArgumentError
			Expect(errors.As(err, &inv)).To(BeTrue())
			Expect(rec.writes).To(BeEmpty())
		})

		It("surfaces an unapplied switch", func() {
			stubborn := &stubbornFs{Fs: mem, path: fgPath}
			slow := display.New(sysfs.New(stubborn, testRoot))

			err := slow.SetForegroundVM(5)
			var notApplied display.NotAppliedError
			Expect(errors.As(err, &notApplied)).To(BeTrue())
			Expect(notApplied.Want).To(Equal(5))
			Expect(notApplied.Got).To(Equal(0))
		})

		It("reads the current foreground guest", func() {
			Expect(afero.WriteFile(mem, fgPath, []byte("3\n"), 0644)).To(Succeed())

			domid, err := m.ForegroundVM()
			Expect(err).ToNot(HaveOccurred())
			Expect(domid).To(Equal(uint(3)))
		})
	})

	Describe("plugging a display", func() {
		portDir := func(domid uint, name string) string {
			return fmt.Sprintf("%s/vm%d/%s", testRoot, domid, name)
		}

		It("writes override, patched edid and connect", func() {
			edidBytes := newTestEDID(20000)

			n, err := m.PlugDisplay(5, entity.PortB, edidBytes, entity.PortC)
			Expect(err).ToNot(HaveOccurred())
			Expect(n).To(Equal(128))

			Expect(readFile(portDir(5, "PORT_B") + "/port_override")).To(Equal("PORT_C\n"))
			Expect(readFile(portDir(5, "PORT_B") + "/connection")).To(Equal("connect\n"))

			written := []byte(readFile(portDir(5, "PORT_B") + "/edid"))
			Expect(written).To(HaveLen(128))
			clock := uint16(written[54]) | uint16(written[55])<<8
			Expect(clock).To(Equal(uint16(16000)))
			Expect(blockSum(written)).To(BeZero())
		})

		It("refuses the host domain without touching the tree", func() {
			_, err := m.PlugDisplay(0, entity.PortB, newTestEDID(1000), entity.PortC)

			var inv display.InvalidArgumentError
			Expect(errors.As(err, &inv)).To(BeTrue())
			Expect(rec.writes).To(BeEmpty())
		})

		It("refuses invalid ports without touching the tree", func() {
			_, err := m.PlugDisplay(5, entity.PortIllegal, newTestEDID(1000), entity.PortC)
			Expect(err).To(HaveOccurred())

			_, err = m.PlugDisplay(5, entity.PortB, newTestEDID(1000), entity.Port(42))
			Expect(err).To(HaveOccurred())

			Expect(rec.writes).To(BeEmpty())
		})

		It("refuses a descriptor shorter than the base block", func() {
			_, err := m.PlugDisplay(5, entity.PortB, make([]byte, 64), entity.PortC)

			var inv display.InvalidArgumentError
			Expect(errors.As(err, &inv)).To(BeTrue())
			Expect(rec.writes).To(BeEmpty())
		})

		It("unplugs a connected port before re-plugging", func() {
			connection := portDir(5, "PORT_B") + "/connection"
			Expect(afero.WriteFile(mem, connection, []byte("connected\n"), 0644)).To(Succeed())

			_, err := m.PlugDisplay(5, entity.PortB, newTestEDID(1000), entity.PortC)
			Expect(err).ToNot(HaveOccurred())

			// disconnect first, then the connect at the end
			Expect(rec.writes).To(Equal([]string{
				connection,
				portDir(5, "PORT_B") + "/port_override",
				portDir(5, "PORT_B") + "/edid",
				connection,
			}))
			Expect(readFile(connection)).To(Equal("connect\n"))
		})

		It("truncates the descriptor to the base block and says so", func() {
			edidBytes := append(newTestEDID(1000), make([]byte, 128)...)

			n, err := m.PlugDisplay(5, entity.PortB, edidBytes, entity.PortC)
			Expect(err).ToNot(HaveOccurred())
			Expect(n).To(Equal(128))
			Expect(readFile(portDir(5, "PORT_B") + "/edid")).To(HaveLen(128))
		})

		It("patches for an analog signal on the VGA port", func() {
			_, err := m.PlugDisplay(5, entity.PortE, newTestEDID(1000), entity.PortE)
			Expect(err).ToNot(HaveOccurred())

			written := []byte(readFile(portDir(5, "PORT_E") + "/edid"))
			Expect(written[20] & 0x80).To(BeZero())
			Expect(blockSum(written)).To(BeZero())
		})
	})

	Describe("reporting", func() {
		It("warns about truncation through the injected sink", func() {
			sink := &captureReporter{}
			noisy := display.New(sysfs.New(mem, testRoot), display.WithReporter(sink))

			_, err := noisy.PlugDisplay(5, entity.PortB, append(newTestEDID(1000), make([]byte, 128)...), entity.PortC)
			Expect(err).ToNot(HaveOccurred())
			Expect(sink.warnMsgs).To(HaveLen(1))
			Expect(sink.warnMsgs[0]).To(ContainSubstring("truncating"))
		})

		It("reports failures without changing the outcome", func() {
			sink := &captureReporter{}
			bare := display.New(sysfs.New(afero.NewMemMapFs(), testRoot), display.WithReporter(sink))

			err := bare.DestroyInstance(5)
			Expect(err).To(HaveOccurred())
			Expect(sink.errorMsgs).To(HaveLen(1))
		})

		It("swapping the sink returns the previous one", func() {
			sink := &captureReporter{}

			prev := m.SetReporter(sink)
			Expect(prev).ToNot(BeNil())
			Expect(m.SetReporter(nil)).To(BeIdenticalTo(sink))
		})
	})

	Describe("unplugging", func() {
		It("writes disconnect", func() {
			Expect(m.UnplugDisplay(5, entity.PortB)).To(Succeed())
			Expect(readFile(testRoot + "/vm5/PORT_B/connection")).To(Equal("disconnect\n"))
		})

		It("refuses the host domain", func() {
			err := m.UnplugDisplay(0, entity.PortB)
			var inv display.InvalidArgumentError
			Expect(errors.As(err, &inv)).To(BeTrue())
			Expect(rec.writes).To(BeEmpty())
		})

		It("refuses invalid ports", func() {
			Expect(m.UnplugDisplay(5, entity.PortIllegal)).To(HaveOccurred())
			Expect(rec.writes).To(BeEmpty())
		})
	})

	Describe("port predicates", func() {
		It("reads plugged state from the connection attribute", func() {
			Expect(m.IsPortPlugged(5, entity.PortB)).To(BeFalse())

			connection := testRoot + "/vm5/PORT_B/connection"
			Expect(afero.WriteFile(mem, connection, []byte("connected\n"), 0644)).To(Succeed())
			Expect(m.IsPortPlugged(5, entity.PortB)).To(BeTrue())
		})

		It("reads unplugged for invalid guests and ports", func() {
			Expect(m.IsPortPlugged(0, entity.PortB)).To(BeFalse())
			Expect(m.IsPortPlugged(7, entity.PortB)).To(BeFalse())
			Expect(m.IsPortPlugged(5, entity.PortIllegal)).To(BeFalse())
		})

		It("reads physical presence independent of guests", func() {
			Expect(m.IsPortPresent(entity.PortC)).To(BeFalse())

			presence := testRoot + "/control/PORT_C/presence"
			Expect(afero.WriteFile(mem, presence, []byte("present\n"), 0644)).To(Succeed())
			Expect(m.IsPortPresent(entity.PortC)).To(BeTrue())

			Expect(m.IsPortPresent(entity.PortIllegal)).To(BeFalse())
		})

		It("gates hotplug policy on guest validity", func() {
			Expect(m.IsPortHotpluggable(5, entity.PortA)).To(BeFalse(), "eDP is fixed")
			for _, p := range []entity.Port{entity.PortB, entity.PortC, entity.PortD, entity.PortE} {
				Expect(m.IsPortHotpluggable(5, p)).To(BeTrue(), "port %s", p)
			}
			Expect(m.IsPortHotpluggable(7, entity.PortB)).To(BeFalse())
			Expect(m.IsPortHotpluggable(0, entity.PortB)).To(BeFalse())
		})
	})
})
