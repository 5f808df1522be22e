package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openxt/govgt/internal/entity"
)

var plugCmd = &cobra.Command{
	Use:   "plug <domid> <vport> <edid-file> <pport>",
	Short: "Plug a virtual monitor into a guest's virtual port",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		domid, err := parseDomid(args[0])
		if err != nil {
			return err
		}
		vport, err := entity.ParsePort(args[1])
		if err != nil {
			return err
		}
		edidBytes, err := os.ReadFile(args[2])
		if err != nil {
			return fmt.Errorf("read edid file: %w", err)
		}
		pport, err := entity.ParsePort(args[3])
		if err != nil {
			return err
		}

		n, err := newManager().PlugDisplay(domid, vport, edidBytes, pport)
		if err != nil {
			return err
		}

		zap.S().Infof("plugged %s into vm%d port %s (%d edid bytes written)", pport, domid, vport, n)
		return nil
	},
}

var unplugCmd = &cobra.Command{
	Use:   "unplug <domid> <vport>",
	Short: "Unplug a guest's virtual port",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		domid, err := parseDomid(args[0])
		if err != nil {
			return err
		}
		vport, err := entity.ParsePort(args[1])
		if err != nil {
			return err
		}

		return newManager().UnplugDisplay(domid, vport)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <domid>",
	Short: "Show port state for a guest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		domid, err := parseDomid(args[0])
		if err != nil {
			return err
		}

		m := newManager()
		if !m.IsAvailable() {
			return fmt.Errorf("vgt control interface is not available")
		}
		if !m.IsEnabled(domid) {
			return fmt.Errorf("vm%d has no vgt instance", domid)
		}

		if fg, err := m.ForegroundVM(); err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "foreground: vm%d\n", fg)
		}

		for _, port := range []entity.Port{entity.PortA, entity.PortB, entity.PortC, entity.PortD, entity.PortE} {
			fmt.Fprintf(cmd.OutOrStdout(), "%-6s plugged=%-5v present=%-5v hotpluggable=%v\n",
				port, m.IsPortPlugged(domid, port), m.IsPortPresent(port), m.IsPortHotpluggable(domid, port))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(plugCmd)
	rootCmd.AddCommand(unplugCmd)
	rootCmd.AddCommand(statusCmd)
}
