package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	config "github.com/openxt/govgt/configuration"
)

var createInstanceCmd = &cobra.Command{
	Use:   "create-instance <domid>",
	Short: "Create a virtual GT instance for a guest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		domid, err := parseDomid(args[0])
		if err != nil {
			return err
		}

		return newManager().CreateInstance(domid, config.GetInstanceConfig())
	},
}

var destroyInstanceCmd = &cobra.Command{
	Use:   "destroy-instance <domid>",
	Short: "Destroy a guest's virtual GT instance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		domid, err := parseDomid(args[0])
		if err != nil {
			return err
		}

		return newManager().DestroyInstance(domid)
	},
}

var foregroundCmd = &cobra.Command{
	Use:   "foreground <domid>",
	Short: "Select which guest is rendered on the physical displays",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		domid, err := parseDomid(args[0])
		if err != nil {
			return err
		}

		return newManager().SetForegroundVM(domid)
	},
}

func parseDomid(s string) (uint, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid domid %q", s)
	}
	return uint(v), nil
}

func init() {
	rootCmd.AddCommand(createInstanceCmd)
	rootCmd.AddCommand(destroyInstanceCmd)
	rootCmd.AddCommand(foregroundCmd)
}
