package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"kaoban/internal/camera"
)

var devicesV4L2 bool

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "ローカルの撮影デバイスを一覧表示する",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			devices []camera.DeviceInfo
			err     error
		)
		if devicesV4L2 {
			devices, err = camera.ScanDevices(cmd.Context())
		} else {
			var driver camera.Driver
			if driver, err = camera.NewDriver(cfg.Camera); err != nil {
				return err
			}
			devices, err = driver.Devices(cmd.Context())
		}
		if err != nil {
			return err
		}

		printDevices(cmd.OutOrStdout(), devices)
		return nil
	},
}

func init() {
	devicesCmd.Flags().BoolVar(&devicesV4L2, "v4l2", false, "/dev/video* を直接スキャンする")
	rootCmd.AddCommand(devicesCmd)
}

func printDevices(out io.Writer, devices []camera.DeviceInfo) {
	if len(devices) == 0 {
		fmt.Fprintln(out, "撮影デバイスが見つかりません")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tLABEL\tDRIVER")
	fmt.Fprintln(w, "--\t-----\t------")
	for _, d := range devices {
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.ID, d.Label, d.Driver)
	}
	w.Flush()
}
