package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newDevicesCmd() *cobra.Command {
	var camFlags cameraFlags

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List the configured cameras",
		RunE: func(cmd *cobra.Command, args []string) error {
			source, _, err := camFlags.build()
			if err != nil {
				return err
			}
			devices, err := source.Devices(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(devices)
		},
	}

	camFlags.register(cmd)
	return cmd
}
