package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-btrfs/pkg/app/partitions"
)

var partitionsCmd = &cobra.Command{
	Use:   "partitions IMAGE",
	Short: "List GPT partitions and locate btrfs filesystems",
	Long: `Read the GPT of a disk image, classify every partition type and probe each
partition for a btrfs superblock. The start sector can be passed to --offset.

Example:
  btrfs-examine partitions disk.img`,

	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		response, err := partitions.Handle(appCtx, &partitions.Request{
			ImagePath:  args[0],
			SectorSize: appCtx.Config.SectorSize,
		})
		if err != nil {
			return err
		}
		return partitions.FormatOutput(appCtx.Out, response, appCtx.OutputFormat)
	},
}

func init() {
	rootCmd.AddCommand(partitionsCmd)
}
