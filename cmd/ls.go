package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-btrfs/internal/types"
	"github.com/deploymenttheory/go-btrfs/pkg/app/ls"
)

var (
	lsTree  uint64
	lsInode uint64
)

var lsCmd = &cobra.Command{
	Use:   "ls IMAGE...",
	Short: "List a directory",
	Long: `List one directory of the FS tree, or of a subvolume, with the size and
modification time of every entry.

Examples:
  # Top-level directory of the default FS tree
  btrfs-examine ls disk.img

  # Directory inode 258 of subvolume 256
  btrfs-examine ls disk.img --tree 256 --inode 258`,

	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLs(args)
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)

	lsCmd.Flags().Uint64Var(&lsTree, "tree", types.FSTreeObjectID, "tree holding the directory")
	lsCmd.Flags().Uint64Var(&lsInode, "inode", types.FirstFreeObjectID, "directory inode number")
}

func runLs(paths []string) error {
	ctx, cancel := appCtx.WithTimeout(appCtx.DefaultTimeout)
	defer cancel()

	response, err := ls.Handle(ctx, &ls.Request{
		Target: imageTarget(paths),
		Tree:   lsTree,
		Inode:  lsInode,
	})
	if err != nil {
		return err
	}
	return ls.FormatOutput(ctx.Out, response, ctx.OutputFormat)
}
