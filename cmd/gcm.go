// Package cmd provides command-line interface for GCM disc image processing.
// This file contains commands for inspecting, extracting and patching
// GameCube disc images.
package cmd

import (
	"fmt"

	"github.com/jamesbrq/gcmtools/pkg"
	"github.com/jamesbrq/gcmtools/pkg/common"
	"github.com/spf13/cobra"
)

// gcmCmd represents the parent command for all GCM disc image operations.
var gcmCmd = &cobra.Command{
	Use:   "gcm",
	Short: "Process GameCube disc images",
	Long: `Process GameCube disc images (GCM format).

Commands:
  info      Show header fields, system files and table statistics
  dump      Extract all files from a disc image
  patch     Apply a patch manifest and rebuild the image

Examples:
  gcmtools gcm info game.gcm
  gcmtools gcm dump game.gcm ./output/
  gcmtools gcm patch game.gcm manifest.yaml game_modified.gcm`,
}

// gcmInfoCmd prints the decoded header, the four system files and, in
// verbose mode, every virtual path with its offset and size.
var gcmInfoCmd = &cobra.Command{
	Use:   "info [input_file]",
	Short: "Show header fields, system files and table statistics",
	Long: `Show the decoded header of a GameCube disc image: the main executable
and table pointers, the four fixed system files, and the number of files in
the file-system table. When verbose mode is enabled (-v), every virtual path
is listed with its data offset and size.

Example:
  gcmtools gcm info game.gcm
  gcmtools gcm info -v game.gcm`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, err := cmd.Flags().GetBool("verbose")
		if err != nil {
			return fmt.Errorf("error getting verbose flag: %w", err)
		}
		common.SetVerboseMode(verbose)

		processor := pkg.NewGCMProcessor()
		return processor.Info(args[0], verbose)
	},
}

// gcmDumpCmd extracts every file from a disc image, including the system
// files under sys/, preserving the virtual directory structure.
var gcmDumpCmd = &cobra.Command{
	Use:   "dump [input_file] [output_directory]",
	Short: "Extract all files from a disc image",
	Long: `Extract all files from a GameCube disc image.

This command parses the file-system table and writes every file below the
output directory, preserving the virtual hierarchy. The four system files
(boot header, disc info, apploader, main executable) are written under sys/.

Example:
  gcmtools gcm dump game.gcm ./output/
  gcmtools gcm dump -v game.gcm ./output/`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, err := cmd.Flags().GetBool("verbose")
		if err != nil {
			return fmt.Errorf("error getting verbose flag: %w", err)
		}
		common.SetVerboseMode(verbose)

		processor := pkg.NewGCMProcessor()

		fmt.Printf("Processing disc image: %s\n", args[0])
		fmt.Printf("Output directory: %s\n", args[1])

		if err := processor.Dump(args[0], args[1]); err != nil {
			return fmt.Errorf("failed to process disc image: %w", err)
		}

		fmt.Println("Disc image processed successfully!")
		return nil
	},
}

// gcmPatchCmd applies a YAML manifest of put/remove operations to the
// virtual file tree and rebuilds a new, structurally valid image.
var gcmPatchCmd = &cobra.Command{
	Use:   "patch [input_file] [manifest.yaml] [output_file]",
	Short: "Apply a patch manifest and rebuild the image",
	Long: `Apply a patch manifest to a GameCube disc image and rebuild it.

The manifest is a YAML file mapping virtual paths to payload files and
listing paths to remove:

  put:
    - path: files/rel/aaa.rel
      from: ./payloads/aaa.rel
    - path: sys/main.dol
      from: ./payloads/main.dol
  remove:
    - files/old.bin

Unmodified files keep their original offsets; shrunken replacements reuse
their original slot; everything else is placed at the sector-aligned free
space cursor.

Flags:
  --sector-align    Alignment of newly placed file data (default 2048)
  --blob-align      Alignment of apploader/executable (default 32)
  --trim-align      Alignment of the final image length (default 32768)

Example:
  gcmtools gcm patch game.gcm manifest.yaml game_modified.gcm`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, err := cmd.Flags().GetBool("verbose")
		if err != nil {
			return fmt.Errorf("error getting verbose flag: %w", err)
		}
		common.SetVerboseMode(verbose)

		processor := pkg.NewGCMProcessor()
		if v, err := cmd.Flags().GetUint32("sector-align"); err == nil && v > 0 {
			processor.Layout.SectorAlign = v
		}
		if v, err := cmd.Flags().GetUint32("blob-align"); err == nil && v > 0 {
			processor.Layout.BlobAlign = v
		}
		if v, err := cmd.Flags().GetUint32("trim-align"); err == nil && v > 0 {
			processor.Layout.TrimAlign = v
		}

		fmt.Printf("Input disc image: %s\n", args[0])
		fmt.Printf("Patch manifest: %s\n", args[1])

		if err := processor.Patch(args[0], args[1], args[2]); err != nil {
			return fmt.Errorf("failed to patch disc image: %w", err)
		}

		fmt.Printf("Rebuilt image written to: %s\n", args[2])
		return nil
	},
}

// init initializes the GCM command with its subcommands and flags.
func init() {
	rootCmd.AddCommand(gcmCmd)

	gcmCmd.AddCommand(gcmInfoCmd)
	gcmCmd.AddCommand(gcmDumpCmd)
	gcmCmd.AddCommand(gcmPatchCmd)

	gcmInfoCmd.Flags().BoolP("verbose", "v", false, "Enable verbose output with per-file details")
	gcmDumpCmd.Flags().BoolP("verbose", "v", false, "Enable verbose output with per-file details")
	gcmPatchCmd.Flags().BoolP("verbose", "v", false, "Enable verbose output with per-file details")
	gcmPatchCmd.Flags().Uint32("sector-align", 0, "Override sector alignment for newly placed files")
	gcmPatchCmd.Flags().Uint32("blob-align", 0, "Override apploader/executable alignment")
	gcmPatchCmd.Flags().Uint32("trim-align", 0, "Override final image length alignment")
}
