// Package cmd provides command-line interface for DOL executable processing.
// This file contains commands for inspecting the section layout of GameCube
// DOL executables.
package cmd

import (
	"fmt"
	"os"

	"github.com/jamesbrq/gcmtools/pkg/common"
	"github.com/jamesbrq/gcmtools/pkg/gc"
	"github.com/spf13/cobra"
)

// dolCmd represents the parent command for all DOL executable operations.
var dolCmd = &cobra.Command{
	Use:   "dol",
	Short: "Process GameCube DOL executables",
	Long: `Process GameCube DOL executables.

Commands:
  sections  Show the section table, BSS region and entry point

Examples:
  gcmtools dol sections main.dol`,
}

// dolSectionsCmd prints the section table of a standalone DOL file.
var dolSectionsCmd = &cobra.Command{
	Use:   "sections [input_file]",
	Short: "Show the section table, BSS region and entry point",
	Long: `Show the section layout of a GameCube DOL executable: file offset,
load address and size of every text and data section, the BSS address and
size, the entry point and its file offset, and the total executable size.

Example:
  gcmtools dol sections main.dol`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return common.FormatError(common.ErrFailedToReadDOL, err)
		}
		dol, err := gc.ParseDOL(data)
		if err != nil {
			return common.FormatError(common.ErrFailedToParseDOL, err)
		}

		fmt.Println("Idx  Type  FileOffset  LoadAddress  Size")
		for i, s := range dol.Sections() {
			if s.Size == 0 {
				continue
			}
			kind := "text"
			if i >= 7 {
				kind = "data"
			}
			fmt.Printf("%3d  %s  0x%08X  0x%08X   %d\n", i, kind, s.FileOffset, s.LoadAddress, s.Size)
		}
		fmt.Printf("\nBSS:         0x%08X (%d bytes)\n", dol.BSSAddress, dol.BSSSize)
		fmt.Printf("Entry point: 0x%08X", dol.EntryPoint)
		if off, err := dol.AddressToOffset(dol.EntryPoint); err == nil {
			fmt.Printf(" (file offset 0x%08X)", off)
		} else {
			common.LogWarn("entry point not covered by any section: %v", err)
		}
		fmt.Printf("\nTotal size:  %d bytes\n", dol.TotalSize())

		return nil
	},
}

// init initializes the DOL command with its subcommands.
func init() {
	rootCmd.AddCommand(dolCmd)
	dolCmd.AddCommand(dolSectionsCmd)
}
