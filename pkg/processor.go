// Package pkg provides functionality for processing GameCube disc images.
// This file contains the processor bridging disc image files on disk and the
// container engine in pkg/gc.
package pkg

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jamesbrq/gcmtools/pkg/common"
	"github.com/jamesbrq/gcmtools/pkg/gc"
)

// GCMFileProcessor implements the DiscProcessor interface
type GCMFileProcessor struct {
	Layout gc.Layout
}

// NewGCMProcessor creates a new disc image processor with standard alignments
func NewGCMProcessor() *GCMFileProcessor {
	return &GCMFileProcessor{Layout: gc.DefaultLayout()}
}

// Info prints the header fields, system blob table and file listing of an image
func (p *GCMFileProcessor) Info(inputFile string, verbose bool) error {
	disc, err := p.load(inputFile)
	if err != nil {
		return err
	}

	header := disc.Header()
	fmt.Printf("Main executable offset: 0x%08X\n", header.DOLOffset)
	fmt.Printf("Table offset:           0x%08X\n", header.FSTOffset)
	fmt.Printf("Table size:             0x%X (max 0x%X)\n", header.FSTSize, header.FSTMaxSize)
	fmt.Printf("Entry point:            0x%08X\n", disc.DOL().EntryPoint)

	fmt.Println("\nSystem files:")
	for _, sys := range disc.SystemFiles() {
		fmt.Printf("  %-14s offset=0x%08X size=%d\n", gc.SysDir+"/"+sys.Name, sys.Offset, sys.Size)
	}

	files := 0
	err = disc.Tree().Walk(func(path string, node gc.Node) error {
		if file, ok := node.(*gc.FileNode); ok {
			files++
			if verbose {
				if src, ok := file.Source.(gc.OriginalSource); ok {
					fmt.Printf("  0x%08X %9d  %s\n", src.Offset, src.Size, path)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Printf("\nTotal files: %d\n", files)

	return nil
}

// Dump extracts every file, including the four system blobs under sys/,
// preserving the virtual hierarchy below outputDir.
func (p *GCMFileProcessor) Dump(inputFile, outputDir string) error {
	disc, err := p.load(inputFile)
	if err != nil {
		return err
	}

	extracted := 0
	err = disc.Tree().Walk(func(path string, node gc.Node) error {
		target := filepath.Join(outputDir, filepath.FromSlash(path))
		if _, ok := node.(*gc.DirNode); ok {
			return os.MkdirAll(target, 0755)
		}
		data, err := disc.FileData(path)
		if err != nil {
			return common.FormatError(common.ErrFailedToExtractFile, err)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(target, data, 0644); err != nil {
			return common.FormatError(common.ErrFailedToExtractFile, err)
		}
		common.LogDebug(common.InfoFileExtracted, path, len(data))
		extracted++
		return nil
	})
	if err != nil {
		return err
	}

	common.LogInfo(common.InfoDumpComplete, extracted, outputDir)
	return nil
}

// Patch applies a manifest's put/remove operations to the virtual tree,
// rebuilds the image and writes the result. The input image is not touched.
func (p *GCMFileProcessor) Patch(inputFile, manifestFile, outputFile string) error {
	disc, err := p.load(inputFile)
	if err != nil {
		return err
	}

	manifest, err := LoadManifest(manifestFile)
	if err != nil {
		return err
	}

	for _, put := range manifest.Put {
		payload, err := os.ReadFile(put.From)
		if err != nil {
			return common.FormatError(common.ErrFailedToReadPayload, err)
		}
		if err := disc.PutFile(put.Path, payload); err != nil {
			return common.FormatError(common.ErrFailedToApplyManifest, err)
		}
		common.LogDebug(common.InfoFilePut, put.Path, len(payload))
	}
	for _, path := range manifest.Remove {
		if err := disc.RemovePath(path); err != nil {
			return common.FormatError(common.ErrFailedToApplyManifest, err)
		}
		common.LogDebug(common.InfoFileRemoved, path)
	}
	common.LogInfo(common.InfoManifestApplied, len(manifest.Put), len(manifest.Remove))

	image, err := disc.Rebuild(p.Layout)
	if err != nil {
		return common.FormatError(common.ErrFailedToRebuildImage, err)
	}
	if err := os.WriteFile(outputFile, image, 0644); err != nil {
		return common.FormatError(common.ErrFailedToWriteImage, err)
	}
	common.LogInfo(common.InfoImageRebuilt, len(image))

	return nil
}

// load reads and parses one disc image
func (p *GCMFileProcessor) load(inputFile string) (*gc.Disc, error) {
	image, err := os.ReadFile(inputFile)
	if err != nil {
		return nil, common.FormatError(common.ErrFailedToReadImage, err)
	}
	disc, err := gc.ParseDisc(image)
	if err != nil {
		return nil, common.FormatError(common.ErrFailedToParseImage, err)
	}
	common.LogDebug(common.InfoImageParsed, len(image), disc.Header().FSTSize)
	return disc, nil
}
