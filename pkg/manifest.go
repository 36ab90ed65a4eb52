// Package pkg provides functionality for processing GameCube disc images.
// This file contains the YAML patch manifest describing which virtual paths
// receive new content and which are removed before a rebuild.
package pkg

import (
	"fmt"
	"os"

	"github.com/jamesbrq/gcmtools/pkg/common"
	"gopkg.in/yaml.v3"
)

// PutEntry maps one virtual path to the payload file that replaces it
type PutEntry struct {
	Path string `yaml:"path"` // virtual path inside the image
	From string `yaml:"from"` // payload file on disk
}

// PatchManifest lists the mutations applied to a disc image before rebuild
type PatchManifest struct {
	Put    []PutEntry `yaml:"put"`
	Remove []string   `yaml:"remove"`
}

// LoadManifest reads and validates a YAML patch manifest
func LoadManifest(manifestFile string) (*PatchManifest, error) {
	data, err := os.ReadFile(manifestFile)
	if err != nil {
		return nil, common.FormatError(common.ErrFailedToReadManifest, err)
	}

	manifest := &PatchManifest{}
	if err := yaml.Unmarshal(data, manifest); err != nil {
		return nil, common.FormatError(common.ErrFailedToParseManifest, err)
	}

	for i, put := range manifest.Put {
		if put.Path == "" {
			return nil, fmt.Errorf("put entry %d: missing path", i)
		}
		if put.From == "" {
			return nil, fmt.Errorf("put entry %d (%s): missing payload file", i, put.Path)
		}
	}
	for i, path := range manifest.Remove {
		if path == "" {
			return nil, fmt.Errorf("remove entry %d: missing path", i)
		}
	}

	return manifest, nil
}
