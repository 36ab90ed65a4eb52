// Package gc provides GameCube-specific structures and functionality.
// This file contains the virtual file tree and its mutation operations.
package gc

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Structural errors carried by tree mutations. Every failure names the
// offending path; none of them leaves the tree partially mutated.
var (
	ErrPathConflict = errors.New("path conflict")
	ErrMissingNode  = errors.New("missing node")
	ErrSysName      = errors.New("sys namespace violation")
)

// Node is either a *DirNode or a *FileNode
type Node interface {
	isNode()
}

// DirNode is a directory. Children are unordered at mutation time and are
// emitted in byte name order at serialization time.
type DirNode struct {
	Children map[string]Node
}

func (*DirNode) isNode() {}

// NewDirNode returns an empty directory
func NewDirNode() *DirNode {
	return &DirNode{Children: make(map[string]Node)}
}

// SortedNames returns the child names in byte order
func (d *DirNode) SortedNames() []string {
	names := make([]string, 0, len(d.Children))
	for name := range d.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FileNode is a file. Its byte source is either the original image region or
// a modified payload. When a modified payload replaces an original-backed
// file, the original location is retained as a rebuild hint so the payload
// can reuse the old slot when it fits.
type FileNode struct {
	Source FileSource

	hintOffset uint32
	hintSize   uint32
	hasHint    bool
}

func (*FileNode) isNode() {}

// FileSource is a two-variant union over file content origins
type FileSource interface {
	isFileSource()
}

// OriginalSource points at bytes still living in the original image
type OriginalSource struct {
	Offset uint32
	Size   uint32
}

func (OriginalSource) isFileSource() {}

// ModifiedSource carries new content supplied by a mutation
type ModifiedSource struct {
	Data []byte
}

func (ModifiedSource) isFileSource() {}

// FileTree is the in-memory path-addressable tree built from the parsed
// table records. The reserved top-level "sys" directory holds the four fixed
// system files and is excluded from table serialization.
type FileTree struct {
	root *DirNode
}

// NewFileTree returns a tree containing only the root directory
func NewFileTree() *FileTree {
	return &FileTree{root: NewDirNode()}
}

// Root returns the root directory
func (t *FileTree) Root() *DirNode {
	return t.root
}

// splitPath splits a /-delimited virtual path into components. The root is
// the empty path. Redundant separators are ignored.
func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Lookup returns the node at path, or false when any component is absent.
// It never fails on missing paths.
func (t *FileTree) Lookup(path string) (Node, bool) {
	var node Node = t.root
	for _, name := range splitPath(path) {
		dir, ok := node.(*DirNode)
		if !ok {
			return nil, false
		}
		node, ok = dir.Children[name]
		if !ok {
			return nil, false
		}
	}
	return node, true
}

// MkdirParents creates every missing component of path as a directory and
// returns the final one. It fails when an intermediate component already
// exists as a file, or when the path would create entries in the sys
// namespace.
func (t *FileTree) MkdirParents(path string) (*DirNode, error) {
	parts := splitPath(path)
	if len(parts) > 0 && parts[0] == SysDir {
		return nil, fmt.Errorf("%w: cannot create directories under %s", ErrSysName, SysDir)
	}
	dir := t.root
	for i, name := range parts {
		child, ok := dir.Children[name]
		if !ok {
			next := NewDirNode()
			dir.Children[name] = next
			dir = next
			continue
		}
		next, ok := child.(*DirNode)
		if !ok {
			return nil, fmt.Errorf("%w: %s is a file", ErrPathConflict, strings.Join(parts[:i+1], "/"))
		}
		dir = next
	}
	return dir, nil
}

// PutFile inserts or replaces the file at path. Paths under sys/ must name
// one of the four fixed system entries, which are mutated in place. For
// ordinary paths, replacing an original-backed file retains its (offset,
// size) as a rebuild hint on the new node.
func (t *FileTree) PutFile(path string, src FileSource) error {
	parts := splitPath(path)
	if len(parts) == 0 {
		return fmt.Errorf("%w: empty path", ErrMissingNode)
	}
	if parts[0] == SysDir {
		return t.putSystemFile(parts, src)
	}

	parent, err := t.MkdirParents(strings.Join(parts[:len(parts)-1], "/"))
	if err != nil {
		return err
	}
	name := parts[len(parts)-1]

	node := &FileNode{Source: src}
	if existing, ok := parent.Children[name]; ok {
		file, ok := existing.(*FileNode)
		if !ok {
			return fmt.Errorf("%w: %s is a directory", ErrPathConflict, path)
		}
		switch prev := file.Source.(type) {
		case OriginalSource:
			node.hintOffset = prev.Offset
			node.hintSize = prev.Size
			node.hasHint = true
		case ModifiedSource:
			node.hintOffset = file.hintOffset
			node.hintSize = file.hintSize
			node.hasHint = file.hasHint
		}
	}
	parent.Children[name] = node
	return nil
}

// putSystemFile replaces the content of an existing fixed system entry
func (t *FileTree) putSystemFile(parts []string, src FileSource) error {
	path := strings.Join(parts, "/")
	if len(parts) != 2 {
		return fmt.Errorf("%w: %s", ErrSysName, path)
	}
	sys, ok := t.root.Children[SysDir].(*DirNode)
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingNode, SysDir)
	}
	file, ok := sys.Children[parts[1]].(*FileNode)
	if !ok {
		return fmt.Errorf("%w: %s is not a system file", ErrSysName, path)
	}
	file.Source = src
	file.hasHint = false
	return nil
}

// RemovePath detaches the leaf at path from its parent. It fails when any
// component, including the leaf, is missing. System entries are fixed and
// cannot be removed.
func (t *FileTree) RemovePath(path string) error {
	parts := splitPath(path)
	if len(parts) == 0 {
		return fmt.Errorf("%w: empty path", ErrMissingNode)
	}
	if parts[0] == SysDir {
		return fmt.Errorf("%w: cannot remove %s", ErrSysName, path)
	}
	dir := t.root
	for i, name := range parts[:len(parts)-1] {
		child, ok := dir.Children[name].(*DirNode)
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingNode, strings.Join(parts[:i+1], "/"))
		}
		dir = child
	}
	name := parts[len(parts)-1]
	if _, ok := dir.Children[name]; !ok {
		return fmt.Errorf("%w: %s", ErrMissingNode, path)
	}
	delete(dir.Children, name)
	return nil
}

// Walk visits every node below the root in pre-order, children in byte name
// order, and stops at the first error.
func (t *FileTree) Walk(fn func(path string, node Node) error) error {
	return walkDir(t.root, "", fn)
}

func walkDir(dir *DirNode, prefix string, fn func(path string, node Node) error) error {
	for _, name := range dir.SortedNames() {
		child := dir.Children[name]
		path := name
		if prefix != "" {
			path = prefix + "/" + name
		}
		if err := fn(path, child); err != nil {
			return err
		}
		if sub, ok := child.(*DirNode); ok {
			if err := walkDir(sub, path, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// populate builds the tree from parsed table records. Records arrive in
// pre-order, so each record's parent directory already exists.
func (t *FileTree) populate(records []TableRecord) error {
	for i, rec := range records[1:] {
		if rec.Path == SysDir || strings.HasPrefix(rec.Path, SysDir+"/") {
			return fmt.Errorf("record %d: %w: %s is reserved", i+1, ErrSysName, rec.Path)
		}
		if rec.IsDir {
			if _, err := t.MkdirParents(rec.Path); err != nil {
				return fmt.Errorf("record %d: %w", i+1, err)
			}
			continue
		}
		parentPath := ""
		if idx := strings.LastIndex(rec.Path, "/"); idx >= 0 {
			parentPath = rec.Path[:idx]
		}
		parent, err := t.MkdirParents(parentPath)
		if err != nil {
			return fmt.Errorf("record %d: %w", i+1, err)
		}
		if _, ok := parent.Children[rec.Name]; ok {
			return fmt.Errorf("record %d: %w: duplicate entry %s", i+1, ErrPathConflict, rec.Path)
		}
		parent.Children[rec.Name] = &FileNode{
			Source: OriginalSource{Offset: rec.DataOffset, Size: rec.DataSize},
		}
	}
	return nil
}

// seedSystemFile installs one of the four fixed entries under sys/
func (t *FileTree) seedSystemFile(name string, offset, size uint32) {
	sys, ok := t.root.Children[SysDir].(*DirNode)
	if !ok {
		sys = NewDirNode()
		t.root.Children[SysDir] = sys
	}
	sys.Children[name] = &FileNode{
		Source: OriginalSource{Offset: offset, Size: size},
	}
}
