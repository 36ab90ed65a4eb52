// Package gc provides tests for the rebuilder/serializer
package gc

import (
	"bytes"
	"errors"
	"testing"
)

// treePaths collects every path in the tree, in walk order
func treePaths(t *testing.T, disc *Disc) []string {
	t.Helper()
	var paths []string
	err := disc.Tree().Walk(func(path string, node Node) error {
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() failed: %v", err)
	}
	return paths
}

// An unmodified tree rebuilds to the original image byte for byte: every
// file keeps its region, the table re-encodes identically and the trimmed
// length matches.
func TestRebuild_UnmodifiedPreservesImage(t *testing.T) {
	image := buildTestImage(t)
	disc := parseTestDisc(t, image)

	out, err := disc.Rebuild(DefaultLayout())
	if err != nil {
		t.Fatalf("Rebuild() failed: %v", err)
	}
	if len(out)%32768 != 0 {
		t.Errorf("rebuilt length %d is not trim-aligned", len(out))
	}
	if !bytes.Equal(out, image) {
		t.Error("rebuild of an unmodified tree should reproduce the image")
	}
}

func TestRebuild_RoundTrip(t *testing.T) {
	image := buildTestImage(t)
	disc := parseTestDisc(t, image)

	out, err := disc.Rebuild(DefaultLayout())
	if err != nil {
		t.Fatalf("Rebuild() failed: %v", err)
	}
	reparsed := parseTestDisc(t, out)

	want := treePaths(t, disc)
	got := treePaths(t, reparsed)
	if len(got) != len(want) {
		t.Fatalf("reparsed paths = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("reparsed path[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRebuild_Idempotence(t *testing.T) {
	image := buildTestImage(t)

	disc := parseTestDisc(t, image)
	if err := disc.PutFile("files/new.bin", bytes.Repeat([]byte{0x42}, 100)); err != nil {
		t.Fatalf("PutFile() failed: %v", err)
	}
	out1, err := disc.Rebuild(DefaultLayout())
	if err != nil {
		t.Fatalf("first Rebuild() failed: %v", err)
	}

	out2, err := parseTestDisc(t, out1).Rebuild(DefaultLayout())
	if err != nil {
		t.Fatalf("second Rebuild() failed: %v", err)
	}
	if !bytes.Equal(out1, out2) {
		t.Error("rebuilding a rebuilt image must be byte-identical")
	}
}

func TestRebuild_ShrinkInPlace(t *testing.T) {
	disc := parseTestDisc(t, buildTestImage(t))

	payload := bytes.Repeat([]byte{0x5A}, 10) // shorter than B.BIN's 32 bytes
	if err := disc.PutFile("DATA/B.BIN", payload); err != nil {
		t.Fatalf("PutFile() failed: %v", err)
	}
	out, err := disc.Rebuild(DefaultLayout())
	if err != nil {
		t.Fatalf("Rebuild() failed: %v", err)
	}

	reparsed := parseTestDisc(t, out)
	node, _ := reparsed.Lookup("DATA/B.BIN")
	src := node.(*FileNode).Source.(OriginalSource)
	if src.Offset != 0x8800 || src.Size != 10 {
		t.Errorf("shrunk file at (0x%X, %d), want (0x8800, 10)", src.Offset, src.Size)
	}
	data, err := reparsed.FileData("DATA/B.BIN")
	if err != nil {
		t.Fatalf("FileData() failed: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("shrunk file content = % X, want % X", data, payload)
	}
}

func TestRebuild_GrownFilePlacedAtCursor(t *testing.T) {
	disc := parseTestDisc(t, buildTestImage(t))

	payload := bytes.Repeat([]byte{0x77}, 100) // larger than A.BIN's 16 bytes
	if err := disc.PutFile("A.BIN", payload); err != nil {
		t.Fatalf("PutFile() failed: %v", err)
	}
	out, err := disc.Rebuild(DefaultLayout())
	if err != nil {
		t.Fatalf("Rebuild() failed: %v", err)
	}

	reparsed := parseTestDisc(t, out)
	node, _ := reparsed.Lookup("A.BIN")
	src := node.(*FileNode).Source.(OriginalSource)
	if src.Offset%2048 != 0 {
		t.Errorf("grown file offset 0x%X is not sector-aligned", src.Offset)
	}
	if src.Offset <= 0x9000 {
		t.Errorf("grown file offset 0x%X should be past all live regions", src.Offset)
	}
	if src.Size != 100 {
		t.Errorf("grown file size = %d, want 100", src.Size)
	}
	data, _ := reparsed.FileData("A.BIN")
	if !bytes.Equal(data, payload) {
		t.Error("grown file content mismatch")
	}

	// untouched files keep their regions
	node, _ = reparsed.Lookup("DATA/B.BIN")
	if src := node.(*FileNode).Source.(OriginalSource); src.Offset != 0x8800 || src.Size != 32 {
		t.Errorf("untouched file moved to (0x%X, %d)", src.Offset, src.Size)
	}
}

func TestRebuild_AddAndRemove(t *testing.T) {
	disc := parseTestDisc(t, buildTestImage(t))

	payload := []byte{1, 2, 3, 4, 5}
	if err := disc.PutFile("DATA/C.BIN", payload); err != nil {
		t.Fatalf("PutFile() failed: %v", err)
	}
	if err := disc.RemovePath("Z.BIN"); err != nil {
		t.Fatalf("RemovePath() failed: %v", err)
	}

	out, err := disc.Rebuild(DefaultLayout())
	if err != nil {
		t.Fatalf("Rebuild() failed: %v", err)
	}
	reparsed := parseTestDisc(t, out)

	if _, ok := reparsed.Lookup("Z.BIN"); ok {
		t.Error("removed file still present after rebuild")
	}
	data, err := reparsed.FileData("DATA/C.BIN")
	if err != nil {
		t.Fatalf("FileData(DATA/C.BIN) failed: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("added file content = % X, want % X", data, payload)
	}
}

// A modified executable moves behind the apploader and the header pointer
// follows; unmodified executables keep their pointer (covered by the
// unmodified-image test above).
func TestRebuild_ModifiedExecutable(t *testing.T) {
	disc := parseTestDisc(t, buildTestImage(t))

	payload := make([]byte, 0x140)
	payload[0x100] = 0xEE
	if err := disc.PutFile("sys/main.dol", payload); err != nil {
		t.Fatalf("PutFile(sys/main.dol) failed: %v", err)
	}
	out, err := disc.Rebuild(DefaultLayout())
	if err != nil {
		t.Fatalf("Rebuild() failed: %v", err)
	}

	// apploader ends at 0x2440 + 0x1D0; the next 32-byte boundary is 0x2620
	wantOffset := uint32(0x2620)
	if got := be32(out, dolOffsetField); got != wantOffset {
		t.Errorf("executable pointer = 0x%X, want 0x%X", got, wantOffset)
	}
	if !bytes.Equal(out[wantOffset:wantOffset+0x140], payload) {
		t.Error("executable payload not written at its new offset")
	}
}

func TestRebuild_CustomLayout(t *testing.T) {
	disc := parseTestDisc(t, buildTestImage(t))

	if err := disc.PutFile("A.BIN", bytes.Repeat([]byte{0x77}, 100)); err != nil {
		t.Fatalf("PutFile() failed: %v", err)
	}
	layout := Layout{SectorAlign: 512, BlobAlign: 64, TrimAlign: 4096}
	out, err := disc.Rebuild(layout)
	if err != nil {
		t.Fatalf("Rebuild() failed: %v", err)
	}

	reparsed := parseTestDisc(t, out)
	node, _ := reparsed.Lookup("A.BIN")
	src := node.(*FileNode).Source.(OriginalSource)
	if src.Offset != 0x9200 {
		t.Errorf("grown file offset = 0x%X, want 0x9200 (512-aligned past 0x9008)", src.Offset)
	}
	if len(out) != 0xA000 {
		t.Errorf("rebuilt length = 0x%X, want 0xA000 (4096-aligned)", len(out))
	}
}

// The synthetic example: mainOffset=0x3000, tableOffset=0x2000, tableSize=64,
// root plus one 16-byte file "A.BIN" at 0x3000.
func TestRebuild_MinimalExample(t *testing.T) {
	image := make([]byte, 0x4000)
	putBE32(image, dolOffsetField, 0x3000)
	putBE32(image, fstOffsetField, 0x2000)
	putBE32(image, fstSizeField, 64)
	putBE32(image, fstMaxSizeField, 64)

	fst := encodeTestFST([]fstEntry{{name: "A.BIN", a: 0x3000, b: 16}})
	copy(image[0x2000:], fst)
	fillTestData(image, 0x3000, 16, 0x11)

	disc := parseTestDisc(t, image)
	data, err := disc.FileData("A.BIN")
	if err != nil {
		t.Fatalf("FileData(A.BIN) failed: %v", err)
	}
	if !bytes.Equal(data, bytes.Repeat([]byte{0x11}, 16)) {
		t.Errorf("A.BIN content = % X, want 16 bytes of 11", data)
	}

	out, err := disc.Rebuild(DefaultLayout())
	if err != nil {
		t.Fatalf("Rebuild() failed: %v", err)
	}
	header, err := ParseHeader(out)
	if err != nil {
		t.Fatalf("ParseHeader(out) failed: %v", err)
	}
	if header.FSTOffset != 0x2000 {
		t.Errorf("table offset = 0x%X, want 0x2000", header.FSTOffset)
	}
	records, err := ParseFST(out, header.FSTOffset, header.FSTSize)
	if err != nil {
		t.Fatalf("ParseFST(out) failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("rebuilt table has %d records, want 2", len(records))
	}
	if records[1].Path != "A.BIN" || records[1].DataOffset != 0x3000 || records[1].DataSize != 16 {
		t.Errorf("rebuilt A.BIN record = %+v", records[1])
	}
}

// A failed mutation never reaches the rebuilder, and a failing rebuild
// returns no buffer at all.
func TestRebuild_SysGuardLeavesTreeUsable(t *testing.T) {
	disc := parseTestDisc(t, buildTestImage(t))

	if err := disc.PutFile("sys/unknown.bin", []byte{1}); !errors.Is(err, ErrSysName) {
		t.Fatalf("PutFile(sys/unknown.bin) error = %v, want ErrSysName", err)
	}
	out, err := disc.Rebuild(DefaultLayout())
	if err != nil {
		t.Fatalf("Rebuild() after failed mutation failed: %v", err)
	}
	if !bytes.Equal(out, buildTestImage(t)) {
		t.Error("failed sys put must not affect the rebuilt image")
	}
}
