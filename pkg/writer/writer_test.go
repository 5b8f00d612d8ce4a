package writer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/fuzzgen/pkg/types"
)

// Test Type: Integration Test (writes to a temp directory)
// Verifies the writer materializes files, parent directories, empty
// directories, and executable bits.
func TestWriteTree(t *testing.T) {
	tests := []struct {
		name     string
		files    []types.RenderedFile
		dirs     []types.PlannedDir
		validate func(t *testing.T, root string)
	}{
		{
			name: "writes files with parent directories",
			files: []types.RenderedFile{
				{Dest: "Makefile", Content: []byte("all:\n\ttrue\n")},
				{Dest: "fuzz/src/gps_fuzz.c", Content: []byte("int main(void) { return 0; }\n")},
			},
			validate: func(t *testing.T, root string) {
				data, err := os.ReadFile(filepath.Join(root, "Makefile"))
				require.NoError(t, err)
				assert.Equal(t, "all:\n\ttrue\n", string(data))

				data, err = os.ReadFile(filepath.Join(root, "fuzz", "src", "gps_fuzz.c"))
				require.NoError(t, err)
				assert.Contains(t, string(data), "int main")
			},
		},
		{
			name: "creates empty directories",
			dirs: []types.PlannedDir{
				{Path: "fuzz/testsuite/gps_fuzz"},
			},
			validate: func(t *testing.T, root string) {
				info, err := os.Stat(filepath.Join(root, "fuzz", "testsuite", "gps_fuzz"))
				require.NoError(t, err)
				assert.True(t, info.IsDir())
			},
		},
		{
			name: "sets executable bit",
			files: []types.RenderedFile{
				{Dest: "fuzz/build.sh", Content: []byte("#!/bin/sh\n"), Executable: true},
				{Dest: "fuzz/notes.txt", Content: []byte("notes\n")},
			},
			validate: func(t *testing.T, root string) {
				info, err := os.Stat(filepath.Join(root, "fuzz", "build.sh"))
				require.NoError(t, err)
				assert.NotZero(t, info.Mode()&0111, "build.sh should be executable")

				info, err = os.Stat(filepath.Join(root, "fuzz", "notes.txt"))
				require.NoError(t, err)
				assert.Zero(t, info.Mode()&0111, "notes.txt should not be executable")
			},
		},
		{
			name: "writes binary content verbatim",
			files: []types.RenderedFile{
				{Dest: "fuzz/testsuite/seed.bin", Content: []byte{0x00, 0xff, 0x13, 0x37}},
			},
			validate: func(t *testing.T, root string) {
				data, err := os.ReadFile(filepath.Join(root, "fuzz", "testsuite", "seed.bin"))
				require.NoError(t, err)
				assert.Equal(t, []byte{0x00, 0xff, 0x13, 0x37}, data)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := filepath.Join(t.TempDir(), "project")
			w := New(false)
			err := w.WriteTree(context.Background(), root, tt.files, tt.dirs)
			require.NoError(t, err)
			tt.validate(t, root)
		})
	}
}

func TestWriteTreeDryRun(t *testing.T) {
	root := filepath.Join(t.TempDir(), "project")
	w := New(true)

	err := w.WriteTree(context.Background(), root, []types.RenderedFile{
		{Dest: "Makefile", Content: []byte("all:\n")},
	}, nil)
	require.NoError(t, err)

	_, statErr := os.Stat(root)
	assert.True(t, os.IsNotExist(statErr), "dry run must not touch the filesystem")
}

func TestDirectoryClosureOrdering(t *testing.T) {
	w := New(false)
	dirs := w.directoryClosure("/tmp/proj", []types.RenderedFile{
		{Dest: "fuzz/src/a.c"},
		{Dest: "fuzz/src/b.c"},
		{Dest: "Makefile"},
	}, []types.PlannedDir{{Path: "fuzz/testsuite/a"}})

	// Parents must sort before children so creation order is valid.
	index := make(map[string]int, len(dirs))
	for i, d := range dirs {
		index[d] = i
	}
	assert.Less(t, index["/tmp/proj"], index["/tmp/proj/fuzz"])
	assert.Less(t, index["/tmp/proj/fuzz"], index["/tmp/proj/fuzz/src"])
	assert.Less(t, index["/tmp/proj/fuzz"], index["/tmp/proj/fuzz/testsuite"])
	assert.Less(t, index["/tmp/proj/fuzz/testsuite"], index["/tmp/proj/fuzz/testsuite/a"])

	// No duplicates.
	assert.Len(t, index, len(dirs))
}
