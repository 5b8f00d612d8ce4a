// Package writer materializes a rendered project tree on disk. Writes
// go through a synthfs operation pipeline: directory creations first,
// then file writes, validated as a batch before anything touches the
// filesystem.
package writer

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"time"

	"github.com/arthur-debert/synthfs/pkg/synthfs"
	"github.com/arthur-debert/synthfs/pkg/synthfs/core"
	"github.com/arthur-debert/synthfs/pkg/synthfs/filesystem"
	"github.com/arthur-debert/synthfs/pkg/synthfs/operations"
	"github.com/rs/zerolog"

	"github.com/arthur-debert/fuzzgen/pkg/errors"
	"github.com/arthur-debert/fuzzgen/pkg/logging"
	"github.com/arthur-debert/fuzzgen/pkg/types"
)

const (
	fileMode       = fs.FileMode(0644)
	executableMode = fs.FileMode(0755)
	dirMode        = fs.FileMode(0755)
)

// Writer executes tree-write batches against the OS filesystem.
type Writer struct {
	logger     zerolog.Logger
	filesystem synthfs.FileSystem
	dryRun     bool
}

// New creates a Writer. In dry-run mode operations are logged instead
// of executed.
func New(dryRun bool) *Writer {
	return &Writer{
		logger:     logging.GetLogger("writer"),
		filesystem: filesystem.NewOSFileSystem("/"),
		dryRun:     dryRun,
	}
}

// WriteTree writes the rendered files and empty directories under root.
// All parent directories are created; executable files get 0755. The
// batch fails fast on the first error, leaving a partial tree — callers
// generate into fresh, disposable destinations.
func (w *Writer) WriteTree(ctx context.Context, root string, files []types.RenderedFile, dirs []types.PlannedDir) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return errors.Wrapf(err, errors.ErrInvalidInput, "invalid destination root %q", root)
	}

	if w.dryRun {
		w.logDryRun(absRoot, files, dirs)
		return nil
	}

	var ops []synthfs.Operation
	for _, dir := range w.directoryClosure(absRoot, files, dirs) {
		op, err := w.createDirOp(dir)
		if err != nil {
			return err
		}
		ops = append(ops, op)
	}
	for _, f := range files {
		op, err := w.createFileOp(filepath.Join(absRoot, f.Dest), f)
		if err != nil {
			return err
		}
		ops = append(ops, op)
	}

	pipeline := synthfs.NewMemPipeline()
	for _, op := range ops {
		if err := pipeline.Add(op); err != nil {
			return errors.Wrap(err, errors.ErrGenerateIo, "failed to build write pipeline")
		}
	}

	executor := synthfs.NewExecutor()
	w.logger.Debug().
		Str("root", absRoot).
		Int("operations", len(ops)).
		Msg("Executing write pipeline")

	result := executor.Run(ctx, pipeline, w.filesystem)
	if result.GetError() != nil {
		return errors.Wrap(result.GetError(), errors.ErrGenerateIo, "failed to write project tree")
	}
	return nil
}

// directoryClosure collects every directory the batch needs: the root,
// each planned empty directory, and each file's parent chain, sorted so
// parents precede children.
func (w *Writer) directoryClosure(absRoot string, files []types.RenderedFile, dirs []types.PlannedDir) []string {
	need := map[string]bool{absRoot: true}

	addChain := func(dir string) {
		for dir != "/" && dir != "." && !need[dir] {
			need[dir] = true
			dir = filepath.Dir(dir)
		}
	}
	for _, d := range dirs {
		addChain(filepath.Join(absRoot, d.Path))
	}
	for _, f := range files {
		addChain(filepath.Dir(filepath.Join(absRoot, f.Dest)))
	}

	sorted := make([]string, 0, len(need))
	for dir := range need {
		sorted = append(sorted, dir)
	}
	sort.Strings(sorted)
	return sorted
}

func (w *Writer) createDirOp(absPath string) (synthfs.Operation, error) {
	relPath, err := filepath.Rel("/", absPath)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, "failed to convert path: %s", absPath)
	}

	opID := core.OperationID(fmt.Sprintf("create-dir-%s", absPath))
	createOp := operations.NewCreateDirectoryOperation(opID, relPath)
	createOp.SetItem(&directoryItem{path: relPath, mode: dirMode})
	return synthfs.NewOperationsPackageAdapter(createOp), nil
}

func (w *Writer) createFileOp(absPath string, f types.RenderedFile) (synthfs.Operation, error) {
	relPath, err := filepath.Rel("/", absPath)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, "failed to convert path: %s", absPath)
	}

	mode := fileMode
	if f.Executable {
		mode = executableMode
	}

	w.logger.Trace().
		Str("path", absPath).
		Str("mode", mode.String()).
		Int("contentLen", len(f.Content)).
		Msg("Planning file write")

	opID := core.OperationID(fmt.Sprintf("write-file-%s", absPath))
	createOp := operations.NewCreateFileOperation(opID, relPath)
	createOp.SetItem(&fileItem{path: relPath, content: f.Content, mode: mode})
	return synthfs.NewOperationsPackageAdapter(createOp), nil
}

func (w *Writer) logDryRun(absRoot string, files []types.RenderedFile, dirs []types.PlannedDir) {
	for _, d := range dirs {
		w.logger.Info().Str("dir", filepath.Join(absRoot, d.Path)).Msg("Would create directory")
	}
	for _, f := range files {
		w.logger.Info().
			Str("target", filepath.Join(absRoot, f.Dest)).
			Bool("executable", f.Executable).
			Int("contentLen", len(f.Content)).
			Msg("Would write file")
	}
}

// Item types for synthfs operations

// fileItem implements the interface needed for file operations
type fileItem struct {
	path    string
	content []byte
	mode    fs.FileMode
}

func (f *fileItem) Path() string       { return f.path }
func (f *fileItem) Type() string       { return "file" }
func (f *fileItem) Content() []byte    { return f.content }
func (f *fileItem) Mode() fs.FileMode  { return f.mode }
func (f *fileItem) IsDir() bool        { return false }
func (f *fileItem) ModTime() time.Time { return time.Now() }
func (f *fileItem) Size() int64        { return int64(len(f.content)) }

// directoryItem implements the interface needed for directory operations
type directoryItem struct {
	path string
	mode fs.FileMode
}

func (d *directoryItem) Path() string       { return d.path }
func (d *directoryItem) Type() string       { return "directory" }
func (d *directoryItem) Mode() fs.FileMode  { return d.mode }
func (d *directoryItem) IsDir() bool        { return true }
func (d *directoryItem) ModTime() time.Time { return time.Now() }
func (d *directoryItem) Size() int64        { return 0 }
