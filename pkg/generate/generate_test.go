package generate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/fuzzgen/pkg/manifest"
	"github.com/arthur-debert/fuzzgen/pkg/source"
)

const generateManifest = `
post_generation_message = """
# {{project_name}} is ready

Run the fuzzer with {{fuzzer}}.
"""

[template]
name = "c"
description = "C library fuzzing"
version = "1.0.0"

[integrations]
supported = ["standalone", "make", "cmake"]
default = "standalone"

[fuzzers]
supported = ["libfuzzer", "afl"]
default = "libfuzzer"

[[fuzzers.options]]
name = "libfuzzer"
display_name = "libFuzzer"
requires = "clang"

[[fuzzers.options]]
name = "afl"
display_name = "AFL++"
requires = "afl-clang-fast"

[file_conventions]
always_include = ["fuzz"]
full_mode_only = ["src", "include", "test"]
template_extensions = [".c", ".h", ".md", ".sh"]
no_template_extensions = [".dict", ".bin"]
executable_extensions = [".sh"]

[[files]]
condition = "integration == 'make'"
paths = ["Makefile"]

[[files]]
condition = "integration == 'cmake'"
paths = ["CMakeLists.txt"]

[[directories]]
path = "fuzz/testsuite/{{target_name}}"
create_empty = true
`

// writeTemplate lays a template tree on disk and returns a Source
// rooted above it.
func writeTemplate(t *testing.T, files map[string]string) source.Source {
	t.Helper()
	root := t.TempDir()
	for path, content := range files {
		abs := filepath.Join(root, "c", filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0644))
	}
	return source.Dir(root)
}

func testSource(t *testing.T) source.Source {
	t.Helper()
	return writeTemplate(t, map[string]string{
		"template.toml":                    generateManifest,
		"Makefile":                         "fuzz:\n\t$(MAKE) -C fuzz {{target_name}}\n",
		"CMakeLists.txt":                   "project({{project_name}})\n",
		"fuzz/src/{{target_name}}.c":       "// {{project_name}} harness for {{target_name}}\n{{#if (eq fuzzer 'afl')}}\n#include <afl.h>\n{{/if}}\nint main(void) { return 0; }\n",
		"fuzz/build.sh":                    "#!/bin/sh\nbuild {{target_name}}\n",
		"fuzz/dictionaries/{{target_name}}.dict": "\"{{literal}}\"\n",
		"fuzz/README.md":                   "{{#if minimal}}{{else}}Full docs for {{project_name}}.{{/if}}\n",
		"src/gps.c":                        "int parse(void) { return 1; }\n",
	})
}

// Test Type: Integration Test
// Full pipeline behavior: rule gating by integration, path rendering,
// verbatim copies, executable bits, and empty directories.
func TestRun(t *testing.T) {
	src := testSource(t)
	m, err := src.Manifest("c")
	require.NoError(t, err)

	t.Run("make integration renders Makefile and skips CMake", func(t *testing.T) {
		ctx, err := m.BuildContext(manifest.ContextOptions{
			ProjectName: "gps", Integration: "make",
		})
		require.NoError(t, err)

		dest := filepath.Join(t.TempDir(), "gps")
		report, err := Run(context.Background(), Request{
			Source: src, Template: "c", Manifest: m, Context: ctx, DestRoot: dest,
		})
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(dest, "Makefile"))
		require.NoError(t, err)
		assert.Contains(t, string(data), "$(MAKE) -C fuzz gps")

		_, err = os.Stat(filepath.Join(dest, "CMakeLists.txt"))
		assert.True(t, os.IsNotExist(err))

		assert.Contains(t, report.Files, "Makefile")
		assert.NotContains(t, report.Files, "CMakeLists.txt")
	})

	t.Run("cmake integration renders CMakeLists", func(t *testing.T) {
		ctx, err := m.BuildContext(manifest.ContextOptions{
			ProjectName: "gps", Integration: "cmake",
		})
		require.NoError(t, err)

		dest := filepath.Join(t.TempDir(), "gps")
		_, err = Run(context.Background(), Request{
			Source: src, Template: "c", Manifest: m, Context: ctx, DestRoot: dest,
		})
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(dest, "CMakeLists.txt"))
		require.NoError(t, err)
		assert.Equal(t, "project(gps)\n", string(data))

		_, err = os.Stat(filepath.Join(dest, "Makefile"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("renders path templates and content", func(t *testing.T) {
		ctx, err := m.BuildContext(manifest.ContextOptions{ProjectName: "gps"})
		require.NoError(t, err)

		dest := filepath.Join(t.TempDir(), "gps")
		_, err = Run(context.Background(), Request{
			Source: src, Template: "c", Manifest: m, Context: ctx, DestRoot: dest,
		})
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(dest, "fuzz", "src", "gps.c"))
		require.NoError(t, err)
		assert.Contains(t, string(data), "// gps harness for gps")
		assert.NotContains(t, string(data), "afl.h", "inactive fuzzer branch must be dropped")
	})

	t.Run("no_template extension keeps markers verbatim", func(t *testing.T) {
		ctx, err := m.BuildContext(manifest.ContextOptions{ProjectName: "gps"})
		require.NoError(t, err)

		dest := filepath.Join(t.TempDir(), "gps")
		_, err = Run(context.Background(), Request{
			Source: src, Template: "c", Manifest: m, Context: ctx, DestRoot: dest,
		})
		require.NoError(t, err)

		// The path is rendered but the .dict content is copied as-is.
		data, err := os.ReadFile(filepath.Join(dest, "fuzz", "dictionaries", "gps.dict"))
		require.NoError(t, err)
		assert.Equal(t, "\"{{literal}}\"\n", string(data))
	})

	t.Run("executable extension sets mode", func(t *testing.T) {
		ctx, err := m.BuildContext(manifest.ContextOptions{ProjectName: "gps"})
		require.NoError(t, err)

		dest := filepath.Join(t.TempDir(), "gps")
		_, err = Run(context.Background(), Request{
			Source: src, Template: "c", Manifest: m, Context: ctx, DestRoot: dest,
		})
		require.NoError(t, err)

		info, err := os.Stat(filepath.Join(dest, "fuzz", "build.sh"))
		require.NoError(t, err)
		assert.NotZero(t, info.Mode()&0111)
	})

	t.Run("creates empty testsuite directory", func(t *testing.T) {
		ctx, err := m.BuildContext(manifest.ContextOptions{ProjectName: "gps"})
		require.NoError(t, err)

		dest := filepath.Join(t.TempDir(), "gps")
		report, err := Run(context.Background(), Request{
			Source: src, Template: "c", Manifest: m, Context: ctx, DestRoot: dest,
		})
		require.NoError(t, err)

		info, err := os.Stat(filepath.Join(dest, "fuzz", "testsuite", "gps"))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Contains(t, report.Dirs, "fuzz/testsuite/gps")
	})

	t.Run("minimal mode drops full-mode-only trees", func(t *testing.T) {
		ctx, err := m.BuildContext(manifest.ContextOptions{ProjectName: "gps", Minimal: true})
		require.NoError(t, err)

		dest := filepath.Join(t.TempDir(), "gps")
		_, err = Run(context.Background(), Request{
			Source: src, Template: "c", Manifest: m, Context: ctx, DestRoot: dest,
		})
		require.NoError(t, err)

		_, err = os.Stat(filepath.Join(dest, "src"))
		assert.True(t, os.IsNotExist(err))
		_, err = os.Stat(filepath.Join(dest, "fuzz", "build.sh"))
		assert.NoError(t, err)
	})

	t.Run("skips files rendered to whitespace", func(t *testing.T) {
		ctx, err := m.BuildContext(manifest.ContextOptions{ProjectName: "gps", Minimal: true})
		require.NoError(t, err)

		dest := filepath.Join(t.TempDir(), "gps")
		report, err := Run(context.Background(), Request{
			Source: src, Template: "c", Manifest: m, Context: ctx, DestRoot: dest,
		})
		require.NoError(t, err)

		// README renders to nothing in minimal mode.
		_, err = os.Stat(filepath.Join(dest, "fuzz", "README.md"))
		assert.True(t, os.IsNotExist(err))
		assert.Contains(t, report.Skipped, "fuzz/README.md")
	})

	t.Run("renders post-generation message", func(t *testing.T) {
		ctx, err := m.BuildContext(manifest.ContextOptions{ProjectName: "gps", Fuzzer: "afl"})
		require.NoError(t, err)

		dest := filepath.Join(t.TempDir(), "gps")
		report, err := Run(context.Background(), Request{
			Source: src, Template: "c", Manifest: m, Context: ctx, DestRoot: dest,
		})
		require.NoError(t, err)

		assert.Contains(t, report.PostGenerationMessage, "# gps is ready")
		assert.Contains(t, report.PostGenerationMessage, "Run the fuzzer with afl.")
	})
}

func TestRunCopiesBinaryContentVerbatim(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "c", "fuzz"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "c", "template.toml"), []byte(generateManifest), 0644))
	seed := []byte{0x7f, 'E', 'L', 'F', 0x00, 0xff}
	require.NoError(t, os.WriteFile(filepath.Join(root, "c", "fuzz", "seed.bin"), seed, 0644))

	src := source.Dir(root)
	m, err := src.Manifest("c")
	require.NoError(t, err)
	ctx, err := m.BuildContext(manifest.ContextOptions{ProjectName: "gps"})
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "gps")
	_, err = Run(context.Background(), Request{
		Source: src, Template: "c", Manifest: m, Context: ctx, DestRoot: dest,
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dest, "fuzz", "seed.bin"))
	require.NoError(t, err)
	assert.Equal(t, seed, data)
}

func TestRunLoadsManifestWhenAbsent(t *testing.T) {
	src := testSource(t)
	m, err := src.Manifest("c")
	require.NoError(t, err)
	ctx, err := m.BuildContext(manifest.ContextOptions{ProjectName: "gps"})
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "gps")
	_, err = Run(context.Background(), Request{
		Source: src, Template: "c", Context: ctx, DestRoot: dest,
	})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dest, "fuzz", "build.sh"))
	assert.NoError(t, err)
}
