package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func tarBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0755,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func compress(t *testing.T, data []byte, newWriter func(io.Writer) (io.WriteCloser, error)) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := newWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestExtract_Zip(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "platform-tools.zip")
	writeZip(t, archivePath, map[string]string{
		"platform-tools/adb.exe":           "adb",
		"platform-tools/lib64/libc++.so":   "lib",
		`platform-tools\AdbWinApi.dll`:     "dll",
		"platform-tools/source.properties": "Pkg.Revision=35.0.1",
	})

	dest := filepath.Join(dir, "out")
	require.NoError(t, Extract(archivePath, dest))

	data, err := os.ReadFile(filepath.Join(dest, "platform-tools", "adb.exe"))
	require.NoError(t, err)
	assert.Equal(t, "adb", string(data))
	assert.FileExists(t, filepath.Join(dest, "platform-tools", "lib64", "libc++.so"))
	assert.FileExists(t, filepath.Join(dest, "platform-tools", "AdbWinApi.dll"))
}

func TestExtract_TarVariants(t *testing.T) {
	payload := tarBytes(t, map[string]string{"scrcpy-v3/scrcpy.exe": "scrcpy"})

	tests := []struct {
		name string
		data []byte
	}{
		{"tool.tar", payload},
		{"tool.tar.gz", compress(t, payload, func(w io.Writer) (io.WriteCloser, error) { return gzip.NewWriter(w), nil })},
		{"tool.tar.xz", compress(t, payload, func(w io.Writer) (io.WriteCloser, error) { return xz.NewWriter(w) })},
		{"tool.tar.zst", compress(t, payload, func(w io.Writer) (io.WriteCloser, error) { return zstd.NewWriter(w) })},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			archivePath := filepath.Join(dir, tt.name)
			require.NoError(t, os.WriteFile(archivePath, tt.data, 0644))

			f := DetectFormat(tt.name)
			assert.True(t, HasMagic(f, tt.data), "magic mismatch for %s", f)

			dest := filepath.Join(dir, "out")
			require.NoError(t, Extract(archivePath, dest))
			data, err := os.ReadFile(filepath.Join(dest, "scrcpy-v3", "scrcpy.exe"))
			require.NoError(t, err)
			assert.Equal(t, "scrcpy", string(data))
		})
	}
}

func TestExtract_RejectsTraversal(t *testing.T) {
	dir := t.TempDir()

	zipPath := filepath.Join(dir, "evil.zip")
	writeZip(t, zipPath, map[string]string{"../../escaped.txt": "x"})
	err := Extract(zipPath, filepath.Join(dir, "zip-out"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes")

	tarPath := filepath.Join(dir, "evil.tar")
	require.NoError(t, os.WriteFile(tarPath, tarBytes(t, map[string]string{"../escaped.txt": "x"}), 0644))
	err = Extract(tarPath, filepath.Join(dir, "tar-out"))
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "escaped.txt"))
}

func TestExtract_UnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tool.rar")
	require.NoError(t, os.WriteFile(path, []byte("Rar!"), 0644))
	err := Extract(path, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}

func TestExtract_CorruptZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tool.zip")
	require.NoError(t, os.WriteFile(path, []byte("PK not really a zip"), 0644))
	assert.Error(t, Extract(path, t.TempDir()))
}

func TestDetectFormat(t *testing.T) {
	tests := map[string]Format{
		"scrcpy-win64-v3.3.1.zip": FormatZip,
		"TOOL.ZIP":                FormatZip,
		"a.tar.gz":                FormatTarGz,
		"a.tgz":                   FormatTarGz,
		"a.tar.xz":                FormatTarXz,
		"a.tar.bz2":               FormatTarBz2,
		"a.tar.zst":               FormatTarZst,
		"a.tar.lz":                FormatTarLz,
		"a.tar":                   FormatTar,
		"node.msi":                FormatUnknown,
		"zip":                     FormatUnknown,
	}
	for name, want := range tests {
		assert.Equal(t, want, DetectFormat(name), name)
	}
	assert.Equal(t, ".tgz", Extension("x.TGZ"))
	assert.Equal(t, "", Extension("x.exe"))
}

func TestHasMagic(t *testing.T) {
	assert.True(t, HasMagic(FormatZip, []byte{0x50, 0x4B, 0x03, 0x04}))
	assert.False(t, HasMagic(FormatZip, []byte("hello")))
	assert.False(t, HasMagic(FormatTarXz, []byte{0xFD, '7'}))
	assert.True(t, HasMagic(FormatTar, []byte("anything")))
	assert.Nil(t, Magic(FormatTar))
}

func TestCopyTree(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "scrcpy-win64-v3.3.1"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "scrcpy-win64-v3.3.1", "scrcpy.exe"), []byte("new"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "README"), []byte("readme"), 0644))

	dst := filepath.Join(t.TempDir(), "Program Files", "scrcpy")
	require.NoError(t, os.MkdirAll(filepath.Join(dst, "scrcpy-win64-v3.3.1"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dst, "scrcpy-win64-v3.3.1", "scrcpy.exe"), []byte("old-and-longer"), 0755))

	n, err := CopyTree(src, dst)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := os.ReadFile(filepath.Join(dst, "scrcpy-win64-v3.3.1", "scrcpy.exe"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(data), "existing files are overwritten")
	assert.FileExists(t, filepath.Join(dst, "README"))
}

func TestCopyTree_SourceMustBeDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	_, err := CopyTree(file, t.TempDir())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not a directory"))

	_, err = CopyTree(filepath.Join(t.TempDir(), "missing"), t.TempDir())
	assert.Error(t, err)
}
