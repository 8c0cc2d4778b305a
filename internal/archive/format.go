// Package archive expands downloaded archives and copies extracted trees
// into their install location.
package archive

import (
	"bytes"
	"strings"
)

// Format identifies an archive container and compression.
type Format string

const (
	FormatUnknown Format = ""
	FormatZip     Format = "zip"
	FormatTar     Format = "tar"
	FormatTarGz   Format = "tar.gz"
	FormatTarXz   Format = "tar.xz"
	FormatTarBz2  Format = "tar.bz2"
	FormatTarZst  Format = "tar.zst"
	FormatTarLz   Format = "tar.lz"
)

// suffixes maps file name endings to formats, longest first.
var suffixes = []struct {
	suffix string
	format Format
}{
	{".tar.gz", FormatTarGz}, {".tgz", FormatTarGz},
	{".tar.xz", FormatTarXz}, {".txz", FormatTarXz},
	{".tar.bz2", FormatTarBz2}, {".tbz2", FormatTarBz2}, {".tbz", FormatTarBz2},
	{".tar.zst", FormatTarZst}, {".tzst", FormatTarZst},
	{".tar.lz", FormatTarLz}, {".tlz", FormatTarLz},
	{".tar", FormatTar},
	{".zip", FormatZip},
}

// DetectFormat derives the format from a file name.
func DetectFormat(name string) Format {
	lower := strings.ToLower(name)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s.suffix) {
			return s.format
		}
	}
	return FormatUnknown
}

// Extension returns the canonical file extension including the dot
// (".zip", ".tar.gz"), or the matched suffix of name when it is an alias
// such as ".tgz".
func Extension(name string) string {
	lower := strings.ToLower(name)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s.suffix) {
			return s.suffix
		}
	}
	return ""
}

// Leading bytes of each compressed format.
var magics = map[Format][]byte{
	FormatZip:    {0x50, 0x4B},
	FormatTarGz:  {0x1F, 0x8B},
	FormatTarXz:  {0xFD, '7', 'z', 'X', 'Z', 0x00},
	FormatTarBz2: {'B', 'Z', 'h'},
	FormatTarZst: {0x28, 0xB5, 0x2F, 0xFD},
	FormatTarLz:  {'L', 'Z', 'I', 'P'},
}

// Magic returns the signature a file of format f must start with, or nil
// when the format has none at offset zero (plain tar).
func Magic(f Format) []byte {
	return magics[f]
}

// HasMagic reports whether header starts with the signature of f.
// Formats without a leading signature always match.
func HasMagic(f Format, header []byte) bool {
	m := magics[f]
	return m == nil || bytes.HasPrefix(header, m)
}
