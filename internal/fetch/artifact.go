package fetch

import (
	"bytes"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/tsukumogami/provision/internal/archive"
	"github.com/tsukumogami/provision/internal/catalog"
)

// ArtifactKind is the type of a downloaded installer file.
type ArtifactKind int

const (
	KindUnknown ArtifactKind = iota
	// KindPackageInstaller is a Windows Installer package (.msi).
	KindPackageInstaller
	// KindSelfExtractingInstaller is an installer executable (.exe).
	KindSelfExtractingInstaller
	// KindUpdatePackage is a signed update package (.msu).
	KindUpdatePackage
	// KindArchive is a zip or compressed tarball.
	KindArchive
)

func (k ArtifactKind) String() string {
	switch k {
	case KindPackageInstaller:
		return "package installer"
	case KindSelfExtractingInstaller:
		return "self-extracting installer"
	case KindUpdatePackage:
		return "update package"
	case KindArchive:
		return "archive"
	default:
		return "unknown"
	}
}

// Artifact is a downloaded and validated installer file. Ownership passes
// to the installer, which removes it when done.
type Artifact struct {
	Path      string
	Size      int64
	Kind      ArtifactKind
	Format    archive.Format // set for KindArchive
	URL       string         // URL the file was actually fetched from
	SHA256    string         // hex digest of the file
	Validated bool
}

// compoundFileMagic starts every OLE compound document, including .msi.
var compoundFileMagic = []byte{0xD0, 0xCF, 0x11, 0xE0}

// installerKinds is the extension allow-list for all descriptors.
var installerKinds = map[string]ArtifactKind{
	".msi": KindPackageInstaller,
	".exe": KindSelfExtractingInstaller,
	".msu": KindUpdatePackage,
}

// urlExtension returns the lowercase extension of the URL path, keeping
// compound archive suffixes such as ".tar.gz" intact.
func urlExtension(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	base := path.Base(p)
	if ext := archive.Extension(base); ext != "" {
		return ext
	}
	return strings.ToLower(path.Ext(base))
}

// classify returns the artifact kind for ext. Archives are only accepted
// for descriptors using the archive strategy.
func classify(d catalog.Descriptor, ext string) (ArtifactKind, archive.Format, error) {
	if kind, ok := installerKinds[ext]; ok {
		return kind, archive.FormatUnknown, nil
	}
	if d.Strategy == catalog.StrategyArchiveExpand {
		if f := archive.DetectFormat("x" + ext); f != archive.FormatUnknown {
			return KindArchive, f, nil
		}
	}
	if ext == "" {
		return KindUnknown, archive.FormatUnknown, fmt.Errorf("download URL has no file extension")
	}
	return KindUnknown, archive.FormatUnknown, fmt.Errorf("file extension %q is not an allowed installer type", ext)
}

// checkSignature verifies the leading bytes of the file against its kind.
// Executables and update packages carry no check here.
func checkSignature(kind ArtifactKind, format archive.Format, header []byte) error {
	switch kind {
	case KindPackageInstaller:
		if !bytes.HasPrefix(header, compoundFileMagic) {
			return fmt.Errorf("not a Windows Installer package: header % X", prefix(header, 4))
		}
	case KindArchive:
		if !archive.HasMagic(format, header) {
			return fmt.Errorf("not a %s archive: header % X", format, prefix(header, len(archive.Magic(format))))
		}
	}
	return nil
}

func prefix(b []byte, n int) []byte {
	if len(b) < n {
		return b
	}
	return b[:n]
}
