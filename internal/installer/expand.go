package installer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tsukumogami/provision/internal/archive"
	"github.com/tsukumogami/provision/internal/catalog"
	"github.com/tsukumogami/provision/internal/fetch"
	"github.com/tsukumogami/provision/internal/log"
	"github.com/tsukumogami/provision/internal/progress"
	"github.com/tsukumogami/provision/internal/sysenv"
)

// expandArchive extracts the artifact, copies it under program files and
// configures PATH and the home variables. Success is not re-verified by a
// probe: the new PATH is only visible to processes started later.
func (i *Installer) expandArchive(d catalog.Descriptor, art *fetch.Artifact, r progress.Reporter, logger log.Logger) Outcome {
	layout := d.Archive
	if layout == nil {
		return Failed(d.Name, ExitCodeNotRun, fmt.Errorf("install %s: %w: missing archive layout", d.Name, catalog.ErrInvalidDescriptor))
	}
	fail := func(format string, args ...any) Outcome {
		err := fmt.Errorf("install %s: "+format, append([]any{d.Name}, args...)...)
		r.Report(err.Error())
		return Failed(d.Name, ExitCodeNotRun, err)
	}

	extractDir := i.extractDir(d.Slug())
	cleaned := false
	cleanup := func() {
		if cleaned {
			return
		}
		cleaned = true
		if err := os.RemoveAll(extractDir); err != nil {
			logger.Debug("failed to remove extraction directory", "path", extractDir, "error", err)
			return
		}
		r.Report(fmt.Sprintf("Removed temporary files for %s", d.Name))
	}
	defer cleanup()
	if err := os.RemoveAll(extractDir); err != nil {
		return fail("failed to clear %s: %w", extractDir, err)
	}

	r.Report(fmt.Sprintf("Extracting %s...", d.Name))
	if err := archive.Extract(art.Path, extractDir); err != nil {
		return fail("extraction failed: %w", err)
	}

	installDir := filepath.Join(i.programFiles, filepath.FromSlash(layout.InstallSubdir))
	r.Report(fmt.Sprintf("Copying %s files to %s...", d.Name, installDir))
	n, err := archive.CopyTree(extractDir, installDir)
	if err != nil {
		return fail("copy to %s failed: %w", installDir, err)
	}
	logger.Info("copied files", "count", n, "dest", installDir)

	binDir, fallback := resolveBinDir(extractDir, installDir, layout)
	if fallback {
		r.Report(fmt.Sprintf("Using %s as the %s executable directory", binDir, d.Name))
	}

	r.Report(fmt.Sprintf("Configuring environment variables for %s...", d.Name))
	var notes []string
	added, err := sysenv.AppendPath(i.env, i.rules, binDir)
	if err != nil {
		return fail("failed to update %s: %w", sysenv.PathVar, err)
	}
	if added {
		notes = append(notes, fmt.Sprintf("added %s to %s", binDir, sysenv.PathVar))
	} else {
		notes = append(notes, fmt.Sprintf("%s already on %s", binDir, sysenv.PathVar))
	}
	for _, name := range layout.HomeVars {
		if err := i.env.Set(name, installDir); err != nil {
			return fail("failed to set %s: %w", name, err)
		}
		notes = append(notes, fmt.Sprintf("%s=%s", name, installDir))
	}

	cleanup()
	r.Report(fmt.Sprintf("%s installed; open a new terminal to pick up the environment changes", d.Name))

	return Outcome{
		Success:   true,
		ExitCode:  0,
		LogOutput: fmt.Sprintf("installed %d files to %s; %s", n, installDir, strings.Join(notes, "; ")),
	}
}

// resolveBinDir picks the executable directory under installDir by looking
// at what was extracted, so directories left by earlier releases are never
// chosen. BinSubdir wins when the archive contains it. Otherwise, when
// allowed, the archive's first top-level directory is used and fallback is
// true. Without a fallback the configured path is returned as is, or the
// install dir when BinSubdir is empty.
func resolveBinDir(extractDir, installDir string, layout *catalog.ArchiveLayout) (dir string, fallback bool) {
	configured := installDir
	if layout.BinSubdir != "" {
		sub := filepath.FromSlash(layout.BinSubdir)
		configured = filepath.Join(installDir, sub)
		if info, err := os.Stat(filepath.Join(extractDir, sub)); err == nil && info.IsDir() {
			return configured, false
		}
	}
	if layout.BinFallbackFirstChild {
		if entries, err := os.ReadDir(extractDir); err == nil {
			for _, e := range entries {
				if e.IsDir() {
					return filepath.Join(installDir, e.Name()), true
				}
			}
		}
	}
	return configured, false
}
