package testutil

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestNewTestConfig(t *testing.T) {
	cfg := NewTestConfig(t)
	AssertFileExists(t, cfg.HomeDir)
	AssertFileExists(t, cfg.KeyCacheDir)
	AssertFileNotExists(t, cfg.ProgramFilesDir)
	if filepath.Dir(cfg.InstallerTempDir) != cfg.ExtractRoot {
		t.Errorf("InstallerTempDir %q should live in ExtractRoot %q", cfg.InstallerTempDir, cfg.ExtractRoot)
	}
}

func TestRunnerRecords(t *testing.T) {
	r := &Runner{Err: errors.New("boom")}
	if _, err := r.Run(context.Background(), "msiexec", "/i", "a.msi"); err == nil {
		t.Error("expected configured error")
	}
	_ = r.Launch("setup.exe")
	if len(r.Runs) != 1 || r.Runs[0].Name != "msiexec" || len(r.Runs[0].Args) != 2 {
		t.Errorf("Runs = %+v", r.Runs)
	}
	if len(r.Launches) != 1 || r.Launches[0].Name != "setup.exe" {
		t.Errorf("Launches = %+v", r.Launches)
	}
}

func TestZipBytes(t *testing.T) {
	data := ZipBytes(t, map[string]string{"b/tool.exe": "tool", "a.txt": "a"})
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	if len(zr.File) != 2 || zr.File[0].Name != "a.txt" {
		t.Fatalf("unexpected entries: %v", zr.File)
	}
	rc, err := zr.File[1].Open()
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	content, _ := io.ReadAll(rc)
	if string(content) != "tool" {
		t.Errorf("content = %q", content)
	}
}

func TestFakeMSI(t *testing.T) {
	b := FakeMSI(16)
	if len(b) != 16 || b[0] != 0xD0 || b[7] != 0xE1 {
		t.Errorf("FakeMSI = % x", b)
	}

	path := filepath.Join(t.TempDir(), "x")
	if FileExists(path) {
		t.Error("FileExists on missing path")
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		t.Fatal(err)
	}
	AssertFileExists(t, path)
}
