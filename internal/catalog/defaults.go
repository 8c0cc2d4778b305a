package catalog

import "runtime"

// Arch selects between 64-bit and 32-bit download URLs.
type Arch int

const (
	Arch64 Arch = iota
	Arch32
)

func (a Arch) String() string {
	if a == Arch32 {
		return "32-bit"
	}
	return "64-bit"
}

// HostArch returns the architecture of the running binary.
func HostArch() Arch {
	switch runtime.GOARCH {
	case "386", "arm":
		return Arch32
	default:
		return Arch64
	}
}

// ParseArch maps the user setting ("auto", "64", "32") to an Arch.
func ParseArch(s string) Arch {
	switch s {
	case "32":
		return Arch32
	case "64":
		return Arch64
	default:
		return HostArch()
	}
}

func pick(arch Arch, x64, x86 string) string {
	if arch == Arch32 {
		return x86
	}
	return x64
}

// Default returns the built-in dependency table for arch.
// A fresh slice is returned on each call.
func Default(arch Arch) []Descriptor {
	scrcpyDir := pick(arch, "scrcpy-win64-v3.3.1", "scrcpy-win32-v3.3.1")

	return []Descriptor{
		{
			Name:           "Node.js",
			ProbeCommand:   "node",
			ProbeArgs:      []string{"--version"},
			InstallPageURL: "https://nodejs.org/",
			DownloadURL: pick(arch,
				"https://nodejs.org/dist/v20.11.0/node-v20.11.0-x64.msi",
				"https://nodejs.org/dist/v20.11.0/node-v20.11.0-x86.msi"),
			MirrorURLs: []string{pick(arch,
				"https://nodejs.org/download/release/v20.11.0/node-v20.11.0-x64.msi",
				"https://nodejs.org/download/release/v20.11.0/node-v20.11.0-x86.msi")},
			KnownInstallPaths: []string{
				`%ProgramFiles%\nodejs\node.exe`,
				`%ProgramFiles(x86)%\nodejs\node.exe`,
			},
			Strategy:   StrategyPackageInstaller,
			SilentArgs: []string{"/quiet", "/norestart"},
		},
		{
			Name:           "Git",
			ProbeCommand:   "git",
			ProbeArgs:      []string{"--version"},
			InstallPageURL: "https://git-scm.com/",
			DownloadURL: pick(arch,
				"https://github.com/git-for-windows/git/releases/download/v2.43.0.windows.1/Git-2.43.0-64-bit.exe",
				"https://github.com/git-for-windows/git/releases/download/v2.43.0.windows.1/Git-2.43.0-32-bit.exe"),
			KnownInstallPaths: []string{
				`%ProgramFiles%\Git\bin\git.exe`,
				`%ProgramFiles(x86)%\Git\bin\git.exe`,
			},
			Strategy:   StrategyPackageInstaller,
			SilentArgs: []string{"/VERYSILENT", "/NORESTART", "/SP-", "/CLOSEAPPLICATIONS", "/RESTARTAPPLICATIONS"},
			Release: &ReleaseSource{
				Repo:         "git-for-windows/git",
				AssetPattern: pick(arch, "Git-*-64-bit.exe", "Git-*-32-bit.exe"),
			},
		},
		{
			Name:           "Android SDK Tools",
			ProbeCommand:   "adb",
			ProbeArgs:      []string{"version"},
			InstallPageURL: "https://developer.android.com/studio#command-tools",
			DownloadURL:    "https://dl.google.com/android/repository/platform-tools-latest-windows.zip",
			KnownInstallPaths: []string{
				`%ProgramFiles%\Android\Sdk\platform-tools\adb.exe`,
				`%ANDROID_HOME%\platform-tools\adb.exe`,
				`%ANDROID_SDK_ROOT%\platform-tools\adb.exe`,
				`%LOCALAPPDATA%\Android\Sdk\platform-tools\adb.exe`,
				`%ProgramFiles%\Android\Android Studio\Sdk\platform-tools\adb.exe`,
				`%ProgramFiles(x86)%\Android\Android Studio\Sdk\platform-tools\adb.exe`,
			},
			Strategy: StrategyArchiveExpand,
			Archive: &ArchiveLayout{
				InstallSubdir: "Android/Sdk",
				BinSubdir:     "platform-tools",
				HomeVars:      []string{"ANDROID_HOME", "ANDROID_SDK_ROOT"},
			},
		},
		{
			Name:           "scrcpy",
			ProbeCommand:   "scrcpy",
			ProbeArgs:      []string{"--version"},
			InstallPageURL: "https://github.com/Genymobile/scrcpy/releases",
			DownloadURL:    "https://github.com/Genymobile/scrcpy/releases/download/v3.3.1/" + scrcpyDir + ".zip",
			KnownInstallPaths: []string{
				`%ProgramFiles%\scrcpy\scrcpy-win64-v3.3.1\scrcpy.exe`,
				`%ProgramFiles%\scrcpy\scrcpy-win32-v3.3.1\scrcpy.exe`,
				`%SCRCPY_HOME%\scrcpy-win64-v3.3.1\scrcpy.exe`,
				`%SCRCPY_HOME%\scrcpy-win32-v3.3.1\scrcpy.exe`,
				`%SCRCPY_HOME%\scrcpy.exe`,
			},
			Strategy: StrategyArchiveExpand,
			Archive: &ArchiveLayout{
				InstallSubdir:         "scrcpy",
				BinSubdir:             scrcpyDir,
				BinFallbackFirstChild: true,
				HomeVars:              []string{"SCRCPY_HOME"},
			},
			Release: &ReleaseSource{
				Repo:         "Genymobile/scrcpy",
				AssetPattern: pick(arch, "scrcpy-win64-v*.zip", "scrcpy-win32-v*.zip"),
			},
		},
		{
			Name:           "Nmap",
			ProbeCommand:   "nmap",
			ProbeArgs:      []string{"--version"},
			InstallPageURL: "https://nmap.org/",
			DownloadURL:    "https://nmap.org/dist/nmap-7.94-setup.exe",
			KnownInstallPaths: []string{
				`%ProgramFiles%\Nmap\nmap.exe`,
				`%ProgramFiles(x86)%\Nmap\nmap.exe`,
				`%SystemDrive%\Nmap\nmap.exe`,
			},
			// The bundled packet-capture driver needs an interactive install.
			Strategy: StrategyManualFallback,
		},
	}
}
