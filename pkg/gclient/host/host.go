// Package host resolves the running operating system and CPU to the two
// naming conventions the fetcher needs: the DEPS/condition vocabulary
// (linux|mac|win, x64|ia32|arm64|...) and the registry's vocabulary
// (linux|mac|windows, amd64|386|arm64|...).
//
// Grounded on original_source/src/host.rs.
package host

import "runtime"

// OS returns the host operating system using the DEPS naming scheme.
func OS() string {
	switch runtime.GOOS {
	case "darwin":
		return "mac"
	case "windows":
		return "win"
	default:
		return "linux"
	}
}

// CPU returns the host CPU architecture using the DEPS naming scheme.
func CPU() string {
	switch runtime.GOARCH {
	case "amd64":
		return "x64"
	case "386":
		return "ia32"
	case "arm64":
		return "arm64"
	case "arm":
		return "arm"
	default:
		return runtime.GOARCH
	}
}

// RegistryOS returns the host operating system using the registry's
// ${os} naming scheme.
func RegistryOS() string {
	switch runtime.GOOS {
	case "darwin":
		return "mac"
	case "windows":
		return "windows"
	default:
		return "linux"
	}
}

// RegistryCPU returns the host CPU architecture using the registry's
// ${arch} naming scheme.
func RegistryCPU() string {
	switch runtime.GOARCH {
	case "amd64":
		return "amd64"
	case "386":
		return "386"
	case "arm64":
		return "arm64"
	case "arm":
		return "arm"
	default:
		return runtime.GOARCH
	}
}

// Platform returns the registry's ${platform} value: "<os>-<arch>".
func Platform() string {
	return RegistryOS() + "-" + RegistryCPU()
}

// AllOS is the full list of OS names the "all" sentinel in target_os
// expands to.
var AllOS = []string{"linux", "mac", "win", "ios", "chromeos", "fuchsia", "android"}

// AllCPU is the full list of CPU names the "all" sentinel in target_cpu
// expands to.
var AllCPU = []string{"arm", "arm64", "x86", "mips", "mips64", "ppc", "s390", "x64"}
