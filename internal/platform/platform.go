// Package platform selects the prebuilt protoc executable for the host.
package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrUnsupported means no prebuilt compiler exists for the host.
var ErrUnsupported = errors.New("unsupported platform")

// Host identifies an operating system and CPU architecture using the names
// of the bundled executables (os: linux, macosx, windows; arch: x64, x86).
type Host struct {
	OS   string
	Arch string
}

func (h Host) String() string {
	return h.OS + "/" + h.Arch
}

// compilers lists the executables shipped next to protocli.
var compilers = map[Host]string{
	{OS: "linux", Arch: "x64"}:   "protoc_linux_x64",
	{OS: "linux", Arch: "x86"}:   "protoc_linux_x86",
	{OS: "macosx", Arch: "x64"}:  "protoc_macosx_x64",
	{OS: "macosx", Arch: "x86"}:  "protoc_macosx_x86",
	{OS: "windows", Arch: "x64"}: "protoc_windows_x64.exe",
	{OS: "windows", Arch: "x86"}: "protoc_windows_x86.exe",
}

// CompilerName returns the executable name for h.
func CompilerName(h Host) (string, error) {
	name, ok := compilers[h]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupported, h)
	}
	return name, nil
}

// Detect reports the host, normalizing Go and uname names to the table's.
func Detect() (Host, error) {
	var h Host
	switch runtime.GOOS {
	case "linux":
		h.OS = "linux"
	case "darwin":
		h.OS = "macosx"
	case "windows":
		h.OS = "windows"
	default:
		return Host{}, fmt.Errorf("%w: %s", ErrUnsupported, runtime.GOOS)
	}

	machine, err := machineArch()
	if err != nil {
		return Host{}, err
	}
	arch, ok := normalizeArch(machine)
	if !ok {
		return Host{}, fmt.Errorf("%w: %s/%s", ErrUnsupported, h.OS, machine)
	}
	h.Arch = arch
	return h, nil
}

func normalizeArch(machine string) (string, bool) {
	switch strings.ToLower(machine) {
	case "x86_64", "amd64", "x64":
		return "x64", true
	case "i386", "i486", "i586", "i686", "x86", "386":
		return "x86", true
	default:
		return "", false
	}
}

// ResolveCompiler returns the compiler path. A non-empty override wins;
// otherwise the host's executable is looked up next to the running binary.
func ResolveCompiler(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	host, err := Detect()
	if err != nil {
		return "", err
	}
	name, err := CompilerName(host)
	if err != nil {
		return "", err
	}
	self, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	return filepath.ToSlash(filepath.Join(filepath.Dir(self), name)), nil
}
