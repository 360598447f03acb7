package shell

import (
	"fmt"
	"runtime"
	"strings"
)

// Family identifies an operating system family for shell selection.
type Family int

const (
	// FamilyPOSIX covers Linux, the BSDs, macOS and other Unix-likes.
	FamilyPOSIX Family = iota
	// FamilyWindows covers Windows.
	FamilyWindows
)

// String returns a human-readable family name.
func (f Family) String() string {
	switch f {
	case FamilyPOSIX:
		return "posix"
	case FamilyWindows:
		return "windows"
	default:
		return fmt.Sprintf("unknown(%d)", int(f))
	}
}

// HostFamily returns the family of the running operating system.
func HostFamily() Family {
	return familyOf(runtime.GOOS)
}

func familyOf(goos string) Family {
	if goos == "windows" {
		return FamilyWindows
	}
	return FamilyPOSIX
}

// ParseFamily resolves a configuration name to a family.
// "auto" and "" resolve to the host family.
func ParseFamily(name string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return HostFamily(), nil
	case "posix", "unix", "sh":
		return FamilyPOSIX, nil
	case "windows", "cmd":
		return FamilyWindows, nil
	default:
		return FamilyPOSIX, fmt.Errorf("shell: unknown family %q", name)
	}
}
