package sack

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// NoArch is the architecture of architecture independent packages.
const NoArch = "noarch"

// machineArch maps kernel machine names to rpm base architectures where they
// differ.
var machineArch = map[string]string{
	"i386":   "i686",
	"i486":   "i686",
	"i586":   "i686",
	"armv7l": "armv7hl",
	"arm64":  "aarch64",
	"amd64":  "x86_64",
}

// DetectArch returns the rpm architecture of the running kernel.
func DetectArch() (string, error) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return "", errors.Wrap(err, "uname")
	}
	return rpmArch(unix.ByteSliceToString(u.Machine[:])), nil
}

func rpmArch(machine string) string {
	if a, ok := machineArch[machine]; ok {
		return a
	}
	return machine
}
