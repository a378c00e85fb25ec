package daemon

import (
	"fmt"

	hostver "github.com/hashicorp/go-version"
	"github.com/shirou/gopsutil/host"
)

// minKernelVersion is the daemon's advisory floor (spec.md §6's CLI
// surface note): TIOCSTI injection and the rest of this daemon are
// only validated on 5.4+.
const minKernelVersion = "5.4.0"

// CheckKernelVersion reports the host kernel release and whether it
// meets minKernelVersion. It never fails startup: an old or
// unparsable kernel version is a warning the caller logs, not a fatal
// error (gopsutil/go-version are both already in the teacher's
// go.mod).
func CheckKernelVersion() (release string, ok bool, err error) {
	info, err := host.Info()
	if err != nil {
		return "", false, fmt.Errorf("reading host info: %w", err)
	}

	have, err := hostver.NewVersion(info.KernelVersion)
	if err != nil {
		return info.KernelVersion, false, fmt.Errorf("parsing kernel version %q: %w", info.KernelVersion, err)
	}
	want, _ := hostver.NewVersion(minKernelVersion)

	return info.KernelVersion, have.GreaterThanOrEqual(want), nil
}
