// Package supervise holds the process-level checks that decide when the
// helper should stop on its own: orphaning and child-termination signals.
package supervise

import (
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultSettle is how long child signals are still attributed to the
// helper's own subprocesses after the last one was reaped.
const DefaultSettle = 500 * time.Millisecond

// ShutdownSignals are the signals that end the helper with a clean exit.
var ShutdownSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGHUP,
	syscall.SIGPIPE,
	syscall.SIGCHLD,
	syscall.SIGTERM,
}

// ChildGuard tracks subprocesses started by the helper so that the SIGCHLD
// they cause is not mistaken for a request to shut down.
type ChildGuard struct {
	mu      sync.Mutex
	running int
	last    time.Time
	settle  time.Duration
	now     func() time.Time
}

// NewChildGuard creates a guard which keeps attributing child signals to the
// helper for settle after the last tracked child exits.
func NewChildGuard(settle time.Duration) *ChildGuard {
	return &ChildGuard{settle: settle, now: time.Now}
}

// Hold marks a subprocess as running. The returned func releases it and must
// be called once the subprocess has been waited on.
func (g *ChildGuard) Hold() func() {
	g.mu.Lock()
	g.running++
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			g.running--
			g.last = g.now()
			g.mu.Unlock()
		})
	}
}

// Owned reports whether a child signal received now belongs to one of the
// helper's subprocesses.
func (g *ChildGuard) Owned() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running > 0 {
		return true
	}
	return !g.last.IsZero() && g.now().Sub(g.last) < g.settle
}

// Filter drops SIGCHLD while it is owned by the guard; any other signal
// passes through.
func (g *ChildGuard) Filter(sig os.Signal) bool {
	return sig == syscall.SIGCHLD && g.Owned()
}

// Orphaned reports whether the helper lost the parent it was started by:
// either it was reparented to init or to some other reaper.
func Orphaned(startPPID int) bool {
	ppid := unix.Getppid()
	return ppid == 1 || ppid != startPPID
}
