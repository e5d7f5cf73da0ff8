// Package sdnotify reports daemon lifecycle to systemd when running
// under a Type=notify unit. Outside systemd every call is a no-op.
package sdnotify

import (
	"github.com/coreos/go-systemd/v22/daemon"
)

// Ready tells systemd the daemon finished starting up.
func Ready() {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
}

// Stopping tells systemd the daemon began shutting down.
func Stopping() {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
}
