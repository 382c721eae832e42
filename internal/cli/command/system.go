package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/securestore/internal/core/fingerprint"
	"github.com/yndnr/securestore/internal/infra/buildinfo"
)

// FingerprintView shows the current fingerprint and its inputs.
type FingerprintView struct {
	Fingerprint string `json:"fingerprint"`
	Degraded    bool   `json:"degraded"`

	Signals fingerprint.Signals `json:"signals"`
}

// DeviceView shows the persisted device identity.
type DeviceView struct {
	DeviceID  string `json:"device_id"`
	SessionID string `json:"session_id" table:"wide"`
	Provider  string `json:"provider"`
	DeviceDir string `json:"device_dir"`
}

// FingerprintCommand returns the fingerprint command.
func FingerprintCommand() *cli.Command {
	return &cli.Command{
		Name:  "fingerprint",
		Usage: "Show the current environment fingerprint and its signals",
		Action: func(c *cli.Context) error {
			rt, err := EnsureRuntime(c)
			if err != nil {
				return err
			}
			return formatter(c).Format(c.App.Writer, rt.fingerprint())
		},
	}
}

// DeviceIDCommand returns the device-id command.
func DeviceIDCommand() *cli.Command {
	return &cli.Command{
		Name:  "device-id",
		Usage: "Show the persisted device id, creating it on first use",
		Action: func(c *cli.Context) error {
			rt, err := EnsureRuntime(c)
			if err != nil {
				return err
			}
			return formatter(c).Format(c.App.Writer, &DeviceView{
				DeviceID:  rt.Keys.GetOrCreateDeviceID(c.Context),
				SessionID: rt.Keys.Identity().SessionID(),
				Provider:  rt.Provider.Name(),
				DeviceDir: rt.Config.Storage.DeviceDir,
			})
		},
	}
}

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show build information",
		Action: func(c *cli.Context) error {
			return formatter(c).Format(c.App.Writer, buildinfo.Get())
		},
	}
}

func (r *Runtime) fingerprint() *FingerprintView {
	s := r.Fingerprint.Signals()
	return &FingerprintView{
		Fingerprint: r.Fingerprint.Fingerprint(),
		Degraded:    s.Degraded(),
		Signals:     s,
	}
}
