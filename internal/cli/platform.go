package cli

import (
	"fmt"

	"github.com/blang/semver"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wasmedge/wasmedgeup/internal/asset"
	"github.com/wasmedge/wasmedgeup/internal/platform"
	"github.com/wasmedge/wasmedgeup/internal/release"
)

var (
	platformOutput  string
	platformRuntime string
)

// platformReport is what `wasmedgeup platform` prints.
type platformReport struct {
	platform.Descriptor `yaml:",inline"`

	Runtime   string `yaml:"runtime,omitempty"`
	Archive   string `yaml:"archive,omitempty"`
	PluginKey string `yaml:"plugin_key,omitempty"`
}

func newPlatformCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "platform",
		Short: "Show the detected platform and the assets it selects",
		Args:  cobra.NoArgs,
		RunE:  runPlatform,
	}

	cmd.Flags().StringVarP(&platformOutput, "output", "o", "text", "Output format: text or yaml")
	cmd.Flags().StringVar(&platformRuntime, "runtime", "", "WasmEdge version to name assets for (default current)")

	return cmd
}

func runPlatform(cmd *cobra.Command, _ []string) error {
	if platformOutput != "text" && platformOutput != "yaml" {
		return fmt.Errorf("unknown output format %q (want text or yaml)", platformOutput)
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	report := platformReport{Descriptor: *a.platform}
	if v, ok, err := a.reportVersion(); err != nil {
		return err
	} else if ok {
		report.Runtime = v.String()
		report.Archive = asset.ArchiveName(v, a.platform)
		key, err := asset.PluginPlatformKey(v, a.platform)
		if err != nil {
			a.logger.Debug("no plugin platform key", "error", err)
		}
		report.PluginKey = key
	}

	out := cmd.OutOrStdout()
	if platformOutput == "yaml" {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encode platform: %w", err)
		}
		return enc.Close()
	}

	row := func(label, value string) {
		if value == "" {
			value = "-"
		}
		fmt.Fprintf(out, "%s %s\n", faintStyle.Render(fmt.Sprintf("%-12s", label)), value)
	}
	row("os", string(report.OS))
	row("arch", string(report.Arch))
	row("libc", string(report.Libc))
	row("os version", report.OSVersion)
	row("distro", report.Distro)
	if report.Runtime != "" {
		row("runtime", report.Runtime)
		row("archive", report.Archive)
		row("plugin key", report.PluginKey)
	}
	return nil
}

// reportVersion picks the version assets are named for: --runtime, then
// the current version. ok is false when neither exists.
func (a *app) reportVersion() (v semver.Version, ok bool, err error) {
	if platformRuntime != "" {
		v, err := release.ParseVersion(platformRuntime)
		return v, err == nil, err
	}
	return a.toolchain.Store().Current()
}
