package cmd

import (
	"runtime/debug"

	"github.com/spf13/cobra"
)

// version is set at link time with -ldflags "-X gooze.dev/pkg/ninjaturtles/cmd.version=...".
var version string

// buildVersion reports the link-time version, then the module version, then
// the VCS revision the binary was built from.
func buildVersion(info *debug.BuildInfo) string {
	if version != "" {
		return version
	}

	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}

	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			return setting.Value
		}
	}

	return "unknown"
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the version information",
		Long:  "Displays the ninjaturtles build version and the Go version used to build it.",
		Run: func(cmd *cobra.Command, _ []string) {
			info, ok := debug.ReadBuildInfo()
			if !ok {
				cmd.Println("version: unknown")
				return
			}

			cmd.Println("ninjaturtles\t", buildVersion(info))
			cmd.Println("go version\t", info.GoVersion)
		},
	}
}

// versionCmd represents the version command.
var versionCmd = newVersionCmd()

func init() {
	rootCmd.AddCommand(versionCmd)
}
