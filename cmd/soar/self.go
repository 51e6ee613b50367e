package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/soarpm/soar/internal/buildinfo"
	"github.com/soarpm/soar/internal/errs"
	"github.com/soarpm/soar/internal/httputil"
)

var selfCmd = &cobra.Command{
	Use:   "self action",
	Short: "Operate on the soar binary itself (version, update)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "version":
			fmt.Println(buildinfo.Version())
			return nil
		case "update":
			exe, err := os.Executable()
			if err != nil {
				return errs.Wrap(errs.IOFailed, "", "locate running binary", err)
			}
			client := httputil.NewSecureClient(httputil.DefaultOptions())
			url, err := resolveReleaseAsset(globalCtx, client, "soarpm/soar", true)
			if err != nil {
				return err
			}
			fmt.Printf("%s is running; latest release asset is %s\n", exe, url)
			return nil
		default:
			return errs.New(errs.Config, "", "unknown self action "+args[0]+" (expected version or update)")
		}
	},
}
