package main

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/soarpm/soar/internal/errs"
)

var runYes bool

var runCmd = &cobra.Command{
	Use:                "run command [args...]",
	Short:              "Run an installed launcher, prompting for confirmation unless --yes",
	Args:               cobra.MinimumNArgs(1),
	DisableFlagParsing: false,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		name := args[0]
		launcherPath := filepath.Join(a.cfg.BinDir, name)
		if _, err := os.Stat(launcherPath); err != nil {
			return errs.New(errs.NotFound, name, "no launcher at "+launcherPath)
		}

		if !runYes {
			fmt.Printf("Run %s? [y/N] ", launcherPath)
			reader := bufio.NewReader(os.Stdin)
			line, _ := reader.ReadString('\n')
			if line != "y\n" && line != "Y\n" {
				fmt.Println("aborted")
				return nil
			}
		}

		child := exec.CommandContext(globalCtx, launcherPath, args[1:]...)
		child.Stdin = os.Stdin
		child.Stdout = os.Stdout
		child.Stderr = os.Stderr
		runErr := child.Run()

		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitWithCode(exitErr.ExitCode())
		}
		if runErr != nil {
			return errs.Wrap(errs.IOFailed, name, "launch", runErr)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVarP(&runYes, "yes", "y", false, "skip the confirmation prompt")
}
