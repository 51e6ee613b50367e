package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/soarpm/soar/internal/color"
	"github.com/soarpm/soar/internal/errs"
	"github.com/soarpm/soar/internal/fetcher"
	"github.com/soarpm/soar/internal/lifecycle"
	"github.com/soarpm/soar/internal/model"
	"github.com/soarpm/soar/internal/progress"
)

var (
	installForce bool
	installYes   bool

	installPortable, installPortableHome, installPortableConfig *string
)

var installCmd = &cobra.Command{
	Use:   "install packages...",
	Short: "Install one or more packages",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInstall(cmd, args, installPortable, installPortableHome, installPortableConfig)
	},
}

func init() {
	installCmd.Flags().BoolVar(&installForce, "force", false, "reinstall even if the same version is already active")
	installCmd.Flags().BoolVarP(&installYes, "yes", "y", false, "pick the first match automatically on an ambiguous query")
	installPortable, installPortableHome, installPortableConfig = addPortableFlags(installCmd)
}

func runInstall(cmd *cobra.Command, args []string, pPortable, pHome, pConfig *string) error {
	opts := portableOptionsFromFlags(cmd, pPortable, pHome, pConfig)
	if err := opts.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "soar:", err)
		exitWithCode(ExitUsage)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	resolver, closeCatalogs, err := a.openCatalogs(globalCtx)
	if err != nil {
		return err
	}
	defer closeCatalogs()

	var targets []lifecycle.Target
	failed := false
	for _, raw := range args {
		pkg, err := resolver.Resolve(globalCtx, raw, installYes, terminalSelect)
		if err != nil {
			fmt.Fprintf(os.Stderr, "soar: %s: %v\n", raw, err)
			failed = true
			continue
		}
		targets = append(targets, lifecycle.Target{Pkg: pkg, Force: installForce, Options: opts})
	}
	if len(targets) == 0 {
		exitWithCode(ExitFailure)
	}

	mp := progress.NewMulti(os.Stdout)
	var onProgress fetcher.ProgressFunc
	if len(targets) == 1 {
		onProgress = adaptProgress(mp.Track(targets[0].Pkg.PkgName))
	} else {
		onProgress = adaptProgress(mp.Track("batch"))
	}

	outcomes := a.driver.InstallBatch(globalCtx, targets, onProgress)
	for _, o := range outcomes {
		printOutcome(a.colorW, o)
		if o.Err != nil {
			failed = true
		}
	}

	if failed {
		exitWithCode(ExitFailure)
	}
	return nil
}

func adaptProgress(track func(progress.Update)) fetcher.ProgressFunc {
	return func(s fetcher.DownloadState) {
		track(progress.Update{BytesRead: s.BytesRead, TotalBytes: s.TotalBytes, Terminal: s.Terminal})
	}
}

func printOutcome(w *color.Writer, o lifecycle.Outcome) {
	name := o.Target.Pkg.PkgName
	if o.Err != nil {
		fmt.Fprintln(os.Stderr, w.Error(fmt.Sprintf("%s: %v", name, o.Err)))
		return
	}
	fmt.Println(w.Success(fmt.Sprintf("%s %s installed", name, o.Result.Version)))
}

// terminalSelect prompts the user to choose among ambiguous candidates on
// stdin/stdout, used whenever a query resolves to more than one row and
// --yes was not given.
func terminalSelect(ctx context.Context, candidates []model.RemotePackage) (int, error) {
	for i, c := range candidates {
		fmt.Printf("  [%d] %s/%s (%s) %s\n", i+1, c.RepoName, c.PkgName, c.Version, c.Description)
	}
	fmt.Print("Select a package [1]: ")

	var choice int
	if _, err := fmt.Scanln(&choice); err != nil {
		return 0, errs.New(errs.Ambiguous, "", "no selection made")
	}
	if choice < 1 || choice > len(candidates) {
		return 0, errs.New(errs.Ambiguous, "", "selection out of range")
	}
	return choice - 1, nil
}
