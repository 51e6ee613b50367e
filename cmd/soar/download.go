package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/soarpm/soar/internal/errs"
	"github.com/soarpm/soar/internal/fetcher"
	"github.com/soarpm/soar/internal/httputil"
)

var (
	downloadOutput  string
	downloadGitHub  bool
	downloadGitLab  bool
	downloadMatch   string
	downloadExclude string
	downloadRegex   string
	downloadYes     bool
)

var downloadCmd = &cobra.Command{
	Use:   "download links...",
	Short: "Download a direct URL or a GitHub/GitLab release asset",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := httputil.NewSecureClient(httputil.DefaultOptions())
		downloader := &fetcher.HTTPDownloader{Client: client}

		for _, raw := range args {
			url := raw
			if downloadGitHub || downloadGitLab {
				resolved, err := resolveReleaseAsset(globalCtx, client, raw, downloadGitHub)
				if err != nil {
					return err
				}
				url = resolved
			}

			dest := downloadOutput
			if dest == "" {
				dest = filepath.Base(url)
			}
			if !downloadYes {
				fmt.Printf("Download %s -> %s? [y/N] ", url, dest)
				var reply string
				fmt.Scanln(&reply)
				if strings.ToLower(reply) != "y" {
					continue
				}
			}

			if err := downloader.Download(globalCtx, url, dest, nil); err != nil {
				return err
			}
			fmt.Println(dest)
		}
		return nil
	},
}

func init() {
	downloadCmd.Flags().StringVar(&downloadOutput, "output", "", "destination path (defaults to the URL's base name)")
	downloadCmd.Flags().BoolVar(&downloadGitHub, "github", false, "treat links as owner/repo slugs and resolve the latest GitHub release")
	downloadCmd.Flags().BoolVar(&downloadGitLab, "gitlab", false, "treat links as owner/repo slugs and resolve the latest GitLab release")
	downloadCmd.Flags().StringVar(&downloadMatch, "match", "", "only consider release assets whose name contains this substring")
	downloadCmd.Flags().StringVar(&downloadExclude, "exclude", "", "skip release assets whose name contains this substring")
	downloadCmd.Flags().StringVar(&downloadRegex, "regex", "", "only consider release assets whose name matches this regular expression")
	downloadCmd.Flags().BoolVarP(&downloadYes, "yes", "y", false, "skip the confirmation prompt")
}

type releaseAsset struct {
	Name        string `json:"name"`
	DownloadURL string `json:"browser_download_url"`
}

type githubRelease struct {
	Assets []releaseAsset `json:"assets"`
}

// gitlabRelease mirrors the subset of GitLab's release API this command
// needs: one link per published asset, each carrying its own direct URL.
type gitlabRelease struct {
	Assets struct {
		Links []struct {
			Name string `json:"name"`
			URL  string `json:"direct_asset_url"`
		} `json:"links"`
	} `json:"assets"`
}

// resolveReleaseAsset fetches the latest release for an "owner/repo" slug
// and returns the download URL of the single asset surviving --match,
// --exclude, and --regex filtering. More than one surviving asset is
// ambiguous and fails the same way an ambiguous catalog query does.
func resolveReleaseAsset(ctx context.Context, client *http.Client, slug string, github bool) (string, error) {
	var candidates []releaseAsset

	if github {
		api := fmt.Sprintf("https://api.github.com/repos/%s/releases/latest", slug)
		var rel githubRelease
		if err := getJSON(ctx, client, api, &rel); err != nil {
			return "", err
		}
		candidates = rel.Assets
	} else {
		api := fmt.Sprintf("https://gitlab.com/api/v4/projects/%s/releases", strings.ReplaceAll(slug, "/", "%2F"))
		var rels []gitlabRelease
		if err := getJSON(ctx, client, api, &rels); err != nil {
			return "", err
		}
		if len(rels) == 0 {
			return "", errs.New(errs.NotFound, slug, "no releases found")
		}
		for _, l := range rels[0].Assets.Links {
			candidates = append(candidates, releaseAsset{Name: l.Name, DownloadURL: l.URL})
		}
	}

	var re *regexp.Regexp
	if downloadRegex != "" {
		var err error
		re, err = regexp.Compile(downloadRegex)
		if err != nil {
			return "", errs.Wrap(errs.Config, slug, "compile --regex", err)
		}
	}

	var matched []releaseAsset
	for _, a := range candidates {
		if downloadMatch != "" && !strings.Contains(a.Name, downloadMatch) {
			continue
		}
		if downloadExclude != "" && strings.Contains(a.Name, downloadExclude) {
			continue
		}
		if re != nil && !re.MatchString(a.Name) {
			continue
		}
		matched = append(matched, a)
	}

	switch len(matched) {
	case 0:
		return "", errs.New(errs.NotFound, slug, "no release asset matched the given filters")
	case 1:
		return matched[0].DownloadURL, nil
	default:
		return "", errs.New(errs.Ambiguous, slug, "multiple release assets matched; narrow with --match/--exclude/--regex")
	}
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errs.Wrap(errs.IOFailed, "", "build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return errs.Wrap(errs.IOFailed, "", "request "+url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errs.New(errs.IOFailed, "", "request "+url+" returned "+resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.Wrap(errs.IOFailed, "", "decode response from "+url, err)
	}
	return nil
}
