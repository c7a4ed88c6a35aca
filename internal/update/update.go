// Package update checks GitHub releases for a newer takt binary.
// It only reports; installing the new version is left to whatever
// deployed the current one.
package update

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/google/go-github/v67/github"
	"golang.org/x/mod/semver"
)

const (
	DefaultOwner = "valksor"
	DefaultRepo  = "go-taktwerk"
)

var (
	// ErrDevBuild means the running binary carries no release version.
	ErrDevBuild = errors.New("dev build, version comparison not possible")
	// ErrUpToDate means no newer release exists.
	ErrUpToDate = errors.New("already up to date")
)

// Status describes the newest matching release.
type Status struct {
	CurrentVersion string
	LatestVersion  string
	PreRelease     bool
	PublishedAt    time.Time
	ReleaseURL     string
	ReleaseNotes   string
	AssetName      string // binary asset for this platform, empty when absent
	AssetURL       string
}

// Options configures a check.
type Options struct {
	CurrentVersion    string // e.g. "v1.2.3", or "dev" for local builds
	IncludePreRelease bool
	Owner             string
	Repo              string
}

// Checker queries GitHub releases.
type Checker struct {
	gh    *github.Client
	owner string
	repo  string
}

// NewChecker creates a checker. An empty token means unauthenticated
// requests, which is fine at release-check rates.
func NewChecker(token string) *Checker {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return &Checker{gh: client, owner: DefaultOwner, repo: DefaultRepo}
}

// Check returns the status of the newest suitable release. It returns
// ErrDevBuild for unversioned binaries and ErrUpToDate when the current
// version is the newest.
func (c *Checker) Check(ctx context.Context, opts Options) (*Status, error) {
	current := canonical(opts.CurrentVersion)
	if current == "" {
		return nil, ErrDevBuild
	}
	if opts.Owner != "" {
		c.owner = opts.Owner
	}
	if opts.Repo != "" {
		c.repo = opts.Repo
	}

	releases, _, err := c.gh.Repositories.ListReleases(ctx, c.owner, c.repo,
		&github.ListOptions{PerPage: 10})
	if err != nil {
		return nil, fmt.Errorf("fetch releases: %w", err)
	}

	latest := pickRelease(releases, opts.IncludePreRelease)
	if latest == nil {
		return nil, fmt.Errorf("no suitable release found for %s/%s", c.owner, c.repo)
	}

	status := statusFrom(latest, opts.CurrentVersion)
	if semver.Compare(canonical(latest.GetTagName()), current) <= 0 {
		return status, ErrUpToDate
	}
	return status, nil
}

// pickRelease returns the newest non-draft release, skipping pre-releases
// unless asked for. The API lists releases newest first.
func pickRelease(releases []*github.RepositoryRelease, includePre bool) *github.RepositoryRelease {
	for _, r := range releases {
		if r.GetDraft() {
			continue
		}
		if !includePre && r.GetPrerelease() {
			continue
		}
		return r
	}
	return nil
}

func statusFrom(r *github.RepositoryRelease, currentVersion string) *Status {
	st := &Status{
		CurrentVersion: currentVersion,
		LatestVersion:  r.GetTagName(),
		PreRelease:     r.GetPrerelease(),
		ReleaseURL:     r.GetHTMLURL(),
		ReleaseNotes:   r.GetBody(),
	}
	if r.PublishedAt != nil {
		st.PublishedAt = r.PublishedAt.Time
	}

	want := fmt.Sprintf("takt-%s-%s", runtime.GOOS, runtime.GOARCH)
	for _, a := range r.Assets {
		if a.GetName() == want || a.GetName() == want+".tar.gz" {
			st.AssetName = a.GetName()
			st.AssetURL = a.GetBrowserDownloadURL()
			break
		}
	}
	return st
}

// canonical normalizes a version string for semver comparison.
// Returns "" for anything that is not a release version.
func canonical(v string) string {
	if v == "" || v == "dev" || v == "none" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return semver.Canonical(v)
}
