package update

import (
	"testing"

	"github.com/google/go-github/v67/github"
)

func release(tag string, draft, pre bool) *github.RepositoryRelease {
	return &github.RepositoryRelease{
		TagName:    github.String(tag),
		Draft:      github.Bool(draft),
		Prerelease: github.Bool(pre),
	}
}

func TestCanonical(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"v1.2.3", "v1.2.3"},
		{"1.2.3", "v1.2.3"},
		{"v1.2", "v1.2.0"},
		{"dev", ""},
		{"none", ""},
		{"", ""},
		{"not-a-version", ""},
	}
	for _, tc := range cases {
		if got := canonical(tc.in); got != tc.want {
			t.Errorf("canonical(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPickRelease(t *testing.T) {
	releases := []*github.RepositoryRelease{
		release("v2.0.0-rc.1", false, true),
		release("v1.9.0", true, false),
		release("v1.8.0", false, false),
		release("v1.7.0", false, false),
	}

	if got := pickRelease(releases, false); got.GetTagName() != "v1.8.0" {
		t.Errorf("stable pick = %s, want v1.8.0", got.GetTagName())
	}
	if got := pickRelease(releases, true); got.GetTagName() != "v2.0.0-rc.1" {
		t.Errorf("pre-release pick = %s, want v2.0.0-rc.1", got.GetTagName())
	}
	if got := pickRelease(nil, true); got != nil {
		t.Errorf("empty list should pick nothing, got %v", got)
	}
}

func TestStatusFromAsset(t *testing.T) {
	r := release("v1.8.0", false, false)
	r.HTMLURL = github.String("https://example.com/rel")
	r.Assets = []*github.ReleaseAsset{
		{Name: github.String("checksums.txt"), BrowserDownloadURL: github.String("https://example.com/sums")},
	}

	st := statusFrom(r, "v1.7.0")
	if st.LatestVersion != "v1.8.0" || st.ReleaseURL != "https://example.com/rel" {
		t.Errorf("status = %+v", st)
	}
	if st.AssetName != "" {
		t.Errorf("no platform asset expected, got %q", st.AssetName)
	}
}
