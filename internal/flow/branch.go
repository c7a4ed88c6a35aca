package flow

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const branchPrefix = "takt/"

var lowerCaser = cases.Lower(language.Und)

// BranchName derives the deterministic work-branch name for an item:
// takt/<number>-<slug>. The slug is the case-folded title reduced to
// ASCII-safe hyphenated words, capped so refs stay manageable.
func BranchName(number int, title string) string {
	slug := slugify(title)
	if slug == "" {
		return fmt.Sprintf("%s%d", branchPrefix, number)
	}
	return fmt.Sprintf("%s%d-%s", branchPrefix, number, slug)
}

const maxSlugLen = 48

func slugify(title string) string {
	folded := lowerCaser.String(title)

	var b strings.Builder
	lastHyphen := true // suppress leading hyphens
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
		if b.Len() >= maxSlugLen {
			break
		}
	}
	return strings.Trim(b.String(), "-")
}
