package audio

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// MatchDevice resolves a user supplied device name against the names the
// system reports. An exact match (ignoring case) wins; otherwise the closest
// fuzzy match is taken, so "hdmi" finds "HDA Intel PCH, HDMI 0". An empty
// want means the default device and always matches.
func MatchDevice(want string, names []string) (string, bool) {
	want = strings.TrimSpace(want)
	if want == "" {
		return "", true
	}
	for _, name := range names {
		if strings.EqualFold(name, want) {
			return name, true
		}
	}
	ranks := fuzzy.RankFindNormalizedFold(want, names)
	if len(ranks) == 0 {
		return "", false
	}
	sort.Stable(ranks)
	return ranks[0].Target, true
}
