package vcsstatus

import (
	"regexp"
	"strconv"
	"strings"
)

func trimLine(out []byte) string {
	return strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])
}

var shortstatRe = regexp.MustCompile(`(\d+) insertions?\(\+\)|(\d+) deletions?\(-\)`)

// parseShortstat extracts insertion/deletion counts from a line like:
// " 3 files changed, 12 insertions(+), 4 deletions(-)".
func parseShortstat(out []byte) (added, removed int) {
	for _, m := range shortstatRe.FindAllStringSubmatch(string(out), -1) {
		if m[1] != "" {
			added, _ = strconv.Atoi(m[1])
		}
		if m[2] != "" {
			removed, _ = strconv.Atoi(m[2])
		}
	}
	return added, removed
}

var jjDiffStatTotalRe = regexp.MustCompile(`(\d+) files? changed, (\d+) insertions?\(\+\), (\d+) deletions?\(-\)`)

// parseJJDiffStat extracts the trailing totals line jj diff --stat prints,
// e.g. "3 files changed, 12 insertions(+), 4 deletions(-)".
func parseJJDiffStat(out []byte) (added, removed int) {
	m := jjDiffStatTotalRe.FindStringSubmatch(string(out))
	if m == nil {
		return 0, 0
	}
	added, _ = strconv.Atoi(m[2])
	removed, _ = strconv.Atoi(m[3])
	return added, removed
}
