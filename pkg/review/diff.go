package review

import (
	"regexp"
	"strings"
)

// FileDiff is one file's portion of a unified diff, header lines removed.
type FileDiff struct {
	Path string
	Body string
}

const fileDiffMarker = "diff --git"

// diff headers occupy four lines per file: the diff --git remainder,
// the index line, and the --- / +++ markers.
const diffHeaderLines = 4

var diffPathRe = regexp.MustCompile(`b/(.+)`)

// SplitDiff partitions a unified diff into per-file segments. Segments
// without a recognizable b/ path are dropped.
func SplitDiff(diff string) []FileDiff {
	segments := strings.Split(diff, fileDiffMarker)
	if len(segments) < 2 {
		return nil
	}

	var files []FileDiff
	for _, segment := range segments[1:] {
		match := diffPathRe.FindStringSubmatch(segment)
		if match == nil {
			continue
		}

		lines := strings.Split(segment, "\n")
		if len(lines) <= diffHeaderLines {
			continue
		}

		files = append(files, FileDiff{
			Path: match[1],
			Body: strings.Join(lines[diffHeaderLines:], "\n"),
		})
	}

	return files
}
