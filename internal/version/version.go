// Package version holds the version of sigvault
package version

import (
	_ "embed" // for go:embed
	"fmt"
	"strconv"
	"strings"
)

// VERSION holds the server's version
//
//go:embed VERSION
var VERSION string

// Version segments
var (
	MAJOR int
	MINOR int
	FIX   int
	PRE   int
)

func init() {
	VERSION = strings.TrimSpace(VERSION)
	MAJOR, MINOR, FIX, PRE = parse(VERSION)
}

// parse splits a version of the form major.minor.fix[-prN]
func parse(v string) (major, minor, fix, pre int) {
	parts := strings.SplitN(v, ".", 3)
	if len(parts) != 3 {
		return
	}
	major, _ = strconv.Atoi(parts[0])
	minor, _ = strconv.Atoi(parts[1])
	fixPart, prePart, hasPre := strings.Cut(parts[2], "-")
	fix, _ = strconv.Atoi(fixPart)
	if hasPre {
		pre, _ = strconv.Atoi(strings.TrimPrefix(prePart, "pr"))
	}
	return
}

// Banner returns the one line startup banner
func Banner() string {
	return fmt.Sprintf("sigvault v%s", VERSION)
}
