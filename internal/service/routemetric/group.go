package routemetric

import "strings"

const (
	// UnmatchedRoute labels requests that matched no route.
	UnmatchedRoute = "unmatched"
	rootGroup      = "root"
)

// RouteGroup derives the group label from a chi route pattern: the first
// segment after an optional "api" prefix and version segment.
//
//	/api/analytics/*            -> analytics
//	/api/v1/metrics/{group}/... -> metrics
//	/health                     -> health
func RouteGroup(pattern string) string {
	if pattern == "" || pattern == UnmatchedRoute {
		return UnmatchedRoute
	}
	var segs []string
	for s := range strings.SplitSeq(pattern, "/") {
		if s != "" && s != "*" {
			segs = append(segs, s)
		}
	}
	if len(segs) > 0 && segs[0] == "api" {
		segs = segs[1:]
	}
	if len(segs) > 0 && isVersion(segs[0]) {
		segs = segs[1:]
	}
	if len(segs) == 0 || strings.HasPrefix(segs[0], "{") {
		return rootGroup
	}
	return strings.ToLower(segs[0])
}

func isVersion(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	for _, c := range s[1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
