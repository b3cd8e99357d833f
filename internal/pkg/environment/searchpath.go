package environment

// ComposeSearchPath builds the effective library search path for a child
// spawned against primary, with inheritance contributing additional
// directories behind it in order. The primary always wins on a duplicate
// module name; among inheritance entries, the earlier one wins. This is a
// runtime search-order guarantee (P5), never a filesystem merge — callers
// must preserve this exact ordering when injecting it into the child's
// search-path environment variable.
func ComposeSearchPath(primary Handle, inheritance []Handle) []string {
	paths := make([]string, 0, len(primary.SearchPaths))
	paths = append(paths, primary.SearchPaths...)
	for _, h := range inheritance {
		paths = append(paths, h.SearchPaths...)
	}
	return paths
}
