package github

// repoInfo is the subset of the repository endpoint payload we read.
type repoInfo struct {
	DefaultBranch string `json:"default_branch"`
}

// TreeEntry is one entry of a recursive git tree listing.
type TreeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"` // "blob" or "tree"
	SHA  string `json:"sha"`
	URL  string `json:"url"`
}

// treeResponse is the git trees endpoint payload.
type treeResponse struct {
	SHA       string      `json:"sha"`
	Tree      []TreeEntry `json:"tree"`
	Truncated bool        `json:"truncated"`
}
