package storage

// Resolved tool paths, filled by deps.CheckDependency at startup. Empty means
// the bare command name is used and PATH lookup applies.
var (
	FfmpegPath  string
	FfprobePath string
)
