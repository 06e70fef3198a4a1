// Package build містить метадані збірки, які задаються через
// -ldflags "-X bizsite-api/internal/build.Version=..."
package build

import "fmt"

var (
	Version   = "dev"
	Number    = "local"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Info повертає інформацію про білд
func Info() map[string]string {
	return map[string]string{
		"version":    Version,
		"number":     Number,
		"git_commit": GitCommit,
		"build_time": BuildTime,
	}
}

// Summary однорядковий опис білда для логів
func Summary() string {
	return fmt.Sprintf("%s (build %s, commit %s)", Version, Number, GitCommit)
}
