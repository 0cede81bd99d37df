package version

import (
	"fmt"
	"os/exec"
	"regexp"
	"runtime/debug"
	"strings"
)

var (
	// These will be set at build time via ldflags
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

var relevantFilePattern = regexp.MustCompile(`\.(go|mod|sum|sql)$|Dockerfile|Makefile`)

// GetVersion returns the version string with git information
func GetVersion() string {
	if Version != "dev" {
		return Version
	}

	if v := getVersionFromGit(); v != "" {
		return v
	}

	// go install builds carry their module version
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}

	return "v0.0.0-dev"
}

// GetFullVersion returns version with commit and build info
func GetFullVersion() string {
	version := GetVersion()

	if Commit != "unknown" && Date != "unknown" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, Commit, Date)
	}

	return version
}

// getVersionFromGit builds a version from the latest v* tag, or returns ""
// outside a git checkout.
func getVersionFromGit() string {
	currentCommit := gitOutput("rev-parse", "HEAD")
	if len(currentCommit) < 8 {
		return ""
	}

	latestTag := gitOutput("describe", "--tags", "--abbrev=0", "--match=v*")
	if latestTag == "" {
		latestTag = "v0.0.0"
	}

	version := latestTag

	if currentCommit != gitOutput("rev-list", "-n", "1", latestTag) {
		version += "-rev-" + currentCommit[:8]
	}

	if hasUncommittedChanges(gitOutput("status", "--porcelain")) {
		version += "-unclean"
	}

	return version
}

func gitOutput(args ...string) string {
	output, err := exec.Command("git", args...).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(output))
}

// hasUncommittedChanges reports whether porcelain status output touches
// build-relevant files.
func hasUncommittedChanges(status string) bool {
	if status == "" {
		return false
	}

	for _, line := range strings.Split(status, "\n") {
		if len(line) < 3 {
			continue
		}
		filename := strings.TrimSpace(line[3:])
		if relevantFilePattern.MatchString(filename) {
			return true
		}
	}

	return false
}

// GetMCPVersion returns version for MCP server
func GetMCPVersion() string {
	return GetVersion()
}
