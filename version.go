package main

import "fmt"

var (
	gitSHA1   string = "unknown"
	gitDirty  string = "unknown"
	buildDate string = "unknown"
)

// NodeVersion renders the build stamp the node logs at startup, marking a
// dirty tree so a log line can be traced back to an exact build.
func NodeVersion() string {
	v := "mockros"
	if gitSHA1 != "unknown" {
		v = fmt.Sprintf("%s (git:%s", v, gitSHA1)
		if gitDirty != "0" && gitDirty != "unknown" {
			v += "-dirty"
		}
		v += ")"
	}
	if buildDate != "unknown" {
		v += " built " + buildDate
	}
	return v
}
