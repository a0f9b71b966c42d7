// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

package version

import "testing"

func TestInfo(t *testing.T) {
	restore := func(version, commit, dirty, buildTime string) {
		Version, GitCommit, GitDirty, BuildTime = version, commit, dirty, buildTime
	}
	defer restore(Version, GitCommit, GitDirty, BuildTime)

	restore("1.2.3", "abc1234", "false", "2026-08-26T00:00:00Z")
	if got, want := Info(), "1.2.3 (abc1234, 2026-08-26T00:00:00Z)"; got != want {
		t.Errorf("Info() = %q, want %q", got, want)
	}

	restore("1.2.3", "abc1234", "true", "2026-08-26T00:00:00Z")
	if got, want := Info(), "1.2.3 (abc1234-dirty, 2026-08-26T00:00:00Z)"; got != want {
		t.Errorf("Info() with dirty tree = %q, want %q", got, want)
	}
}
