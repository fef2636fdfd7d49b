package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	info := Get()

	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GitCommit)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Contains(t, info.Platform, "/")
}

func TestString(t *testing.T) {
	s := Info{
		Version:   "v1.0.0",
		GitCommit: "abc1234",
		GoVersion: "go1.24",
		Platform:  "linux/amd64",
	}.String()

	assert.Contains(t, s, "reef v1.0.0")
	assert.Contains(t, s, "abc1234")
}

func TestLdflagsOverride(t *testing.T) {
	oldV, oldC := Version, GitCommit
	defer func() { Version, GitCommit = oldV, oldC }()

	Version = "v9.9.9"
	GitCommit = "deadbee"

	info := Get()
	assert.Equal(t, "v9.9.9", info.Version)
	assert.Equal(t, "deadbee", info.GitCommit)
}
