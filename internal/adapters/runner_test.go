package adapters

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTail(t *testing.T) {
	assert.Equal(t, "short", tail("short", 4096))
	assert.Equal(t, "", tail("", 4096))

	long := strings.Repeat("x", 5000) + "END"
	tailed := tail(long, 4096)
	assert.Len(t, tailed, 4096)
	assert.True(t, strings.HasSuffix(tailed, "END"))
}

func TestWSLPath(t *testing.T) {
	assert.Equal(t, "/mnt/c/work/runs/job-1", wslPath(`C:\work\runs\job-1`))
	assert.Equal(t, "/mnt/d/cases", wslPath("D:/cases"))
	assert.Equal(t, "/home/user/runs", wslPath("/home/user/runs"))
	assert.Equal(t, "relative/dir", wslPath("relative/dir"))
}

func TestWSLDistro(t *testing.T) {
	t.Setenv("COGSIM_WSL_DISTRO", "")
	assert.Equal(t, "Ubuntu", wslDistro())

	t.Setenv("COGSIM_WSL_DISTRO", "Debian")
	assert.Equal(t, "Debian", wslDistro())
}
