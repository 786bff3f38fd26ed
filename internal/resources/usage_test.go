package resources

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleCurrentProcess(t *testing.T) {
	usage, err := Sample(context.Background(), os.Getpid())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, usage.Processes, 1)
	assert.Positive(t, usage.RSS)
}

func TestSampleRejectsInvalidPid(t *testing.T) {
	_, err := Sample(context.Background(), 0)
	assert.ErrorContains(t, err, "invalid pid")
}

func TestFormatRSS(t *testing.T) {
	assert.Equal(t, "1KiB", FormatRSS(1024))
	assert.True(t, strings.HasSuffix(FormatRSS(5*1024*1024), "MiB"))
}

func TestFormatAge(t *testing.T) {
	now := time.Now()
	assert.Equal(t, "-", FormatAge(time.Time{}, now))
	assert.Equal(t, "just now", FormatAge(now, now))
	assert.Equal(t, "3 minutes", FormatAge(now.Add(-3*time.Minute), now))
}
