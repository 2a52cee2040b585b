// FILE: src/internal/filter/filter_test.go
package filter

import (
	"testing"

	"chronicle/src/internal/config"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

func TestNoPatternsDisablesFiltering(t *testing.T) {
	f, err := New(config.FilterOptions{}, newTestLogger())
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestIncludeFilter(t *testing.T) {
	f, err := New(config.FilterOptions{
		Type:     config.FilterTypeInclude,
		Patterns: []string{`^metrics/`},
	}, newTestLogger())
	require.NoError(t, err)
	require.NotNil(t, f)

	assert.True(t, f.Allow("metrics/loss"))
	assert.False(t, f.Allow("logs/info"))
	assert.False(t, f.Allow("camera/metrics/x"))
}

func TestExcludeFilter(t *testing.T) {
	f, err := New(config.FilterOptions{
		Type:     config.FilterTypeExclude,
		Patterns: []string{`^logs/debug$`},
	}, newTestLogger())
	require.NoError(t, err)

	assert.False(t, f.Allow("logs/debug"))
	assert.True(t, f.Allow("logs/info"))
}

func TestOrLogicMatchesAnyPattern(t *testing.T) {
	f, err := New(config.FilterOptions{
		Type:     config.FilterTypeInclude,
		Logic:    config.FilterLogicOr,
		Patterns: []string{`^metrics/`, `^logs/error`},
	}, newTestLogger())
	require.NoError(t, err)

	assert.True(t, f.Allow("metrics/loss"))
	assert.True(t, f.Allow("logs/error"))
	assert.False(t, f.Allow("logs/info"))
}

func TestAndLogicRequiresAllPatterns(t *testing.T) {
	f, err := New(config.FilterOptions{
		Type:     config.FilterTypeInclude,
		Logic:    config.FilterLogicAnd,
		Patterns: []string{`^train/`, `loss`},
	}, newTestLogger())
	require.NoError(t, err)

	assert.True(t, f.Allow("train/epoch_1/loss"))
	assert.False(t, f.Allow("train/epoch_1/accuracy"))
	assert.False(t, f.Allow("eval/loss"))
}

func TestDefaultsToIncludeOr(t *testing.T) {
	f, err := New(config.FilterOptions{
		Patterns: []string{`^metrics/`},
	}, newTestLogger())
	require.NoError(t, err)

	assert.True(t, f.Allow("metrics/loss"))
	assert.False(t, f.Allow("logs/info"))
}

func TestInvalidPatternRejected(t *testing.T) {
	_, err := New(config.FilterOptions{
		Patterns: []string{`[unclosed`},
	}, newTestLogger())
	assert.Error(t, err)
}

func TestGetStats(t *testing.T) {
	f, err := New(config.FilterOptions{
		Type:     config.FilterTypeInclude,
		Patterns: []string{`^metrics/`},
	}, newTestLogger())
	require.NoError(t, err)

	f.Allow("metrics/loss")
	f.Allow("logs/info")

	stats := f.GetStats()
	assert.Equal(t, uint64(2), stats["total_processed"])
	assert.Equal(t, uint64(1), stats["total_matched"])
	assert.Equal(t, uint64(1), stats["total_dropped"])
}
