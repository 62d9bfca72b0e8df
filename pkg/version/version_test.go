package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestCompare_Releases tests ordering of plain release versions
func TestCompare_Releases(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want int
	}{
		{"equal", "1.0.0", "1.0.0", 0},
		{"patch newer", "1.0.1", "1.0.0", 1},
		{"minor newer", "1.1.0", "1.0.9", 1},
		{"major newer", "2.0.0", "1.9.9", 1},
		{"older", "1.0.0", "2.0.0", -1},
		{"short form equal", "1.2", "1.2.0", 0},
		{"short form older", "1.2", "1.2.1", -1},
		{"numeric not lexical", "1.10.0", "1.9.0", 1},
		{"v prefix ignored", "v1.0.0", "1.0.0", 0},
		{"build metadata ignored", "1.0.0+build7", "1.0.0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.a, tt.b))
		})
	}
}

// TestCompare_PreRelease tests pre-release suffix ordering
func TestCompare_PreRelease(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want int
	}{
		{"pre-release below release", "2.0.0-beta", "2.0.0", -1},
		{"release above pre-release", "2.0.0", "2.0.0-rc.1", 1},
		{"alpha before beta", "1.0.0-alpha", "1.0.0-beta", -1},
		{"numeric pre-release compared numerically", "1.0.0-rc.10", "1.0.0-rc.9", 1},
		{"numeric below alphanumeric", "1.0.0-1", "1.0.0-alpha", -1},
		{"longer identifier list higher", "1.0.0-alpha.1", "1.0.0-alpha", 1},
		{"equal pre-release", "1.0.0-rc.1", "1.0.0-rc.1", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.a, tt.b))
		})
	}
}

// TestCompare_Antisymmetric tests that swapping arguments flips the sign
func TestCompare_Antisymmetric(t *testing.T) {
	pairs := [][2]string{
		{"1.0.0", "2.0.0"},
		{"1.2.3", "1.2.3"},
		{"2.0.0-beta", "2.0.0"},
		{"1.0.0-alpha.2", "1.0.0-alpha.10"},
	}

	for _, p := range pairs {
		assert.Equal(t, Compare(p[0], p[1]), -Compare(p[1], p[0]),
			"Compare(%q, %q) must be antisymmetric", p[0], p[1])
	}
}

// TestCompare_MalformedStillTotal tests that junk versions get a stable order
func TestCompare_MalformedStillTotal(t *testing.T) {
	assert.Equal(t, 0, Compare("garbage", "garbage"))
	assert.Equal(t, -Compare("trunk", "garbage"), Compare("garbage", "trunk"))
}

// TestIsNewer tests the strict-newer helper
func TestIsNewer(t *testing.T) {
	assert.True(t, IsNewer("2.0.0", "1.0.0"))
	assert.False(t, IsNewer("1.0.0", "1.0.0"))
	assert.False(t, IsNewer("1.0.0", "2.0.0"))
}
