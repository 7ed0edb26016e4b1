package colors

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/novellus/pixel-dungeon-network/internal/forktree"
)

func TestColorize(t *testing.T) {
	prev := IsColorEnabled()
	t.Cleanup(func() { SetColorEnabled(prev) })

	SetColorEnabled(false)
	assert.Equal(t, "watabou/pixel-dungeon", Repo(forktree.Key{Owner: "watabou", Name: "pixel-dungeon"}))
	assert.Equal(t, "12", Count(12))

	SetColorEnabled(true)
	assert.Equal(t, BrightRed+"fatal"+ColorReset, ErrorText("fatal"))
	assert.Equal(t, ColorBold+"3"+ColorReset, Count(3))
}
