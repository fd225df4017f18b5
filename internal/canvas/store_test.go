package canvas

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hns101/PixelPub-CS50-Final-Project/internal/domain"
)

func TestApplyEditOverwritesCell(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Load(1, 10, domain.NewBlankGrid(4, 4)))

	edit, err := store.ApplyEdit(1, 2, 3, "#FF0000")
	require.NoError(t, err)
	assert.Equal(t, domain.BlankColor, edit.Prev)
	assert.Equal(t, "#FF0000", edit.Color)

	edit, err = store.ApplyEdit(1, 2, 3, "#00FF00")
	require.NoError(t, err)
	assert.Equal(t, "#FF0000", edit.Prev)

	grid, err := store.Snapshot(1)
	require.NoError(t, err)
	assert.Equal(t, "#00FF00", grid[3][2])
}

func TestApplyEditOutOfBounds(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Load(1, 10, domain.NewBlankGrid(4, 2)))

	cases := []struct{ x, y int }{
		{-1, 0}, {0, -1}, {4, 0}, {0, 2}, {100, 100},
	}
	for _, c := range cases {
		_, err := store.ApplyEdit(1, c.x, c.y, "#000000")
		assert.ErrorIs(t, err, ErrOutOfBounds, "(%d,%d)", c.x, c.y)
	}

	// 越界写入不应污染网格
	grid, err := store.Snapshot(1)
	require.NoError(t, err)
	for y := range grid {
		for x := range grid[y] {
			assert.Equal(t, domain.BlankColor, grid[y][x])
		}
	}
}

func TestApplyEditUnknownCanvas(t *testing.T) {
	store := NewStore()
	_, err := store.ApplyEdit(99, 0, 0, "#000000")
	assert.ErrorIs(t, err, ErrUnknownCanvas)
}

func TestLoadRejectsRaggedGrid(t *testing.T) {
	store := NewStore()
	ragged := domain.Grid{{"#FFFFFF", "#FFFFFF"}, {"#FFFFFF"}}
	assert.ErrorIs(t, store.Load(1, 10, ragged), ErrMalformedGrid)
}

func TestSnapshotIsIsolatedCopy(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Load(1, 10, domain.NewBlankGrid(2, 2)))

	grid, err := store.Snapshot(1)
	require.NoError(t, err)
	grid[0][0] = "#123456"

	fresh, err := store.Snapshot(1)
	require.NoError(t, err)
	assert.Equal(t, domain.BlankColor, fresh[0][0])
}

func TestDirtyTracking(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Load(1, 10, domain.NewBlankGrid(2, 2)))
	require.NoError(t, store.Load(2, 11, domain.NewBlankGrid(2, 2)))

	assert.Empty(t, store.DirtyIDs())

	_, err := store.ApplyEdit(1, 0, 0, "#000000")
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, store.DirtyIDs())

	_, err = store.SnapshotAndMarkClean(1)
	require.NoError(t, err)
	assert.Empty(t, store.DirtyIDs())
}

func TestOwnerPubAndDimensions(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Load(7, 42, domain.NewBlankGrid(48, 32)))

	pubID, err := store.OwnerPub(7)
	require.NoError(t, err)
	assert.Equal(t, uint(42), pubID)

	w, h, err := store.Dimensions(7)
	require.NoError(t, err)
	assert.Equal(t, 48, w)
	assert.Equal(t, 32, h)
}

func TestConcurrentEditsLastWriteWins(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Load(1, 10, domain.NewBlankGrid(8, 8)))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			color := fmt.Sprintf("#%06X", i)
			for j := 0; j < 50; j++ {
				_, err := store.ApplyEdit(1, j%8, (j/8)%8, color)
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	// 每个单元格最终必须持有某个写入者的颜色，而不是撕裂的值
	grid, err := store.Snapshot(1)
	require.NoError(t, err)
	for y := range grid {
		for x := range grid[y] {
			cell := grid[y][x]
			assert.True(t, cell == domain.BlankColor || (len(cell) == 7 && cell[0] == '#'), "cell (%d,%d)=%q", x, y, cell)
		}
	}
}
