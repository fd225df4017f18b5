// Package canvas 实现了权威的内存画布存储。
// 每块已加载的画布持有一份行优先像素网格；单元格写入是原子的，
// 不同画布之间的编辑完全并行，同一画布的编辑只在单元格写入粒度串行。
package canvas

import (
	"errors"
	"sync"

	"github.com/hns101/PixelPub-CS50-Final-Project/internal/domain"
)

var (
	// ErrOutOfBounds 表示坐标落在画布声明的尺寸之外。
	ErrOutOfBounds = errors.New("canvas: coordinates out of bounds")
	// ErrUnknownCanvas 表示画布 ID 未被加载。
	ErrUnknownCanvas = errors.New("canvas: unknown canvas id")
	// ErrMalformedGrid 表示传入的网格与画布声明的尺寸不符。
	ErrMalformedGrid = errors.New("canvas: grid does not match canvas dimensions")
)

// AppliedEdit 描述一次成功落地的单元格写入。
// Prev 保留被覆盖前的颜色，供撤销/历史语义使用。
type AppliedEdit struct {
	CanvasID uint
	X, Y     int
	Prev     string
	Color    string
}

// state 是单块画布的内存状态。mu 保护 grid 与 dirty；
// 临界区只覆盖单元格读写和快照拷贝，不跨越任何 IO。
type state struct {
	mu     sync.Mutex
	pubID  uint
	width  int
	height int
	grid   domain.Grid
	dirty  bool
}

// Store 按画布 ID 持有所有已加载的网格。
type Store struct {
	mu       sync.RWMutex
	canvases map[uint]*state
}

// NewStore 创建一个空的画布存储。
func NewStore() *Store {
	return &Store{canvases: make(map[uint]*state)}
}

// Load 初始化或整体替换一块画布的内存网格。
// pubID 记录画布归属的酒馆，用于编辑路径上的归属校验。
// 替换已有画布时保留其脏标记语义：新网格视为待落盘。
func (s *Store) Load(canvasID uint, pubID uint, grid domain.Grid) error {
	height := len(grid)
	width := 0
	if height > 0 {
		width = len(grid[0])
	}
	if !grid.Rectangular(width, height) {
		return ErrMalformedGrid
	}

	s.mu.Lock()
	entry, ok := s.canvases[canvasID]
	if !ok {
		entry = &state{}
		s.canvases[canvasID] = entry
	}
	s.mu.Unlock()

	entry.mu.Lock()
	replaced := ok
	entry.pubID = pubID
	entry.width = width
	entry.height = height
	entry.grid = grid
	entry.dirty = replaced
	entry.mu.Unlock()
	return nil
}

// Unload 移除一块画布（例如所属酒馆被删除时）。对未知 ID 调用是安全的。
func (s *Store) Unload(canvasID uint) {
	s.mu.Lock()
	delete(s.canvases, canvasID)
	s.mu.Unlock()
}

// ApplyEdit 覆盖写一个单元格，返回覆盖前后的颜色。
// 越界坐标返回 ErrOutOfBounds 且网格保持不变；未加载的画布返回 ErrUnknownCanvas。
// 同一单元格的并发写入按到达顺序以最后写入获胜解决，不产生冲突错误。
func (s *Store) ApplyEdit(canvasID uint, x, y int, color string) (AppliedEdit, error) {
	entry, err := s.lookup(canvasID)
	if err != nil {
		return AppliedEdit{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if x < 0 || y < 0 || x >= entry.width || y >= entry.height {
		return AppliedEdit{}, ErrOutOfBounds
	}
	prev := entry.grid[y][x]
	entry.grid[y][x] = color
	entry.dirty = true
	return AppliedEdit{CanvasID: canvasID, X: x, Y: y, Prev: prev, Color: color}, nil
}

// Snapshot 返回当前网格的不可变副本。拷贝在单元格锁内完成，
// 但从不跨越 IO，因此不会长时间阻塞并发的 ApplyEdit。
func (s *Store) Snapshot(canvasID uint) (domain.Grid, error) {
	entry, err := s.lookup(canvasID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.grid.Clone(), nil
}

// SnapshotAndMarkClean 返回网格副本并清除脏标记，供落盘任务使用。
// 拷贝与清标记在同一临界区内完成，避免丢失拷贝之后的写入标记。
func (s *Store) SnapshotAndMarkClean(canvasID uint) (domain.Grid, error) {
	entry, err := s.lookup(canvasID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	clone := entry.grid.Clone()
	entry.dirty = false
	return clone, nil
}

// Dimensions 返回画布声明的宽高。
func (s *Store) Dimensions(canvasID uint) (width, height int, err error) {
	entry, err := s.lookup(canvasID)
	if err != nil {
		return 0, 0, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.width, entry.height, nil
}

// OwnerPub 返回画布归属的酒馆 ID。
func (s *Store) OwnerPub(canvasID uint) (uint, error) {
	entry, err := s.lookup(canvasID)
	if err != nil {
		return 0, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.pubID, nil
}

// DirtyIDs 返回自上次落盘以来被修改过的画布 ID 列表。
// 只读取标记，不清除；清除由 SnapshotAndMarkClean 在拿到副本时完成。
func (s *Store) DirtyIDs() []uint {
	s.mu.RLock()
	ids := make([]uint, 0, len(s.canvases))
	entries := make([]*state, 0, len(s.canvases))
	for id, entry := range s.canvases {
		ids = append(ids, id)
		entries = append(entries, entry)
	}
	s.mu.RUnlock()

	dirty := make([]uint, 0, len(ids))
	for i, entry := range entries {
		entry.mu.Lock()
		if entry.dirty {
			dirty = append(dirty, ids[i])
		}
		entry.mu.Unlock()
	}
	return dirty
}

func (s *Store) lookup(canvasID uint) (*state, error) {
	s.mu.RLock()
	entry, ok := s.canvases[canvasID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownCanvas
	}
	return entry, nil
}
