package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// BlankColor 是画布单元格的默认颜色（空白哨兵值）。
const BlankColor = "#FFFFFF"

// Grid 是画布的二维像素网格，行优先存储：Grid[y][x] 为坐标 (x,y) 的颜色。
// 每个界内坐标始终有定义好的颜色；越界坐标由调用方拒绝，绝不静默裁剪。
type Grid [][]string

// NewBlankGrid 创建一个 height × width 的空白网格，所有单元格为 BlankColor。
func NewBlankGrid(width, height int) Grid {
	grid := make(Grid, height)
	for y := range grid {
		row := make([]string, width)
		for x := range row {
			row[x] = BlankColor
		}
		grid[y] = row
	}
	return grid
}

// Clone 返回网格的深拷贝，用于不阻塞写入的快照读取。
func (g Grid) Clone() Grid {
	clone := make(Grid, len(g))
	for y, row := range g {
		clone[y] = make([]string, len(row))
		copy(clone[y], row)
	}
	return clone
}

// Rectangular 校验网格是否为 height 行、每行 width 列的矩形。
func (g Grid) Rectangular(width, height int) bool {
	if len(g) != height {
		return false
	}
	for _, row := range g {
		if len(row) != width {
			return false
		}
	}
	return true
}

// Canvas 表示一块画布的持久化记录。像素网格以 JSON 序列化后存入 Data 列。
type Canvas struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"size:191;not null"`
	Width     int       `gorm:"not null"`
	Height    int       `gorm:"not null"`
	Data      string    `gorm:"type:longtext;not null"` // 行优先 JSON 数组 (使用 longtext 以支持更大的画布)
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// ParseGrid 将 Data 字段 (JSON 字符串) 解析为 Grid。
// 空的 Data 返回全空白网格，而不是错误。
func (c *Canvas) ParseGrid() (Grid, error) {
	if c.Data == "" || c.Data == "null" {
		return NewBlankGrid(c.Width, c.Height), nil
	}
	var grid Grid
	if err := json.Unmarshal([]byte(c.Data), &grid); err != nil {
		return nil, fmt.Errorf("failed to unmarshal canvas data: %w", err)
	}
	if !grid.Rectangular(c.Width, c.Height) {
		return nil, fmt.Errorf("canvas %d data does not match declared dimensions %dx%d", c.ID, c.Width, c.Height)
	}
	return grid, nil
}

// SetGrid 将 Grid 序列化为 JSON 字符串并写入 Data 字段。
func (c *Canvas) SetGrid(grid Grid) error {
	bytes, err := json.Marshal(grid)
	if err != nil {
		return fmt.Errorf("failed to marshal canvas grid: %w", err)
	}
	c.Data = string(bytes)
	return nil
}
