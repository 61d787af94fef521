// Package clipboard 提供系统剪贴板写入
package clipboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

// ErrUnsupported 当前环境没有可用的剪贴板工具（如无 xclip/xsel 的 Linux）
var ErrUnsupported = errors.New("clipboard is not supported in this environment")

// System 使用系统剪贴板
type System struct {
	write func(string) error
}

// NewSystem 创建系统剪贴板；环境不支持时返回 ErrUnsupported
func NewSystem() (*System, error) {
	if clipboard.Unsupported {
		return nil, ErrUnsupported
	}
	return &System{write: clipboard.WriteAll}, nil
}

// WriteText 写入纯文本
func (s *System) WriteText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.write(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	return nil
}
