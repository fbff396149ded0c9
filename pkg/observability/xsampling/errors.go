package xsampling

import "errors"

// 采样器创建相关的错误
var (
	// ErrInvalidRate 表示采样比率不在 [0.0, 1.0] 范围内（含 NaN）
	ErrInvalidRate = errors.New("xsampling: rate must be in [0.0, 1.0]")

	// ErrEmptyKey 表示 KeyBasedSampler 的属性 key 为空
	ErrEmptyKey = errors.New("xsampling: attribute key must not be empty")

	// ErrNilSampler 表示组合采样器的子采样器为 nil
	ErrNilSampler = errors.New("xsampling: sampler must not be nil")

	// ErrNilOption 表示传入了 nil 的 Option 函数
	ErrNilOption = errors.New("xsampling: nil option")
)
