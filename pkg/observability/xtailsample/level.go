package xtailsample

import (
	"cmp"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// LevelAttrKey span 严重级别属性的 key，值为级别数值（int64）
const LevelAttrKey = attribute.Key("xtail.level_num")

// LevelName 命名的严重级别
type LevelName string

// 命名级别，数值见 levelNumbers
const (
	LevelTrace   LevelName = "trace"
	LevelDebug   LevelName = "debug"
	LevelInfo    LevelName = "info"
	LevelNotice  LevelName = "notice"
	LevelWarn    LevelName = "warn"
	LevelWarning LevelName = "warning"
	LevelError   LevelName = "error"
	LevelFatal   LevelName = "fatal"
)

var levelNumbers = map[LevelName]int64{
	LevelTrace:   1,
	LevelDebug:   5,
	LevelInfo:    9,
	LevelNotice:  10,
	LevelWarn:    13,
	LevelWarning: 13,
	LevelError:   17,
	LevelFatal:   21,
}

// 数值到规范名称，warning 是 warn 的别名，不参与反查
var levelNames = map[int64]LevelName{
	1:  LevelTrace,
	5:  LevelDebug,
	9:  LevelInfo,
	10: LevelNotice,
	13: LevelWarn,
	17: LevelError,
	21: LevelFatal,
}

// Number 返回级别名称对应的数值，未知名称返回 (0, false)
func (n LevelName) Number() (int64, bool) {
	v, ok := levelNumbers[n]
	return v, ok
}

// ParseLevelName 解析级别名称（大小写不敏感，自动 TrimSpace）
func ParseLevelName(s string) (LevelName, error) {
	name := LevelName(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := levelNumbers[name]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownLevel, s)
	}
	return name, nil
}

// SpanLevel span 的严重级别
//
// 与命名级别比较时先把双方转换为数值。不在级别表中的数值（以及未知的
// 级别名称）与任何命名级别都不可比：除 Ne 外所有比较均返回 false。
type SpanLevel struct {
	num int64
}

// NewSpanLevel 从数值创建级别
func NewSpanLevel(n int64) SpanLevel {
	return SpanLevel{num: n}
}

// LevelOf 从命名级别创建 SpanLevel，未知名称得到不可比的级别
func LevelOf(name LevelName) SpanLevel {
	return SpanLevel{num: levelNumbers[name]}
}

// Number 返回原始数值
func (l SpanLevel) Number() int64 { return l.num }

// Name 返回规范名称，数值不在级别表中时返回 ("", false)
func (l SpanLevel) Name() (LevelName, bool) {
	name, ok := levelNames[l.num]
	return name, ok
}

// Known 报告数值是否在级别表中
func (l SpanLevel) Known() bool {
	_, ok := levelNames[l.num]
	return ok
}

func (l SpanLevel) String() string {
	if name, ok := l.Name(); ok {
		return string(name)
	}
	return fmt.Sprintf("level(%d)", l.num)
}

func (l SpanLevel) compare(name LevelName) (int, bool) {
	if !l.Known() {
		return 0, false
	}
	other, ok := levelNumbers[name]
	if !ok {
		return 0, false
	}
	return cmp.Compare(l.num, other), true
}

// Eq 等于
func (l SpanLevel) Eq(name LevelName) bool {
	c, ok := l.compare(name)
	return ok && c == 0
}

// Ne 不等于，不可比时为 true
func (l SpanLevel) Ne(name LevelName) bool {
	return !l.Eq(name)
}

// Lt 严格低于
func (l SpanLevel) Lt(name LevelName) bool {
	c, ok := l.compare(name)
	return ok && c < 0
}

// Le 低于或等于
func (l SpanLevel) Le(name LevelName) bool {
	c, ok := l.compare(name)
	return ok && c <= 0
}

// Gt 严格高于
func (l SpanLevel) Gt(name LevelName) bool {
	c, ok := l.compare(name)
	return ok && c > 0
}

// Ge 高于或等于
func (l SpanLevel) Ge(name LevelName) bool {
	c, ok := l.compare(name)
	return ok && c >= 0
}

// LevelAttr 返回标记 span 级别的属性，用于 trace.WithAttributes 或 span.SetAttributes
func LevelAttr(name LevelName) attribute.KeyValue {
	return LevelAttrKey.Int64(levelNumbers[name])
}

// LevelNumAttr 以原始数值标记 span 级别
func LevelNumAttr(n int64) attribute.KeyValue {
	return LevelAttrKey.Int64(n)
}
