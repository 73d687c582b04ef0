package ext

import (
	"fmt"
	"strings"

	"github.com/jinzhu/copier"
	"github.com/r3labs/diff/v3"
)

// Diff 比较两个值, 返回变更列表
func Diff(a, b any) (diff.Changelog, error) {
	return diff.Diff(a, b, diff.DisableStructValues(), diff.SliceOrdering(false))
}

// DiffLog 比较两个值并生成可读的变更文本, 每行一个字段
func DiffLog(a, b any) (diff.Changelog, string, error) {
	changes, err := Diff(a, b)
	if err != nil {
		return nil, "", err
	}
	lines := make([]string, 0, len(changes))
	for _, c := range changes {
		lines = append(lines, fmt.Sprintf("  %s %s: %v -> %v", c.Type, strings.Join(c.Path, "."), c.From, c.To))
	}
	return changes, strings.Join(lines, "\n"), nil
}

// DeepCopy 把 src 深拷贝到 dst, dst 必须为指针
func DeepCopy(dst, src any) error {
	return copier.CopyWithOption(dst, src, copier.Option{DeepCopy: true, IgnoreEmpty: false})
}
