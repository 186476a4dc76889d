package dataset

import (
	"errors"
	"fmt"
)

// ResourceError 数据文件缺失、无法读取或格式错误
type ResourceError struct {
	Path string
	Op   string // open / parse / validate
	Err  error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("数据资源错误(%s %s): %v", e.Op, e.Path, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// NotFoundError 所选年份/学期没有数据
type NotFoundError struct {
	Year int
	Term string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no data for this selection: year=%d term=%q", e.Year, e.Term)
}

// ValidationError 数值为负或百分比超出 [0,100]
type ValidationError struct {
	Row    int    `json:"row"` // 文件行号，表头为第1行
	Column string `json:"column"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("第%d行 %s=%s: %s", e.Row, e.Column, e.Value, e.Reason)
}

func IsResourceError(err error) bool {
	var re *ResourceError
	return errors.As(err, &re)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
