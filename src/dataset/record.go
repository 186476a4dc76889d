package dataset

import "time"

// Record 一行数据：某学年某学期的招生、留存与满意度指标
type Record struct {
	Year          int     `json:"year"`
	Term          string  `json:"term"`
	Applications  int     `json:"applications"`
	Admitted      int     `json:"admitted"`
	Enrolled      int     `json:"enrolled"`
	RetentionRate float64 `json:"retention_rate"` // 百分比
	Satisfaction  float64 `json:"satisfaction"`   // 百分比

	EngineeringEnrolled int `json:"engineering_enrolled"`
	BusinessEnrolled    int `json:"business_enrolled"`
	ArtsEnrolled        int `json:"arts_enrolled"`
	ScienceEnrolled     int `json:"science_enrolled"`
}

// Key 返回 (Year, Term) 主键
func (r Record) Key() Key {
	return Key{Year: r.Year, Term: r.Term}
}

// Key 数据集主键
type Key struct {
	Year int    `json:"year"`
	Term string `json:"term"`
}

// Dataset 按文件行序排列的只读数据集
type Dataset struct {
	Source     string             `json:"source"`
	LoadedAt   time.Time          `json:"loaded_at"`
	Issues     []*ValidationError `json:"issues"`     // 非严格模式下记录的校验问题
	Duplicates []Key              `json:"duplicates"` // 重复出现的主键

	records []Record
}

// New 由记录构造数据集，记录会被复制
func New(source string, records []Record) *Dataset {
	rs := make([]Record, len(records))
	copy(rs, records)
	return &Dataset{
		Source:   source,
		LoadedAt: time.Now(),
		records:  rs,
	}
}

// Len 行数
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

// Records 返回全部记录的副本
func (d *Dataset) Records() []Record {
	if d == nil {
		return nil
	}
	rs := make([]Record, len(d.records))
	copy(rs, d.records)
	return rs
}

// At 返回第 i 行
func (d *Dataset) At(i int) Record {
	return d.records[i]
}
