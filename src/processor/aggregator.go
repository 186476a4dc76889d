package processor

import (
	"sort"

	"UniversityDashboard/src/dataset"
)

// TrendRow 按 (Year, Term) 聚合：计数求和，百分比取平均
type TrendRow struct {
	Year          int     `json:"year"`
	Term          string  `json:"term"`
	Applications  int     `json:"applications"`
	Admitted      int     `json:"admitted"`
	Enrolled      int     `json:"enrolled"`
	RetentionRate float64 `json:"retention_rate"`
	Satisfaction  float64 `json:"satisfaction"`
}

// DepartmentTrendRow 按年份汇总各院系入学人数
type DepartmentTrendRow struct {
	Year        int `json:"year"`
	Engineering int `json:"engineering"`
	Business    int `json:"business"`
	Arts        int `json:"arts"`
	Science     int `json:"science"`
}

// DepartmentCount 柱状图的一项
type DepartmentCount struct {
	Department string `json:"department"`
	Enrolled   int    `json:"enrolled"`
}

// FilterOptions 年份与学期的可选值，按首次出现顺序
type FilterOptions struct {
	Years []int    `json:"years"`
	Terms []string `json:"terms"`
}

// TermComparison 两个学期的子集并列
type TermComparison struct {
	Terms   [2]string                   `json:"terms"`
	Subsets map[string][]dataset.Record `json:"subsets"`
}

// SelectExact 返回 Year 与 Term 完全匹配的第一行
// 主键重复时按文件顺序取第一行，加载时已记录重复项
func SelectExact(ds *dataset.Dataset, year int, term string) (dataset.Record, error) {
	for i := 0; i < ds.Len(); i++ {
		r := ds.At(i)
		if r.Year == year && r.Term == term {
			return r, nil
		}
	}
	return dataset.Record{}, &dataset.NotFoundError{Year: year, Term: term}
}

// TrendByYearTerm 按年份升序、同年内按学期首次出现顺序分组聚合
func TrendByYearTerm(ds *dataset.Dataset) []TrendRow {
	records := ds.Records()
	rank := termRank(records)

	// 先稳定排序再线性扫描，输出顺序不依赖map遍历
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Year != records[j].Year {
			return records[i].Year < records[j].Year
		}
		return rank[records[i].Term] < rank[records[j].Term]
	})

	rows := make([]TrendRow, 0, len(records))
	for start := 0; start < len(records); {
		end := start
		key := records[start].Key()
		var row TrendRow
		var retention, satisfaction float64
		for end < len(records) && records[end].Key() == key {
			r := records[end]
			row.Applications += r.Applications
			row.Admitted += r.Admitted
			row.Enrolled += r.Enrolled
			retention += r.RetentionRate
			satisfaction += r.Satisfaction
			end++
		}
		n := float64(end - start)
		row.Year, row.Term = key.Year, key.Term
		row.RetentionRate = retention / n
		row.Satisfaction = satisfaction / n
		rows = append(rows, row)
		start = end
	}
	return rows
}

// DepartmentTrendByYear 按年份升序汇总四个院系的入学人数(跨学期求和)
func DepartmentTrendByYear(ds *dataset.Dataset) []DepartmentTrendRow {
	records := ds.Records()
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Year < records[j].Year
	})

	rows := make([]DepartmentTrendRow, 0, len(records))
	for start := 0; start < len(records); {
		row := DepartmentTrendRow{Year: records[start].Year}
		end := start
		for end < len(records) && records[end].Year == row.Year {
			r := records[end]
			row.Engineering += r.EngineeringEnrolled
			row.Business += r.BusinessEnrolled
			row.Arts += r.ArtsEnrolled
			row.Science += r.ScienceEnrolled
			end++
		}
		rows = append(rows, row)
		start = end
	}
	return rows
}

// SubsetByTerm 返回学期完全匹配的记录，保持原有顺序
func SubsetByTerm(ds *dataset.Dataset, term string) []dataset.Record {
	subset := make([]dataset.Record, 0)
	for i := 0; i < ds.Len(); i++ {
		if r := ds.At(i); r.Term == term {
			subset = append(subset, r)
		}
	}
	return subset
}

// DepartmentBreakdown 单条记录的院系分布，顺序固定
func DepartmentBreakdown(r dataset.Record) []DepartmentCount {
	return []DepartmentCount{
		{Department: "Engineering", Enrolled: r.EngineeringEnrolled},
		{Department: "Business", Enrolled: r.BusinessEnrolled},
		{Department: "Arts", Enrolled: r.ArtsEnrolled},
		{Department: "Science", Enrolled: r.ScienceEnrolled},
	}
}

// Options 年份、学期下拉框的可选值
func Options(ds *dataset.Dataset) FilterOptions {
	opts := FilterOptions{Years: []int{}, Terms: []string{}}
	seenYear := make(map[int]bool)
	seenTerm := make(map[string]bool)
	for i := 0; i < ds.Len(); i++ {
		r := ds.At(i)
		if !seenYear[r.Year] {
			seenYear[r.Year] = true
			opts.Years = append(opts.Years, r.Year)
		}
		if !seenTerm[r.Term] {
			seenTerm[r.Term] = true
			opts.Terms = append(opts.Terms, r.Term)
		}
	}
	return opts
}

// CompareTerms 两个学期并列对比，例如 Spring 与 Fall
func CompareTerms(ds *dataset.Dataset, a, b string) TermComparison {
	return TermComparison{
		Terms: [2]string{a, b},
		Subsets: map[string][]dataset.Record{
			a: SubsetByTerm(ds, a),
			b: SubsetByTerm(ds, b),
		},
	}
}

func termRank(records []dataset.Record) map[string]int {
	rank := make(map[string]int)
	for _, r := range records {
		if _, ok := rank[r.Term]; !ok {
			rank[r.Term] = len(rank)
		}
	}
	return rank
}
