// data.go
package processor

import (
	"math"
	"time"

	"UniversityDashboard/src/dataset"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// 与数据文件一致的列名
const (
	ColYear         = "Year"
	ColTerm         = "Term"
	ColApplications = "Applications"
	ColAdmitted     = "Admitted"
	ColEnrolled     = "Enrolled"
	ColRetention    = "Retention Rate (%)"
	ColSatisfaction = "Student Satisfaction (%)"
	ColEngineering  = "Engineering Enrolled"
	ColBusiness     = "Business Enrolled"
	ColArts         = "Arts Enrolled"
	ColScience      = "Science Enrolled"
)

// NumericColumns 参与统计的数值列
var NumericColumns = []string{
	ColApplications, ColAdmitted, ColEnrolled,
	ColRetention, ColSatisfaction,
	ColEngineering, ColBusiness, ColArts, ColScience,
}

// Dashboard 一次筛选所需的全部数据
type Dashboard struct {
	Selection        dataset.Key          `json:"selection"`
	Metrics          dataset.Record       `json:"metrics"`
	Departments      []DepartmentCount    `json:"departments"`
	Trends           []TrendRow           `json:"trends"`
	DepartmentTrends []DepartmentTrendRow `json:"department_trends"`
	Comparison       TermComparison       `json:"comparison"`
	GeneratedAt      time.Time            `json:"generated_at"`
}

// ColumnSummary 数值列的描述统计
type ColumnSummary struct {
	Column string  `json:"column"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
}

// BuildDashboard 计算所选 (year, term) 的指标及全部趋势数据
func BuildDashboard(ds *dataset.Dataset, year int, term string, compare [2]string) (*Dashboard, error) {
	rec, err := SelectExact(ds, year, term)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Selection:        dataset.Key{Year: year, Term: term},
		Metrics:          rec,
		Departments:      DepartmentBreakdown(rec),
		Trends:           TrendByYearTerm(ds),
		DepartmentTrends: DepartmentTrendByYear(ds),
		Comparison:       CompareTerms(ds, compare[0], compare[1]),
		GeneratedAt:      time.Now(),
	}, nil
}

// Summarize 使用gota对各数值列做描述统计；空数据集返回空切片
func Summarize(ds *dataset.Dataset) []ColumnSummary {
	summaries := make([]ColumnSummary, 0, len(NumericColumns))
	if ds.Len() == 0 {
		return summaries
	}

	df := RecordFrame(ds.Records())
	for _, col := range NumericColumns {
		s := df.Col(col)
		summaries = append(summaries, ColumnSummary{
			Column: col,
			Mean:   finite(s.Mean()),
			StdDev: finite(s.StdDev()),
			Min:    finite(s.Min()),
			Median: finite(s.Quantile(0.5)),
			Max:    finite(s.Max()),
		})
	}
	return summaries
}

// 单行数据的标准差为NaN，JSON无法编码
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// RecordFrame 记录转换为带类型的DataFrame，列名与数据文件一致
func RecordFrame(records []dataset.Record) dataframe.DataFrame {
	n := len(records)
	years, apps, adm, enr := make([]int, n), make([]int, n), make([]int, n), make([]int, n)
	eng, bus, arts, sci := make([]int, n), make([]int, n), make([]int, n), make([]int, n)
	terms := make([]string, n)
	ret, sat := make([]float64, n), make([]float64, n)

	for i, r := range records {
		years[i], terms[i] = r.Year, r.Term
		apps[i], adm[i], enr[i] = r.Applications, r.Admitted, r.Enrolled
		ret[i], sat[i] = r.RetentionRate, r.Satisfaction
		eng[i], bus[i], arts[i], sci[i] = r.EngineeringEnrolled, r.BusinessEnrolled, r.ArtsEnrolled, r.ScienceEnrolled
	}

	return dataframe.New(
		series.New(years, series.Int, ColYear),
		series.New(terms, series.String, ColTerm),
		series.New(apps, series.Int, ColApplications),
		series.New(adm, series.Int, ColAdmitted),
		series.New(enr, series.Int, ColEnrolled),
		series.New(ret, series.Float, ColRetention),
		series.New(sat, series.Float, ColSatisfaction),
		series.New(eng, series.Int, ColEngineering),
		series.New(bus, series.Int, ColBusiness),
		series.New(arts, series.Int, ColArts),
		series.New(sci, series.Int, ColScience),
	)
}

// TrendFrame 趋势表转换为DataFrame
func TrendFrame(rows []TrendRow) dataframe.DataFrame {
	n := len(rows)
	years, apps, adm, enr := make([]int, n), make([]int, n), make([]int, n), make([]int, n)
	terms := make([]string, n)
	ret, sat := make([]float64, n), make([]float64, n)

	for i, r := range rows {
		years[i], terms[i] = r.Year, r.Term
		apps[i], adm[i], enr[i] = r.Applications, r.Admitted, r.Enrolled
		ret[i], sat[i] = r.RetentionRate, r.Satisfaction
	}

	return dataframe.New(
		series.New(years, series.Int, ColYear),
		series.New(terms, series.String, ColTerm),
		series.New(apps, series.Int, ColApplications),
		series.New(adm, series.Int, ColAdmitted),
		series.New(enr, series.Int, ColEnrolled),
		series.New(ret, series.Float, ColRetention),
		series.New(sat, series.Float, ColSatisfaction),
	)
}

// DepartmentTrendFrame 院系趋势表转换为DataFrame
func DepartmentTrendFrame(rows []DepartmentTrendRow) dataframe.DataFrame {
	n := len(rows)
	years, eng, bus, arts, sci := make([]int, n), make([]int, n), make([]int, n), make([]int, n), make([]int, n)
	for i, r := range rows {
		years[i] = r.Year
		eng[i], bus[i], arts[i], sci[i] = r.Engineering, r.Business, r.Arts, r.Science
	}

	return dataframe.New(
		series.New(years, series.Int, ColYear),
		series.New(eng, series.Int, ColEngineering),
		series.New(bus, series.Int, ColBusiness),
		series.New(arts, series.Int, ColArts),
		series.New(sci, series.Int, ColScience),
	)
}

// SummaryFrame 描述统计转换为DataFrame
func SummaryFrame(summaries []ColumnSummary) dataframe.DataFrame {
	n := len(summaries)
	cols := make([]string, n)
	mean, std, lo, med, hi := make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)
	for i, s := range summaries {
		cols[i] = s.Column
		mean[i], std[i], lo[i], med[i], hi[i] = s.Mean, s.StdDev, s.Min, s.Median, s.Max
	}

	return dataframe.New(
		series.New(cols, series.String, "column"),
		series.New(mean, series.Float, "mean"),
		series.New(std, series.Float, "stddev"),
		series.New(lo, series.Float, "min"),
		series.New(med, series.Float, "median"),
		series.New(hi, series.Float, "max"),
	)
}
