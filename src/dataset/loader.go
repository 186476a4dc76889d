package dataset

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"UniversityDashboard/src/config"
	"UniversityDashboard/src/datasource/file"
	"UniversityDashboard/src/storage"
	"UniversityDashboard/src/utils"

	"github.com/go-gota/gota/dataframe"
)

// 必需字段，键与 dataconfig.json 的 columns 一致
var (
	intFields   = []string{"year", "applications", "admitted", "enrolled", "engineering", "business", "arts", "science"}
	floatFields = []string{"retention", "satisfaction"}
	countFields = []string{"applications", "admitted", "enrolled", "engineering", "business", "arts", "science"}

	requiredFields = append(append([]string{"term"}, intFields...), floatFields...)
)

// LoaderConfig 加载参数
type LoaderConfig struct {
	Path      string
	Encoding  string
	SheetName string
	Strict    bool              // 校验问题和重复主键直接拒绝
	Columns   map[string]string // 字段 -> 表头名，缺省使用默认表头
}

// Loader 惰性加载数据集，整个生命周期只读一次文件
type Loader struct {
	cfg     LoaderConfig
	columns *config.DataConfig
	logger  *storage.Logger

	once sync.Once
	ds   *Dataset
	err  error
}

// NewLoader 创建加载器，logger 可为 nil
func NewLoader(cfg LoaderConfig, logger *storage.Logger) *Loader {
	dc := config.DefaultDataConfig()
	for k, v := range cfg.Columns {
		if v != "" {
			dc.Columns[k] = v
		}
	}
	return &Loader{cfg: cfg, columns: dc, logger: logger}
}

// NewLoaderFromConfig 由应用配置创建加载器
func NewLoaderFromConfig(cfg *config.Config, dcfg *config.DataConfig, logger *storage.Logger) *Loader {
	lc := LoaderConfig{
		Path:      cfg.DataFile,
		Encoding:  cfg.Encoding,
		SheetName: cfg.SheetName,
		Strict:    cfg.Strict,
	}
	if dcfg != nil {
		lc.Columns = dcfg.Columns
	}
	return NewLoader(lc, logger)
}

// Path 数据文件路径
func (l *Loader) Path() string { return l.cfg.Path }

// Load 读取并解析数据集；首次调用后结果(包括错误)被缓存
func (l *Loader) Load() (*Dataset, error) {
	l.once.Do(func() {
		t1 := time.Now()
		l.ds, l.err = l.load()
		if l.err != nil {
			l.logger.Error(l.err.Error())
			return
		}
		l.logger.Info(fmt.Sprintf("数据集加载完成: %s, %d行, 耗时%v", l.cfg.Path, l.ds.Len(), time.Since(t1)))
	})
	return l.ds, l.err
}

func (l *Loader) load() (*Dataset, error) {
	df, err := file.ReadTable(l.cfg.Path, file.ReadOptions{
		Encoding:  l.cfg.Encoding,
		SheetName: l.cfg.SheetName,
	})
	if err != nil {
		return nil, &ResourceError{Path: l.cfg.Path, Op: "open", Err: err}
	}

	records, err := l.parse(df)
	if err != nil {
		return nil, &ResourceError{Path: l.cfg.Path, Op: "parse", Err: err}
	}

	ds := New(l.cfg.Path, records)
	ds.Issues = Validate(records, l.columns)
	ds.Duplicates = DuplicateKeys(records)

	if l.cfg.Strict {
		if err := strictErr(ds); err != nil {
			return nil, &ResourceError{Path: l.cfg.Path, Op: "validate", Err: err}
		}
	}

	for _, issue := range ds.Issues {
		l.logger.Warning("数据校验: " + issue.Error())
	}
	for _, k := range ds.Duplicates {
		l.logger.Warning(fmt.Sprintf("重复的年份/学期: %d %s，查询时取第一行", k.Year, k.Term))
	}
	return ds, nil
}

func strictErr(ds *Dataset) error {
	var errs []error
	for _, issue := range ds.Issues {
		errs = append(errs, issue)
	}
	for _, k := range ds.Duplicates {
		errs = append(errs, fmt.Errorf("重复的年份/学期: %d %s", k.Year, k.Term))
	}
	return errors.Join(errs...)
}

// parse 将字符串列的DataFrame转换为记录，列顺序无关
func (l *Loader) parse(df dataframe.DataFrame) ([]Record, error) {
	var missing []string
	for _, key := range requiredFields {
		if !utils.HasColumn(df, l.columns.GetColumn(key)) {
			missing = append(missing, l.columns.GetColumn(key))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("缺少列: %s", strings.Join(missing, ", "))
	}

	known := make([]string, 0, len(requiredFields))
	for _, key := range requiredFields {
		known = append(known, l.columns.GetColumn(key))
	}
	for _, name := range df.Names() {
		if !utils.Contains(known, name) {
			l.logger.Warning("忽略未知列: " + name)
		}
	}

	cols := make(map[string][]string, len(requiredFields))
	for _, key := range requiredFields {
		cols[key] = df.Col(l.columns.GetColumn(key)).Records()
	}

	records := make([]Record, df.Nrow())
	for i := range records {
		row := i + 2
		ints := make(map[string]int, len(intFields))
		for _, key := range intFields {
			v, err := strconv.Atoi(strings.TrimSpace(cols[key][i]))
			if err != nil {
				return nil, fmt.Errorf("第%d行 %s 列无法解析为整数: %q", row, l.columns.GetColumn(key), cols[key][i])
			}
			ints[key] = v
		}
		floats := make(map[string]float64, len(floatFields))
		for _, key := range floatFields {
			v, err := strconv.ParseFloat(strings.TrimSpace(cols[key][i]), 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("第%d行 %s 列无法解析为数值: %q", row, l.columns.GetColumn(key), cols[key][i])
			}
			floats[key] = v
		}
		term := strings.TrimSpace(cols["term"][i])
		if term == "" || term == "NaN" {
			return nil, fmt.Errorf("第%d行 %s 列为空", row, l.columns.GetColumn("term"))
		}

		records[i] = Record{
			Year:                ints["year"],
			Term:                term,
			Applications:        ints["applications"],
			Admitted:            ints["admitted"],
			Enrolled:            ints["enrolled"],
			RetentionRate:       floats["retention"],
			Satisfaction:        floats["satisfaction"],
			EngineeringEnrolled: ints["engineering"],
			BusinessEnrolled:    ints["business"],
			ArtsEnrolled:        ints["arts"],
			ScienceEnrolled:     ints["science"],
		}
	}
	return records, nil
}

// Validate 检查负数计数与超出 [0,100] 的百分比
func Validate(records []Record, dc *config.DataConfig) []*ValidationError {
	if dc == nil {
		dc = config.DefaultDataConfig()
	}
	var issues []*ValidationError
	for i, r := range records {
		counts := map[string]int{
			"applications": r.Applications,
			"admitted":     r.Admitted,
			"enrolled":     r.Enrolled,
			"engineering":  r.EngineeringEnrolled,
			"business":     r.BusinessEnrolled,
			"arts":         r.ArtsEnrolled,
			"science":      r.ScienceEnrolled,
		}
		for _, key := range countFields {
			if counts[key] < 0 {
				issues = append(issues, &ValidationError{
					Row:    i + 2,
					Column: dc.GetColumn(key),
					Value:  strconv.Itoa(counts[key]),
					Reason: "计数不能为负",
				})
			}
		}
		pcts := map[string]float64{"retention": r.RetentionRate, "satisfaction": r.Satisfaction}
		for _, key := range floatFields {
			if v := pcts[key]; v < 0 || v > 100 {
				issues = append(issues, &ValidationError{
					Row:    i + 2,
					Column: dc.GetColumn(key),
					Value:  strconv.FormatFloat(v, 'f', -1, 64),
					Reason: "百分比超出[0,100]",
				})
			}
		}
	}
	return issues
}

// DuplicateKeys 返回重复出现的 (Year, Term)，每次重复出现记一次
func DuplicateKeys(records []Record) []Key {
	seen := make(map[Key]bool, len(records))
	var dups []Key
	for _, r := range records {
		k := r.Key()
		if seen[k] {
			dups = append(dups, k)
			continue
		}
		seen[k] = true
	}
	return dups
}
