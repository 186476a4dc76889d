package processor

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"UniversityDashboard/src/dataset"
	"UniversityDashboard/src/datasource/file"
	"UniversityDashboard/src/utils"
)

// ReportSheets 报表工作簿的全部工作表，顺序固定
func ReportSheets(ds *dataset.Dataset, compare [2]string) []utils.Sheet {
	sheets := []utils.Sheet{
		{Name: "Records", Frame: RecordFrame(ds.Records())},
		{Name: "Trends", Frame: TrendFrame(TrendByYearTerm(ds))},
		{Name: "DepartmentTrends", Frame: DepartmentTrendFrame(DepartmentTrendByYear(ds))},
	}
	names := termSheetNames(compare)
	for i, term := range compare {
		sheets = append(sheets, utils.Sheet{Name: names[i], Frame: RecordFrame(SubsetByTerm(ds, term))})
	}
	return append(sheets, utils.Sheet{Name: "Summary", Frame: SummaryFrame(Summarize(ds))})
}

// ExportReport 导出报表到 dir，文件名带时间戳，返回文件路径
func ExportReport(ds *dataset.Dataset, compare [2]string, dir string, now time.Time) (string, error) {
	if err := file.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("创建报表目录失败: %w", err)
	}
	path := filepath.Join(dir, "dashboard_"+now.Format("20060102150405")+".xlsx")
	if err := utils.SaveSheetsToExcel(path, ReportSheets(ds, compare)...); err != nil {
		return "", err
	}
	return path, nil
}

// 固定工作表名，学期工作表不能与之重名(excelize按不区分大小写比较)
var fixedSheets = []string{"Records", "Trends", "DepartmentTrends", "Summary"}

// excelize工作表名最多31个字符
const maxSheetName = 31

// termSheetNames 学期名转为合法且不重复的工作表名
func termSheetNames(terms [2]string) [2]string {
	used := append([]string{}, fixedSheets...)
	var names [2]string
	for i, term := range terms {
		name := cleanSheetName(term)
		if name == "" || sheetTaken(used, name) {
			name = cleanSheetName("Term_" + name)
		}
		if sheetTaken(used, name) {
			name = cleanSheetName(fmt.Sprintf("Term%d_%s", i+1, term))
		}
		used = append(used, name)
		names[i] = name
	}
	return names
}

func cleanSheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	name = strings.Trim(name, "'")
	if utf8.RuneCountInString(name) > maxSheetName {
		name = string([]rune(name)[:maxSheetName])
	}
	return name
}

func sheetTaken(used []string, name string) bool {
	for _, u := range used {
		if strings.EqualFold(u, name) {
			return true
		}
	}
	return false
}
