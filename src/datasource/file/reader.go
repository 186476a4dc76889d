// reader.go
package file

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// ErrEmptyFile 文件没有任何内容(连表头都没有)
var ErrEmptyFile = errors.New("数据文件为空")

// ReadOptions 读取选项
type ReadOptions struct {
	Encoding  string // CSV编码：utf-8(默认)、gbk、gb18030
	SheetName string // xlsx工作表名，为空取第一个
}

// ReadTable 根据扩展名读取 .csv / .xlsx 文件为字符串列的DataFrame
func ReadTable(filePath string, opts ReadOptions) (dataframe.DataFrame, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".xlsx":
		return ReadXLSX(filePath, opts.SheetName)
	case ".csv", ".txt", "":
		f, err := os.Open(filePath)
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		defer f.Close()
		return ReadCSV(f, opts.Encoding)
	default:
		return dataframe.DataFrame{}, fmt.Errorf("不支持的文件类型: %s", filepath.Ext(filePath))
	}
}

// ReadCSV 读取CSV为DataFrame，第一行为表头
func ReadCSV(r io.Reader, enc string) (dataframe.DataFrame, error) {
	decoder, err := decoderFor(enc)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	if decoder != nil {
		r = transform.NewReader(r, decoder.NewDecoder())
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("解析CSV失败: %w", err)
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	return recordsToDataFrame(records)
}

func decoderFor(enc string) (encoding.Encoding, error) {
	switch strings.ToLower(enc) {
	case "", "utf-8", "utf8":
		return nil, nil
	case "gbk":
		return simplifiedchinese.GBK, nil
	case "gb18030":
		return simplifiedchinese.GB18030, nil
	default:
		return nil, fmt.Errorf("不支持的编码: %s", enc)
	}
}

// ReadXLSX 使用tealeg/xlsx读取工作表，第一行为表头
func ReadXLSX(filePath, sheetName string) (dataframe.DataFrame, error) {
	xlFile, err := xlsx.OpenFile(filePath)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("xlsx open file false: %w", err)
	}

	if len(xlFile.Sheets) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("excel文件中没有工作表")
	}
	sheet := xlFile.Sheets[0]
	if sheetName != "" {
		s, ok := xlFile.Sheet[sheetName]
		if !ok {
			return dataframe.DataFrame{}, fmt.Errorf("工作表 %s 不存在", sheetName)
		}
		sheet = s
	}

	return recordsToDataFrame(sheetRecords(sheet))
}

// sheetRecords 将xlsx.Sheet转换为二维字符串，去掉尾部空行
func sheetRecords(sheet *xlsx.Sheet) [][]string {
	records := make([][]string, 0, len(sheet.Rows))
	width := 0
	for i, row := range sheet.Rows {
		if row == nil {
			continue
		}
		cells := make([]string, 0, len(row.Cells))
		for _, cell := range row.Cells {
			cells = append(cells, strings.TrimSpace(cell.Value))
		}
		if i == 0 {
			width = len(cells)
		}
		records = append(records, cells)
	}

	for len(records) > 1 && isBlank(records[len(records)-1]) {
		records = records[:len(records)-1]
	}

	// 单元格不足的行补齐
	for i := range records {
		for len(records[i]) < width {
			records[i] = append(records[i], "")
		}
	}
	return records
}

func isBlank(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}

// recordsToDataFrame 第一行为表头，其余为数据，全部按字符串列创建
func recordsToDataFrame(records [][]string) (dataframe.DataFrame, error) {
	if len(records) == 0 || isBlank(records[0]) {
		return dataframe.DataFrame{}, ErrEmptyFile
	}

	headers := records[0]
	seen := make(map[string]bool, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(h)
		if h == "" {
			return dataframe.DataFrame{}, fmt.Errorf("第%d列表头为空", i+1)
		}
		if seen[h] {
			return dataframe.DataFrame{}, fmt.Errorf("表头重复: %s", h)
		}
		seen[h] = true
		headers[i] = h
	}

	columns := make([][]string, len(headers))
	for i := range columns {
		columns[i] = make([]string, 0, len(records)-1)
	}

	for r, row := range records[1:] {
		if len(row) != len(headers) {
			return dataframe.DataFrame{}, fmt.Errorf("第%d行列数为%d，表头为%d列", r+2, len(row), len(headers))
		}
		for i, cell := range row {
			columns[i] = append(columns[i], cell)
		}
	}

	seriesList := make([]series.Series, len(headers))
	for i, colName := range headers {
		seriesList[i] = series.New(columns[i], series.String, colName)
	}

	df := dataframe.New(seriesList...)
	if df.Err != nil {
		return dataframe.DataFrame{}, df.Err
	}
	return df, nil
}

// EnsureDir 确保目录存在
func EnsureDir(dirPath string) error {
	if info, err := os.Stat(dirPath); err == nil {
		if info.IsDir() {
			return nil
		}
		return fmt.Errorf("%s exists but is not a directory", dirPath)
	}
	return os.MkdirAll(dirPath, 0755)
}
