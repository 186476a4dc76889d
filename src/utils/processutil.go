package utils

import (
	"fmt"
	"io"

	"github.com/go-gota/gota/dataframe"
	"github.com/xuri/excelize/v2"
)

func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// 辅助函数：判断DataFrame是否有某列
func HasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// Sheet 一个待写入的工作表
type Sheet struct {
	Name  string
	Frame dataframe.DataFrame
}

// SaveSheetsToExcel 多个DataFrame按顺序保存为同一工作簿的多个工作表
func SaveSheetsToExcel(filePath string, sheets ...Sheet) error {
	f, err := buildWorkbook(sheets)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("保存Excel文件失败: %w", err)
	}
	return nil
}

// WriteExcel 工作簿写入 w，用于下载
func WriteExcel(w io.Writer, sheets ...Sheet) error {
	f, err := buildWorkbook(sheets)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("写入Excel失败: %w", err)
	}
	return nil
}

func buildWorkbook(sheets []Sheet) (*excelize.File, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("没有需要写入的工作表")
	}

	f := excelize.NewFile()
	const defaultSheet = "Sheet1"

	for i, sh := range sheets {
		if i == 0 && sh.Name != defaultSheet {
			if err := f.SetSheetName(defaultSheet, sh.Name); err != nil {
				f.Close()
				return nil, fmt.Errorf("重命名工作表失败: %w", err)
			}
		} else if i > 0 {
			if _, err := f.NewSheet(sh.Name); err != nil {
				f.Close()
				return nil, fmt.Errorf("创建工作表 %s 失败: %w", sh.Name, err)
			}
		}
		if err := writeFrame(f, sh.Name, sh.Frame); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func writeFrame(f *excelize.File, sheetName string, df dataframe.DataFrame) error {
	// 写入列名
	colNames := df.Names()
	for i, name := range colNames {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, name); err != nil {
			return fmt.Errorf("写入表头失败: %w", err)
		}
	}

	// 写入数据
	for colIdx, colName := range colNames {
		col := df.Col(colName)
		for rowIdx := 0; rowIdx < df.Nrow(); rowIdx++ {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := f.SetCellValue(sheetName, cell, col.Val(rowIdx)); err != nil {
				return fmt.Errorf("写入数据失败: %w", err)
			}
		}
	}
	return nil
}
