package service

import "fmt"

// DescribeCell формирует текст подсказки для ячейки
func DescribeCell(cell GridCell) string {
	return fmt.Sprintf("metric: %s, time: %s, result: %s", cell.RowKey, cell.ColKey, cell.Result)
}
