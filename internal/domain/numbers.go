package domain

import "fmt"

// Display numbers are zero-padded sequences with a localized prefix.
func OrderNumber(id int64) string     { return fmt.Sprintf("З-%04d", id) }
func WorkOrderNumber(id int64) string { return fmt.Sprintf("ЗН-%04d", id) }
func ReceiptNumber(id int64) string   { return fmt.Sprintf("ПН-%04d", id) }
