package repository

// Inventory ledger arithmetic. Product quantity is a running balance: adding
// a part to a work order consumes stock, updating or deleting the part gives
// the difference back, and a stock receipt is the only way the balance grows.
// The helpers here hold that arithmetic so the transactions in
// workorder_repository.go and receipt_repository.go stay pure SQL plumbing.

// partQtyAdjustment returns the amount to add back to a linked product when a
// part's quantity changes from oldQty to newQty. A nil newQty (no change
// requested), an unlinked part or an unchanged quantity adjust nothing.
func partQtyAdjustment(oldQty int, newQty *int, linked bool) int {
	if !linked || newQty == nil || *newQty == oldQty {
		return 0
	}
	return oldQty - *newQty
}

// partReturnQty is the amount restored to a linked product when its part row
// is deleted: exactly what the part consumed, so a delete and re-add leave
// the balance unchanged.
func partReturnQty(qty int, linked bool) int {
	if !linked {
		return 0
	}
	return qty
}

// receiptTotal sums quantity times price over every submitted line. The
// document total covers all lines, including ones that are not recorded.
func receiptTotal(items []CreateReceiptItem) float64 {
	var total float64
	for _, it := range items {
		total += float64(it.Quantity) * it.Price
	}
	return total
}

// recordableReceiptItem reports whether a line touches inventory: it needs a
// product link and a positive quantity.
func recordableReceiptItem(it CreateReceiptItem) bool {
	return it.ProductID != 0 && it.Quantity > 0
}
