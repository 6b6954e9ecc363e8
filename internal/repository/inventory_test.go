package repository

import "testing"

func qty(n int) *int { return &n }

func TestPartQtyAdjustment(t *testing.T) {
	cases := []struct {
		name   string
		oldQty int
		newQty *int
		linked bool
		want   int
	}{
		{"decrease returns the surplus", 5, qty(2), true, 3},
		{"increase consumes the extra", 2, qty(5), true, -3},
		{"unchanged qty is a no-op", 4, qty(4), true, 0},
		{"no qty in the request", 4, nil, true, 0},
		{"unlinked part never touches stock", 5, qty(1), false, 0},
	}
	for _, c := range cases {
		if got := partQtyAdjustment(c.oldQty, c.newQty, c.linked); got != c.want {
			t.Errorf("%s: got %d, want %d", c.name, got, c.want)
		}
	}
}

// A sequence of qty edits nets out to old minus final: the product balance
// only ever reflects the part's current quantity.
func TestPartQtyAdjustmentSequenceNets(t *testing.T) {
	current := 3
	total := 0
	for _, next := range []int{7, 2, 5} {
		total += partQtyAdjustment(current, qty(next), true)
		current = next
	}
	if total != 3-5 {
		t.Errorf("net adjustment = %d, want %d", total, 3-5)
	}
}

func TestPartReturnQty(t *testing.T) {
	// deleting returns exactly what the part consumed, so delete plus re-add
	// with the same qty leaves the product balance unchanged
	for _, q := range []int{1, 3, 10} {
		if got := partReturnQty(q, true); got != q {
			t.Errorf("qty %d: returned %d to stock", q, got)
		}
	}
	if got := partReturnQty(7, false); got != 0 {
		t.Errorf("unlinked part returned %d to stock", got)
	}
}

func TestReceiptTotal(t *testing.T) {
	items := []CreateReceiptItem{
		{ProductID: 1, Quantity: 3, Price: 100},
		{ProductID: 2, Quantity: 2, Price: 250.50},
	}
	if got := receiptTotal(items); got != 801 {
		t.Errorf("total = %v, want 801", got)
	}
	if got := receiptTotal(nil); got != 0 {
		t.Errorf("empty total = %v", got)
	}

	// lines without a product link still count toward the document total,
	// they just never touch inventory
	items = append(items, CreateReceiptItem{ProductID: 0, Quantity: 1, Price: 99})
	if got := receiptTotal(items); got != 900 {
		t.Errorf("total with unlinked line = %v, want 900", got)
	}
}

func TestRecordableReceiptItem(t *testing.T) {
	cases := []struct {
		item CreateReceiptItem
		want bool
	}{
		{CreateReceiptItem{ProductID: 1, Quantity: 2, Price: 50}, true},
		{CreateReceiptItem{ProductID: 0, Quantity: 2, Price: 50}, false},
		{CreateReceiptItem{ProductID: 1, Quantity: 0, Price: 50}, false},
		{CreateReceiptItem{ProductID: 1, Quantity: -1, Price: 50}, false},
	}
	for i, c := range cases {
		if got := recordableReceiptItem(c.item); got != c.want {
			t.Errorf("case %d: recordable = %v, want %v", i, got, c.want)
		}
	}
}
