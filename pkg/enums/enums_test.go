package enums

import "testing"

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in      string
		want    Category
		wantErr bool
	}{
		{in: "Men", want: CategoryMen},
		{in: "women", want: CategoryWomen},
		{in: " OUTERWEAR ", want: CategoryOuterwear},
		{in: "All", wantErr: true},
		{in: "Sportswear", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseCategory(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseCategory(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("ParseCategory(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestParseCategoryFilterAcceptsSentinel(t *testing.T) {
	for _, in := range []string{"", "All", "all"} {
		got, err := ParseCategoryFilter(in)
		if err != nil || got != CategoryAll {
			t.Fatalf("ParseCategoryFilter(%q) = %q, %v", in, got, err)
		}
		if !got.IsFilterNoop() {
			t.Fatalf("expected %q to disable filtering", got)
		}
	}
	if CategoryAll.IsValid() {
		t.Fatal("All must not be storable")
	}
	if len(Categories()) != 6 {
		t.Fatalf("expected six categories, got %d", len(Categories()))
	}
}

func TestParseSortKey(t *testing.T) {
	if k, err := ParseSortKey(""); err != nil || k != SortFeatured {
		t.Fatalf("empty sort key should be featured, got %q %v", k, err)
	}
	if k, err := ParseSortKey("Price-Desc"); err != nil || k != SortPriceDesc {
		t.Fatalf("expected price-desc, got %q %v", k, err)
	}
	if _, err := ParseSortKey("alphabetical"); err == nil {
		t.Fatal("expected strict parser to reject unknown key")
	}
}

func TestOrderStatusTransitions(t *testing.T) {
	allowed := map[OrderStatus][]OrderStatus{
		OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
		OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
		OrderStatusShipped:    {OrderStatusDelivered},
	}
	for _, from := range orderStatuses {
		for _, to := range orderStatuses {
			want := false
			for _, candidate := range allowed[from] {
				if candidate == to {
					want = true
				}
			}
			if got := from.CanTransitionTo(to); got != want {
				t.Fatalf("%s -> %s: got %v want %v", from, to, got, want)
			}
		}
	}
	if !OrderStatusDelivered.IsTerminal() || !OrderStatusCancelled.IsTerminal() {
		t.Fatal("delivered and cancelled must be terminal")
	}
	if OrderStatusShipped.IsTerminal() {
		t.Fatal("shipped is not terminal")
	}
}

func TestParsePaymentMethod(t *testing.T) {
	if m, err := ParsePaymentMethod("apple_pay"); err != nil || m != PaymentMethodApplePay {
		t.Fatalf("unexpected %q %v", m, err)
	}
	if _, err := ParsePaymentMethod("cash"); err == nil {
		t.Fatal("expected error for unsupported method")
	}
}

func TestRoleFor(t *testing.T) {
	if RoleFor(true) != RoleAdmin || RoleFor(false) != RoleCustomer {
		t.Fatal("unexpected role mapping")
	}
}
