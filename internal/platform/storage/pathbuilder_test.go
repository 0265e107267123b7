package storage

import "testing"

func TestInvoiceKeyUsesBillsLayout(t *testing.T) {
	key, err := Keys{}.InvoiceKey("ORD-01J")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "bills/ORD-01J-bill.pdf" {
		t.Fatalf("unexpected key %s", key)
	}

	key, err = Keys{Prefix: "/archive/bills/"}.InvoiceKey("ORD-01J")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "archive/bills/ORD-01J-bill.pdf" {
		t.Fatalf("unexpected prefixed key %s", key)
	}
}

func TestGroceryImagePath(t *testing.T) {
	path, err := BuildObjectPath(PurposeGroceryImage, PathParams{OrderID: "ORD-1", FileName: "list.jpg"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "orders/ORD-1-list.jpg" {
		t.Fatalf("unexpected path %s", path)
	}

	key, err := Keys{Prefix: "bills", GroceryPrefix: "/uploads/"}.GroceryImageKey("ORD-1", " grocery.jpg ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "uploads/ORD-1-grocery.jpg" {
		t.Fatalf("unexpected grocery key %s", key)
	}
	for _, name := range []string{"", "..", "a\\b"} {
		if _, err := (Keys{}).GroceryImageKey("ORD-1", name); err == nil {
			t.Fatalf("expected error for file name %q", name)
		}
	}
}

func TestBuildObjectPathRejectsInvalidSegment(t *testing.T) {
	for _, id := range []string{"", "../ORD", "a/b"} {
		if _, err := (Keys{}).InvoiceKey(id); err == nil {
			t.Fatalf("expected error for %q", id)
		}
	}
	if _, err := BuildObjectPath("thumbnail", PathParams{OrderID: "ORD-1"}); err == nil {
		t.Fatal("expected unsupported purpose error")
	}
}
