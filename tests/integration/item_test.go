//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestListItems(t *testing.T) {
	resp := doGet(t, "/api/items/")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	items := decodeJSON[[]itemResponse](t, resp)
	if len(items) != 4 {
		t.Fatalf("expected 4 items, got %d", len(items))
	}
}

func TestGetItem(t *testing.T) {
	resp := doGet(t, "/api/items/"+speakerID)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	item := decodeJSON[itemResponse](t, resp)
	if item.Name != "Bluetooth Speaker" {
		t.Errorf("name: got %q, want %q", item.Name, "Bluetooth Speaker")
	}
	if item.Price != 49.99 {
		t.Errorf("price: got %v, want 49.99", item.Price)
	}
	if item.Currency != "usd" {
		t.Errorf("currency: got %q, want usd", item.Currency)
	}
	if item.DisplayPrice != "49.99" {
		t.Errorf("display_price: got %q, want %q", item.DisplayPrice, "49.99")
	}
}

func TestGetItem_NotFound(t *testing.T) {
	resp := doGet(t, "/api/items/00000000-0000-0000-0000-000000000000")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	body := decodeJSON[errorResponse](t, resp)
	if body.Error == "" {
		t.Error("expected error message in body")
	}
}

func TestBuyItem_ProcessorError(t *testing.T) {
	// The test environment runs with a dummy Stripe key, so session creation
	// fails upstream. The failure must surface as a client error payload,
	// not a 500.
	resp := doGet(t, "/api/items/"+speakerID+"/buy")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	body := decodeJSON[errorResponse](t, resp)
	if body.Error == "" {
		t.Error("expected error message in body")
	}
}
