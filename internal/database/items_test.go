package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nao1215/linkscan/internal/model"
)

// TestInsertAndListItems tests item storage and filtering.
func TestInsertAndListItems(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	scan := createTestScan(t, db, "https://example.com")
	now := time.Now()

	results := []model.LinkResult{
		{URL: "http://a", OK: true, StatusCode: 200, StatusText: "OK"},
		{URL: "http://b", OK: false, StatusCode: 404, StatusText: "Not Found", Redirected: true},
		{URL: "http://c", OK: false, Error: "timeout after 10s"},
		{URL: "http://d", OK: true, StatusCode: 301, StatusText: "Moved Permanently"},
	}
	items := make([]*model.ScanItem, len(results))
	for i, r := range results {
		items[i] = model.NewScanItem(scan.ID, r, now)
	}

	if err := db.InsertItems(ctx, items); err != nil {
		t.Fatalf("InsertItems() error = %v", err)
	}

	all, err := db.AllItems(ctx, scan.ID, FilterAll)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Fatalf("AllItems() = %d items, want 4", len(all))
	}
	for i, item := range all {
		if item.URL != results[i].URL {
			t.Errorf("item %d URL = %q, want %q (insertion order)", i, item.URL, results[i].URL)
		}
	}

	b := all[1]
	if b.StatusCode == nil || *b.StatusCode != 404 || b.StatusText == nil || *b.StatusText != "Not Found" {
		t.Errorf("item b = %+v", b)
	}
	if b.Redirected == nil || !*b.Redirected {
		t.Error("item b should be redirected")
	}
	c := all[2]
	if c.StatusCode != nil || c.Redirected != nil || c.Error == nil || *c.Error != "timeout after 10s" {
		t.Errorf("item c = %+v", c)
	}

	testCases := []struct {
		filter ItemFilter
		want   int
	}{
		{FilterAll, 4},
		{FilterOK, 2},
		{FilterBroken, 2},
	}
	for _, tc := range testCases {
		n, err := db.CountItems(ctx, scan.ID, tc.filter)
		if err != nil {
			t.Fatal(err)
		}
		if n != tc.want {
			t.Errorf("CountItems(%s) = %d, want %d", tc.filter, n, tc.want)
		}
		page, err := db.ListItems(ctx, scan.ID, ListItemsOptions{Status: tc.filter})
		if err != nil {
			t.Fatal(err)
		}
		if len(page.Items) != tc.want {
			t.Errorf("ListItems(%s) = %d items, want %d", tc.filter, len(page.Items), tc.want)
		}
	}

	deleted, err := deleteItems(ctx, db.db, scan.ID)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 4 {
		t.Errorf("deleteItems() = %d, want 4", deleted)
	}
}

// TestInsertItemsRejectsInvalid tests that the batch is all-or-nothing.
func TestInsertItemsRejectsInvalid(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	scan := createTestScan(t, db, "https://example.com")

	good := model.NewScanItem(scan.ID, model.LinkResult{URL: "http://a", OK: true, StatusCode: 200}, time.Now())
	bad := &model.ScanItem{ID: "bad", ScanID: scan.ID, URL: "http://b", OK: true}

	err := db.InsertItems(ctx, []*model.ScanItem{good, bad})
	if !errors.Is(err, model.ErrOKWithoutStatus) {
		t.Fatalf("error = %v, want ErrOKWithoutStatus", err)
	}
	if n, _ := db.CountItems(ctx, scan.ID, FilterAll); n != 0 {
		t.Errorf("items stored = %d, want 0", n)
	}
}

// TestInsertItemsUnknownScan tests the foreign key on scan_items.
func TestInsertItemsUnknownScan(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	item := model.NewSentinelItem("no-such-scan", "http://seed", errors.New("boom"), time.Now())

	if err := db.InsertItem(context.Background(), item); err == nil {
		t.Error("expected foreign key violation")
	}
}

// TestListItemsPagination tests cursor pagination over items.
func TestListItemsPagination(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	scan := createTestScan(t, db, "https://example.com")

	items := make([]*model.ScanItem, 0, 7)
	for i := range 7 {
		res := model.LinkResult{URL: fmt.Sprintf("http://x/%d", i), OK: i%2 == 0, StatusCode: 200}
		if !res.OK {
			res.StatusCode = 500
		}
		items = append(items, model.NewScanItem(scan.ID, res, time.Now()))
	}
	if err := db.InsertItems(ctx, items); err != nil {
		t.Fatal(err)
	}

	var (
		seen   []string
		cursor string
		pages  int
	)
	for {
		page, err := db.ListItems(ctx, scan.ID, ListItemsOptions{Cursor: cursor, Limit: 3})
		if err != nil {
			t.Fatal(err)
		}
		pages++
		for _, item := range page.Items {
			seen = append(seen, item.URL)
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	if pages != 3 {
		t.Errorf("pages = %d, want 3", pages)
	}
	if len(seen) != 7 {
		t.Fatalf("seen %d items, want 7", len(seen))
	}
	for i, u := range seen {
		if want := fmt.Sprintf("http://x/%d", i); u != want {
			t.Errorf("item %d = %q, want %q", i, u, want)
		}
	}

	broken, err := db.ListItems(ctx, scan.ID, ListItemsOptions{Status: FilterBroken, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(broken.Items) != 2 || broken.NextCursor == "" {
		t.Errorf("broken page = %d items, cursor %q", len(broken.Items), broken.NextCursor)
	}
	rest, err := db.ListItems(ctx, scan.ID, ListItemsOptions{Status: FilterBroken, Limit: 2, Cursor: broken.NextCursor})
	if err != nil {
		t.Fatal(err)
	}
	if len(rest.Items) != 1 || rest.Items[0].URL != "http://x/5" || rest.NextCursor != "" {
		t.Errorf("second broken page = %+v", rest)
	}
}

// TestParseItemFilter tests filter parsing.
func TestParseItemFilter(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input   string
		want    ItemFilter
		wantErr bool
	}{
		{"", FilterAll, false},
		{"all", FilterAll, false},
		{"OK", FilterOK, false},
		{" broken ", FilterBroken, false},
		{"failed", "", true},
	}
	for _, tc := range testCases {
		got, err := ParseItemFilter(tc.input)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidFilter) {
				t.Errorf("ParseItemFilter(%q) error = %v, want ErrInvalidFilter", tc.input, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseItemFilter(%q) = %q, %v; want %q", tc.input, got, err, tc.want)
		}
	}
}
