package pagination

import (
	"errors"
	"net/http/httptest"
	"net/url"
	"reflect"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	params, err := Parse(url.Values{})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if params.PageSize != DefaultPageSize {
		t.Fatalf("expected default page size %d got %d", DefaultPageSize, params.PageSize)
	}
	if params.PageToken != "" || params.Status != nil {
		t.Fatalf("expected empty params, got %#v", params)
	}
}

func TestParsePageSize(t *testing.T) {
	values := url.Values{}
	values.Set("pageSize", "30")
	params, err := Parse(values)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if params.PageSize != 30 {
		t.Fatalf("expected page size 30 got %d", params.PageSize)
	}

	values.Set("pageSize", "400")
	params, err = Parse(values)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if params.PageSize != MaxPageSize {
		t.Fatalf("expected page size clamped to %d got %d", MaxPageSize, params.PageSize)
	}

	for _, raw := range []string{"abc", "0", "-3"} {
		values.Set("pageSize", raw)
		if _, err := Parse(values); !errors.Is(err, ErrInvalidPageSize) {
			t.Fatalf("pageSize %q: expected ErrInvalidPageSize, got %v", raw, err)
		}
	}
}

func TestTokenRoundTrip(t *testing.T) {
	cursor := Cursor{StartAfter: []string{"2025-05-01T09:30:00Z", "ORD-1"}}
	token, err := EncodeToken(cursor)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeToken(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(decoded, cursor) {
		t.Fatalf("expected %#v got %#v", cursor, decoded)
	}

	empty, err := EncodeToken(Cursor{})
	if err != nil || empty != "" {
		t.Fatalf("expected empty token, got %q (%v)", empty, err)
	}
}

func TestParseRejectsBadToken(t *testing.T) {
	values := url.Values{}
	values.Set("pageToken", "%%%not-base64")
	if _, err := Parse(values); !errors.Is(err, ErrInvalidPageToken) {
		t.Fatalf("expected ErrInvalidPageToken, got %v", err)
	}
}

func TestFromRequestCollectsStatuses(t *testing.T) {
	req := httptest.NewRequest("GET", "/orders?status=pending,packed&status=out+for+delivery&status=", nil)
	params, err := FromRequest(req)
	if err != nil {
		t.Fatalf("FromRequest returned error: %v", err)
	}
	want := []string{"pending", "packed", "out for delivery"}
	if !reflect.DeepEqual(params.Status, want) {
		t.Fatalf("expected %v got %v", want, params.Status)
	}
}
