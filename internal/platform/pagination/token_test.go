package pagination

import (
	"errors"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	at := time.Date(2025, time.March, 10, 12, 0, 0, 123456789, time.UTC)
	token := EncodeToken(at, "ord_01HXYZ")

	gotTime, gotID, err := DecodeToken(token)
	if err != nil {
		t.Fatalf("DecodeToken() error = %v", err)
	}
	if !gotTime.Equal(at) {
		t.Fatalf("expected %v, got %v", at, gotTime)
	}
	if gotID != "ord_01HXYZ" {
		t.Fatalf("expected id ord_01HXYZ, got %q", gotID)
	}
}

func TestDecodeTokenRejectsGarbage(t *testing.T) {
	for _, token := range []string{"", "   ", "%%%", "bm90LWEtdG9rZW4"} {
		if _, _, err := DecodeToken(token); !errors.Is(err, ErrInvalidPageToken) {
			t.Fatalf("expected ErrInvalidPageToken for %q, got %v", token, err)
		}
	}
}

func TestClampPageSize(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{0, DefaultPageSize},
		{-5, DefaultPageSize},
		{1, 1},
		{MaxPageSize, MaxPageSize},
		{MaxPageSize + 50, MaxPageSize},
	}
	for _, tc := range cases {
		if got := ClampPageSize(tc.in); got != tc.want {
			t.Errorf("ClampPageSize(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
