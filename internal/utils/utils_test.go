package utils

import "testing"

func TestPlainText(t *testing.T) {
	cases := []struct{ in, want string }{
		{"  hello  ", "hello"},
		{"<b>bold</b> move", "bold move"},
		{"<script>alert(1)</script>hi", "hi"},
		{"fish &amp; chips", "fish & chips"},
		{"5 < 6", "5 < 6"},
		{`<a href="javascript:x()">click</a>`, "click"},
		{"<p>   </p>", ""},
	}
	for _, tc := range cases {
		if got := PlainText(tc.in); got != tc.want {
			t.Errorf("PlainText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPagination(t *testing.T) {
	cases := []struct {
		page, limit         string
		wantPage, wantLimit int
	}{
		{"", "", 1, DefaultPageSize},
		{"0", "-5", 1, DefaultPageSize},
		{"3", "10", 3, 10},
		{"2", "1000", 2, MaxPageSize},
		{"abc", "x", 1, DefaultPageSize},
	}
	for _, tc := range cases {
		p, l := Pagination(tc.page, tc.limit)
		if p != tc.wantPage || l != tc.wantLimit {
			t.Errorf("Pagination(%q, %q) = %d, %d; want %d, %d", tc.page, tc.limit, p, l, tc.wantPage, tc.wantLimit)
		}
	}
}

func TestTotalPages(t *testing.T) {
	if got := TotalPages(0, 20); got != 0 {
		t.Errorf("TotalPages(0) = %d", got)
	}
	if got := TotalPages(41, 20); got != 3 {
		t.Errorf("TotalPages(41, 20) = %d", got)
	}
	if got := TotalPages(40, 20); got != 2 {
		t.Errorf("TotalPages(40, 20) = %d", got)
	}
}

func TestStringToUint(t *testing.T) {
	if StringToUint("42") != 42 || StringToUint("-1") != 0 || StringToUint("x") != 0 {
		t.Fatal("unexpected StringToUint result")
	}
}
