package pdf

import "testing"

func TestClampDPI(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{0, DefaultDPI},
		{50, MinDPI},
		{72, 72},
		{150, 150},
		{300, 300},
		{600, MaxDPI},
	}
	for _, tc := range cases {
		if got := ClampDPI(tc.in); got != tc.want {
			t.Errorf("ClampDPI(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open("/nonexistent/book.pdf"); err == nil {
		t.Fatal("expected error opening missing file")
	}
	if _, err := PageCount("/nonexistent/book.pdf"); err == nil {
		t.Fatal("expected error counting missing file")
	}
}
