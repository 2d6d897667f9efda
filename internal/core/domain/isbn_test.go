package domain

import "testing"

func TestNormalizeISBN(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"978-0-13-468599-1", "9780134685991"},
		{"978 0 13 468599 1", "9780134685991"},
		{"0-8044-2957-X", "080442957X"},
		{"0-8044-2957-x", "080442957x"},
		{"ISBN: 9780134685991", "9780134685991"},
		{"", ""},
		{"---", ""},
	}

	for _, tc := range cases {
		if got := NormalizeISBN(tc.in); got != tc.want {
			t.Errorf("NormalizeISBN(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeISBN_Idempotent(t *testing.T) {
	inputs := []string{"978-0-13-468599-1", "080442957X", "abc123x", ""}
	for _, in := range inputs {
		once := NormalizeISBN(in)
		if twice := NormalizeISBN(once); twice != once {
			t.Errorf("NormalizeISBN not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}
