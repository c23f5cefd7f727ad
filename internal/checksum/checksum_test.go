package checksum

import "testing"

func TestSum(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{"abc", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
	}
	for _, tt := range tests {
		if got := Sum([]byte(tt.in)); got != tt.want {
			t.Errorf("Sum(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestMatchesNone(t *testing.T) {
	sum := Sum([]byte("abc"))
	tests := []struct {
		header string
		want   bool
	}{
		{"", false},
		{ETag(sum), true},
		{"W/" + ETag(sum), true},
		{`"other", ` + ETag(sum), true},
		{`"other"`, false},
		{sum, false},
		{"*", true},
	}
	for _, tt := range tests {
		if got := MatchesNone(tt.header, sum); got != tt.want {
			t.Errorf("MatchesNone(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}
