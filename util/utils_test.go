package util

import "testing"

func TestSplitVimscript(t *testing.T) {
	tests := []struct {
		name string
		args string
		want string
	}{
		{"leading newline", "\naug Foo\nau!\naug END", `['aug Foo','au!','aug END']`},
		{"single line", "echo 1", `['echo 1']`},
		{"quotes", "echo 'x'", `['echo ''x''']`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SplitVimscript(tt.args); got != tt.want {
				t.Errorf("SplitVimscript() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUTF16Column(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		byteCol int
		want    int
	}{
		{"ascii", "hello", 3, 3},
		{"multibyte", "héllo", 3, 2},
		{"surrogate pair", "a😀b", 5, 3},
		{"past end", "abc", 10, 3},
		{"negative", "abc", -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UTF16Column(tt.line, tt.byteCol); got != tt.want {
				t.Errorf("UTF16Column() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReflectToInt(t *testing.T) {
	tests := []struct {
		name  string
		iface interface{}
		want  int
	}{
		{"int64", int64(7), 7},
		{"uint64", uint64(8), 8},
		{"int", 9, 9},
		{"string", "x", 0},
		{"nil", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReflectToInt(tt.iface); got != tt.want {
				t.Errorf("ReflectToInt() = %v, want %v", got, tt.want)
			}
		})
	}
}
