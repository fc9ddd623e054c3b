package textfmt

import "testing"

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "strips blank lines",
			in:   "first\n\n\nsecond\n",
			want: "first\nsecond",
		},
		{
			name: "trims line whitespace",
			in:   "  padded  \n\tindented",
			want: "padded\nindented",
		},
		{
			name: "collapses space runs",
			in:   "too    many     spaces",
			want: "too many spaces",
		},
		{
			name: "cjk punctuation absorbs following space",
			in:   "你好， 世界。 再见！ 真的？ 注意： 结束； 完",
			want: "你好，世界。再见！真的？注意：结束；完",
		},
		{
			name: "ascii punctuation keeps its space",
			in:   "hello, world. done",
			want: "hello, world. done",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
		{
			name: "whitespace only",
			in:   "   \n\t\n  ",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.in); got != tt.want {
				t.Errorf("Format(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
