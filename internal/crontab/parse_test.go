package crontab

import "testing"

func TestParseFieldSplit(t *testing.T) {
	t.Parallel()
	got := Parse("0 * * * * echo hi")
	want := Config{{Schedule: "0 * * * *", Command: "echo hi"}}
	if !got.Equal(want) {
		t.Fatalf("Parse = %#v, want %#v", got, want)
	}
}

func TestParseVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  string
		want Config
	}{
		{name: "empty", raw: "", want: Config{}},
		{name: "only blanks", raw: "\n   \n\t\n", want: Config{}},
		{
			name: "blank lines filtered",
			raw:  "a b c d e cmd1\n\n  \nf g h i j cmd2",
			want: Config{
				{Schedule: "a b c d e", Command: "cmd1"},
				{Schedule: "f g h i j", Command: "cmd2"},
			},
		},
		{
			name: "exactly five tokens",
			raw:  "*/5 * * * *",
			want: Config{{Schedule: "*/5 * * * *", Command: ""}},
		},
		{
			name: "short line kept",
			raw:  "@hourly",
			want: Config{{Schedule: "@hourly", Command: ""}},
		},
		{
			name: "crlf",
			raw:  "0 0 * * * date\r\n1 1 * * * uptime\r\n",
			want: Config{
				{Schedule: "0 0 * * *", Command: "date"},
				{Schedule: "1 1 * * *", Command: "uptime"},
			},
		},
		{
			name: "command spacing preserved",
			raw:  "0 0 * * * echo  a   b",
			want: Config{{Schedule: "0 0 * * *", Command: "echo  a   b"}},
		},
		{
			name: "duplicates kept",
			raw:  "0 0 * * * x\n0 0 * * * x",
			want: Config{
				{Schedule: "0 0 * * *", Command: "x"},
				{Schedule: "0 0 * * *", Command: "x"},
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.raw)
			if !got.Equal(tt.want) {
				t.Fatalf("Parse(%q) = %#v, want %#v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseDeterministic(t *testing.T) {
	t.Parallel()
	raw := "1 2 3 4 5 a b c\n\n*/2 * * * * long running thing\n1 2 3 4 5 a b c\n"
	a := Parse(raw)
	b := Parse(raw)
	if !a.Equal(b) {
		t.Fatalf("Parse not deterministic: %#v vs %#v", a, b)
	}
	if a.Len() != 3 {
		t.Fatalf("Len = %d, want 3", a.Len())
	}
}
