package analysis

import "testing"

func TestRecoverJSON(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{
			name:   "fenced with language tag",
			in:     "```json\n{\"ticker\":\"ACME\",\"factors\":[]}\n```",
			want:   `{"ticker":"ACME","factors":[]}`,
			wantOK: true,
		},
		{
			name:   "fenced without language tag",
			in:     "```\n{\"a\":1}\n```",
			want:   `{"a":1}`,
			wantOK: true,
		},
		{
			name:   "fence without closing marker",
			in:     "```json\n{\"a\":1}",
			want:   `{"a":1}`,
			wantOK: true,
		},
		{
			name:   "surrounding prose",
			in:     "Here is the analysis you asked for:\n{\"a\":{\"b\":2}}\nLet me know if you need more.",
			want:   `{"a":{"b":2}}`,
			wantOK: true,
		},
		{
			name:   "bare object with whitespace",
			in:     "  \n {\"a\":1} \n",
			want:   `{"a":1}`,
			wantOK: true,
		},
		{
			name:   "single-line fence",
			in:     "```json {\"a\":1}```",
			want:   `{"a":1}`,
			wantOK: true,
		},
		{
			name:   "no json here",
			in:     "  no json here  ",
			want:   "no json here",
			wantOK: false,
		},
		{
			name:   "closing brace before opening",
			in:     "} oops {",
			want:   "} oops {",
			wantOK: false,
		},
		{
			name:   "empty",
			in:     "   ",
			want:   "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RecoverJSON(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("RecoverJSON(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestRecoverJSONIdempotent(t *testing.T) {
	inputs := []string{
		"```json\n{\"ticker\":\"ACME\",\"factors\":[]}\n```",
		"prefix {\"a\":1} suffix",
		"no json here",
		"```\nnot json either\n```",
		"} {",
		"{\"nested\":\"```\"}",
		"",
	}
	for _, in := range inputs {
		once, ok1 := RecoverJSON(in)
		twice, ok2 := RecoverJSON(once)
		if once != twice || ok1 != ok2 {
			t.Errorf("not idempotent for %q: %q/%v then %q/%v", in, once, ok1, twice, ok2)
		}
	}
}
