package resp

import (
	"errors"
	"reflect"
	"testing"
)

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "plain arguments",
			in:   "set hello world",
			want: []string{"set", "hello", "world"},
		},
		{
			name: "leading and trailing whitespace",
			in:   "  get   key'ext'   value  ",
			want: []string{"get", "key", "ext", "value"},
		},
		{
			name: "single quoted value with spaces",
			in:   "set a 'foo bar'",
			want: []string{"set", "a", "foo bar"},
		},
		{
			name: "double quoted key and value",
			in:   `set "hello3 world3" "he3 he3 da3"`,
			want: []string{"set", "hello3 world3", "he3 he3 da3"},
		},
		{
			name: "empty single quoted argument",
			in:   "set a ''",
			want: []string{"set", "a", ""},
		},
		{
			name: "multiple empty arguments",
			in:   "mset b '' c ''",
			want: []string{"mset", "b", "", "c", ""},
		},
		{
			name: "empty quotes before a word",
			in:   "get ''key value",
			want: []string{"get", "", "key", "value"},
		},
		{
			name: "empty quotes after a word",
			in:   "get key'' value",
			want: []string{"get", "key", "", "value"},
		},
		{
			name: "quoted segment before a word",
			in:   "get 'ext'key   value  ",
			want: []string{"get", "ext", "key", "value"},
		},
		{
			name: "escaped matching quote",
			in:   `set a 'foo \'bar'`,
			want: []string{"set", "a", "foo 'bar"},
		},
		{
			name: "opposite quote inside single quotes",
			in:   `set a 'foo "bar'`,
			want: []string{"set", "a", `foo "bar`},
		},
		{
			name: "escaped opposite quote passes through",
			in:   `set a 'foo \"bar'`,
			want: []string{"set", "a", `foo \"bar`},
		},
		{
			name: "single quote inside double quotes",
			in:   `set a "foo 'bar"`,
			want: []string{"set", "a", "foo 'bar"},
		},
		{
			name: "escaped single quote inside double quotes passes through",
			in:   `set a "foo \'bar"`,
			want: []string{"set", "a", `foo \'bar`},
		},
		{
			name: "escaped double quote inside double quotes",
			in:   `set a "foo \"bar"`,
			want: []string{"set", "a", `foo "bar`},
		},
		{
			name: "lone backslash passes through",
			in:   `set a 'foo \bar'`,
			want: []string{"set", "a", `foo \bar`},
		},
		{
			name: "tabs separate arguments",
			in:   "get\tkey\tvalue",
			want: []string{"get", "key", "value"},
		},
		{
			name: "empty input",
			in:   "",
			want: nil,
		},
		{
			name: "only whitespace",
			in:   "   ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitCommand(tt.in)
			if err != nil {
				t.Fatalf("SplitCommand(%q) failed: %v", tt.in, err)
			}
			var gotStrs []string
			for _, arg := range got {
				gotStrs = append(gotStrs, string(arg))
			}
			if !reflect.DeepEqual(gotStrs, tt.want) {
				t.Errorf("SplitCommand(%q) = %q, want %q", tt.in, gotStrs, tt.want)
			}
		})
	}
}

func TestSplitCommandUnterminatedQuote(t *testing.T) {
	for _, in := range []string{"set a 'foo", `get "bar`, "set a 'foo \\'"} {
		if _, err := SplitCommand(in); !errors.Is(err, ErrUnterminatedQuote) {
			t.Errorf("SplitCommand(%q) error = %v, want ErrUnterminatedQuote", in, err)
		}
	}
}

func TestSplitCommandEmptyArgumentIsDistinct(t *testing.T) {
	args, err := SplitCommand("get '' key")
	if err != nil {
		t.Fatalf("SplitCommand failed: %v", err)
	}
	if len(args) != 3 {
		t.Fatalf("got %d arguments, want 3", len(args))
	}
	if args[1] == nil {
		t.Error("empty quoted argument must be a present zero-length argument, not nil")
	}
	if len(args[1]) != 0 {
		t.Errorf("middle argument = %q, want empty", args[1])
	}
}
