package repl

import (
	"errors"
	"reflect"
	"testing"
)

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{"PING", []string{"PING"}},
		{"  SET  k   v ", []string{"SET", "k", "v"}},
		{`SET k "hello world"`, []string{"SET", "k", "hello world"}},
		{`SET k ""`, []string{"SET", "k", ""}},
		{`SET k "a\nb\t\"c\"\\"`, []string{"SET", "k", "a\nb\t\"c\"\\"}},
		{`SET k "\x41\x7a\xZZ"`, []string{"SET", "k", "AzxZZ"}},
		{`SET k 'it\'s \n raw'`, []string{"SET", "k", `it's \n raw`}},
		{`ab"c d" e`, []string{"abc d", "e"}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := SplitArgs(tt.line)
			if err != nil {
				t.Fatalf("SplitArgs(%q) error = %v", tt.line, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitArgs(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestSplitArgs_Unbalanced(t *testing.T) {
	for _, line := range []string{`GET "k`, `GET 'k`, `GET "k"x`, `GET 'k'x`, `a"b c"d`} {
		if _, err := SplitArgs(line); !errors.Is(err, ErrUnbalancedQuotes) {
			t.Errorf("SplitArgs(%q) error = %v, want ErrUnbalancedQuotes", line, err)
		}
	}
}
