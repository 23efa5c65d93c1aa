package resp

import (
	"bufio"
	"errors"
	"strings"
	"testing"
)

// ============================================================
// ReadCommand Tests - Array Format
// ============================================================

func TestReadCommand_Array(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "PING",
			input: "*1\r\n$4\r\nPING\r\n",
			want:  []string{"PING"},
		},
		{
			name:  "SELECT with index",
			input: "*2\r\n$6\r\nSELECT\r\n$1\r\n3\r\n",
			want:  []string{"SELECT", "3"},
		},
		{
			name:  "PUBLISH with binary payload",
			input: "*3\r\n$7\r\nPUBLISH\r\n$4\r\nnews\r\n$4\r\na\r\nb\r\n",
			want:  []string{"PUBLISH", "news", "a\r\nb"},
		},
		{
			name:  "empty bulk argument",
			input: "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$0\r\n\r\n",
			want:  []string{"SET", "k", ""},
		},
		{
			name:  "empty array",
			input: "*0\r\n",
			want:  nil,
		},
		{
			name:  "null array",
			input: "*-1\r\n",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bufio.NewReader(strings.NewReader(tt.input))
			got, err := ReadCommand(r)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i, want := range tt.want {
				if string(got[i]) != want {
					t.Errorf("arg[%d] = %q, want %q", i, got[i], want)
				}
			}
		})
	}
}

// ============================================================
// ReadCommand Tests - Inline Format
// ============================================================

func TestReadCommand_Inline(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"PING", "PING\r\n", []string{"PING"}},
		{"with args", "SUBSCRIBE a b\r\n", []string{"SUBSCRIBE", "a", "b"}},
		{"empty line", "\r\n", nil},
		{"whitespace only", "   \r\n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bufio.NewReader(strings.NewReader(tt.input))
			got, err := ReadCommand(r)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i, want := range tt.want {
				if string(got[i]) != want {
					t.Errorf("arg[%d] = %q, want %q", i, got[i], want)
				}
			}
		})
	}
}

func TestReadCommand_Pipeline(t *testing.T) {
	input := string(Encode("PING")) + string(Encode("SELECT", "2")) + "QUIT\r\n"
	r := bufio.NewReader(strings.NewReader(input))

	want := [][]string{{"PING"}, {"SELECT", "2"}, {"QUIT"}}
	for i, w := range want {
		got, err := ReadCommand(r)
		if err != nil {
			t.Fatalf("cmd%d error: %v", i+1, err)
		}
		if len(got) != len(w) {
			t.Fatalf("cmd%d = %q, want %q", i+1, got, w)
		}
		for j := range w {
			if string(got[j]) != w[j] {
				t.Errorf("cmd%d arg[%d] = %q, want %q", i+1, j, got[j], w[j])
			}
		}
	}
}

// ============================================================
// ReadCommand Tests - Limits and Protocol Errors
// ============================================================

func TestReadCommand_Limits(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"too many arguments", "*1025\r\n"},
		{"bulk too large", "*1\r\n$999999999999\r\n"},
		{"inline too long", strings.Repeat("A", MaxInlineLen+1) + "\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bufio.NewReader(strings.NewReader(tt.input))
			_, err := ReadCommand(r)
			if !errors.Is(err, ErrLimitExceeded) {
				t.Fatalf("error = %v, want ErrLimitExceeded", err)
			}
		})
	}
}

func TestReadCommand_InvalidProtocol(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"array without CRLF", "*2\n$3\nGET\n$3\nkey\n"},
		{"invalid array count", "*abc\r\n"},
		{"invalid bulk length", "*1\r\n$xyz\r\n"},
		{"non-bulk element", "*1\r\n:1\r\n"},
		{"bad bulk terminator", "*1\r\n$3\r\nGETxx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bufio.NewReader(strings.NewReader(tt.input))
			_, err := ReadCommand(r)
			if !errors.Is(err, ErrProtocol) {
				t.Errorf("error = %v, want ErrProtocol", err)
			}
		})
	}
}
