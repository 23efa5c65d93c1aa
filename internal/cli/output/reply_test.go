package output

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/yndnr/rediswire/pkg/resp"
	"github.com/yndnr/rediswire/pkg/transporter"
)

func printed(t *testing.T, format Format, r resp.Reply) string {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := NewPrinter(buf, format, true).PrintReply(r); err != nil {
		t.Fatalf("PrintReply() error = %v", err)
	}
	return buf.String()
}

// ============================================================
// Text Tests
// ============================================================

func TestPrinter_Text(t *testing.T) {
	tests := []struct {
		name  string
		reply resp.Reply
		want  string
	}{
		{"status", resp.Simple("OK"), "OK\n"},
		{"error", resp.Error("ERR unknown command"), "(error) ERR unknown command\n"},
		{"integer", resp.Integer(-3), "(integer) -3\n"},
		{"bulk", resp.BulkString("a \"b\"\n"), "\"a \\\"b\\\"\\n\"\n"},
		{"nil bulk", resp.NilBulk(), "(nil)\n"},
		{"nil array", resp.NilArray(), "(nil)\n"},
		{"empty array", resp.Array(), "(empty array)\n"},
		{
			"flat array",
			resp.Array(resp.BulkString("a"), resp.Integer(1)),
			"1) \"a\"\n2) (integer) 1\n",
		},
		{
			"nested array",
			resp.Array(
				resp.BulkString("a"),
				resp.Array(resp.BulkString("b"), resp.Array(resp.BulkString("c"))),
				resp.NilBulk(),
			),
			"1) \"a\"\n2) 1) \"b\"\n   2) 1) \"c\"\n3) (nil)\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := printed(t, FormatText, tt.reply); got != tt.want {
				t.Errorf("text =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestPrinter_TextAlignsLongArrays(t *testing.T) {
	elems := make([]resp.Reply, 10)
	for i := range elems {
		elems[i] = resp.Integer(int64(i))
	}
	got := printed(t, FormatText, resp.Array(elems...))
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	if lines[0] != " 1) (integer) 0" || lines[9] != "10) (integer) 9" {
		t.Errorf("lines = %q", lines)
	}
}

func TestPrinter_TextColor(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewPrinter(buf, FormatText, false).PrintReply(resp.Error("ERR x")); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "\x1b[31m") {
		t.Errorf("error should be red: %q", buf.String())
	}
}

// ============================================================
// Raw / Structured Tests
// ============================================================

func TestPrinter_Raw(t *testing.T) {
	r := resp.Array(resp.BulkString("a"), resp.Integer(2), resp.NilBulk(), resp.Array(resp.Simple("OK")))
	if got := printed(t, FormatRaw, r); got != "a\n2\n\nOK\n" {
		t.Errorf("raw = %q", got)
	}
}

func TestPrinter_JSON(t *testing.T) {
	r := resp.Array(resp.BulkString("a"), resp.Integer(2), resp.NilBulk(), resp.Error("ERR x"))
	want := "[\n  \"a\",\n  2,\n  null,\n  {\n    \"error\": \"ERR x\"\n  }\n]\n"
	if got := printed(t, FormatJSON, r); got != want {
		t.Errorf("json = %q, want %q", got, want)
	}
}

func TestPrinter_YAML(t *testing.T) {
	if got := printed(t, FormatYAML, resp.BulkString("v")); got != "v\n" {
		t.Errorf("yaml = %q", got)
	}
}

func TestReplyValue(t *testing.T) {
	tests := []struct {
		reply resp.Reply
		want  any
	}{
		{resp.Simple("OK"), "OK"},
		{resp.Integer(7), int64(7)},
		{resp.BulkString(""), ""},
		{resp.NilBulk(), nil},
		{resp.NilArray(), nil},
		{resp.Array(), []any{}},
		{resp.Error("ERR"), map[string]string{"error": "ERR"}},
		{resp.Reply{}, nil},
	}
	for _, tt := range tests {
		if got := ReplyValue(tt.reply); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ReplyValue(%v) = %#v, want %#v", tt.reply, got, tt.want)
		}
	}
}

// ============================================================
// Message / Error Tests
// ============================================================

func TestPrinter_PrintMessage(t *testing.T) {
	m := transporter.Message{
		Kind:    transporter.KindPatternMessage,
		Pattern: "news.*",
		Channel: "news.tech",
		Payload: resp.BulkString("hi"),
	}

	buf := &bytes.Buffer{}
	if err := NewPrinter(buf, FormatText, true).PrintMessage(m); err != nil {
		t.Fatal(err)
	}
	want := "1) \"pmessage\"\n2) \"news.*\"\n3) \"news.tech\"\n4) \"hi\"\n"
	if buf.String() != want {
		t.Errorf("text = %q, want %q", buf.String(), want)
	}

	buf.Reset()
	m.Kind, m.Pattern = transporter.KindMessage, ""
	if err := NewPrinter(buf, FormatJSON, true).PrintMessage(m); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "pattern") || !strings.Contains(buf.String(), `"kind": "message"`) {
		t.Errorf("json = %s", buf.String())
	}
}

func TestPrinter_PrintError(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewPrinter(buf, FormatText, true).PrintError(errors.New("boom")); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "(error) boom\n" {
		t.Errorf("text = %q", buf.String())
	}

	buf.Reset()
	if err := NewPrinter(buf, FormatYAML, true).PrintError(errors.New("boom")); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "error: boom\n" {
		t.Errorf("yaml = %q", buf.String())
	}
}
