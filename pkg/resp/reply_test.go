package resp

import (
	"errors"
	"testing"
)

func TestReply_Accessors(t *testing.T) {
	tests := []struct {
		name    string
		reply   Reply
		kind    Kind
		str     string
		length  int
		isNil   bool
		isError bool
		isOK    bool
	}{
		{"simple OK", Simple("OK"), KindSimple, "OK", -1, false, false, true},
		{"simple QUEUED", Simple("QUEUED"), KindSimple, "QUEUED", -1, false, false, false},
		{"error", Error("ERR x"), KindError, "ERR x", -1, false, true, false},
		{"integer", Integer(7), KindInteger, "7", -1, false, false, false},
		{"bulk", BulkString("abc"), KindBulk, "abc", 3, false, false, false},
		{"nil bulk", NilBulk(), KindBulk, "", -1, true, false, false},
		{"array", Array(Integer(1), Integer(2)), KindArray, "", 2, false, false, false},
		{"nil array", NilArray(), KindArray, "", -1, true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.reply
			if r.Kind() != tt.kind {
				t.Errorf("Kind() = %v, want %v", r.Kind(), tt.kind)
			}
			if r.Str() != tt.str {
				t.Errorf("Str() = %q, want %q", r.Str(), tt.str)
			}
			if r.Len() != tt.length {
				t.Errorf("Len() = %d, want %d", r.Len(), tt.length)
			}
			if r.IsNil() != tt.isNil {
				t.Errorf("IsNil() = %v, want %v", r.IsNil(), tt.isNil)
			}
			if r.IsError() != tt.isError {
				t.Errorf("IsError() = %v, want %v", r.IsError(), tt.isError)
			}
			if r.IsOK() != tt.isOK {
				t.Errorf("IsOK() = %v, want %v", r.IsOK(), tt.isOK)
			}
			if !r.IsValid() {
				t.Error("IsValid() = false for constructed reply")
			}
		})
	}
}

func TestReply_ZeroIsInvalid(t *testing.T) {
	var r Reply
	if r.IsValid() {
		t.Error("zero Reply should be invalid")
	}
	if r.Kind().String() != "invalid" {
		t.Errorf("Kind().String() = %q, want invalid", r.Kind().String())
	}
	if r.String() != "(invalid)" {
		t.Errorf("String() = %q, want (invalid)", r.String())
	}
}

func TestReply_BulkNilSlice(t *testing.T) {
	if !Bulk(nil).IsNil() {
		t.Error("Bulk(nil) should be a nil bulk string")
	}
	if Bulk([]byte{}).IsNil() {
		t.Error("Bulk([]byte{}) should be an empty bulk string")
	}
}

func TestReply_Err(t *testing.T) {
	r := Error("WRONGTYPE Operation against a key holding the wrong kind of value")
	err := r.Err()
	if err == nil {
		t.Fatal("Err() = nil, want error")
	}

	var se *ServerError
	if !errors.As(err, &se) {
		t.Fatalf("Err() type = %T, want *ServerError", err)
	}
	if se.Prefix() != "WRONGTYPE" {
		t.Errorf("Prefix() = %q, want WRONGTYPE", se.Prefix())
	}
	if Simple("OK").Err() != nil {
		t.Error("Err() on status reply should be nil")
	}
	if (&ServerError{Message: "NOAUTH"}).Prefix() != "NOAUTH" {
		t.Error("single word message should be its own prefix")
	}
}

func TestReply_String(t *testing.T) {
	tests := []struct {
		reply Reply
		want  string
	}{
		{Simple("PONG"), "PONG"},
		{Error("ERR x"), "(error) ERR x"},
		{Integer(-3), "(integer) -3"},
		{BulkString("a\nb"), `"a\nb"`},
		{NilBulk(), "(nil)"},
		{NilArray(), "(nil)"},
		{Array(), "[]"},
		{Array(BulkString("x"), Array(Integer(1))), `["x", [(integer) 1]]`},
	}

	for _, tt := range tests {
		if got := tt.reply.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
