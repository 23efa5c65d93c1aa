package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/yndnr/rediswire/pkg/resp"
	"github.com/yndnr/rediswire/pkg/transporter"
)

// Printer writes replies, messages and tables in one output format.
type Printer struct {
	w      io.Writer
	format Format

	errColor  *color.Color
	typeColor *color.Color
	formatter Formatter
}

// NewPrinter creates a printer. noColor disables ANSI colors in text mode.
func NewPrinter(w io.Writer, format Format, noColor bool) *Printer {
	p := &Printer{
		w:         w,
		format:    format,
		errColor:  color.New(color.FgRed),
		typeColor: color.New(color.FgCyan),
		formatter: NewFormatter(format, noColor),
	}
	for _, c := range []*color.Color{p.errColor, p.typeColor} {
		if noColor {
			c.DisableColor()
		} else {
			c.EnableColor()
		}
	}
	return p
}

// Format returns the output format of p.
func (p *Printer) Format() Format { return p.format }

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer { return p.w }

// Print formats structured data such as tables.
func (p *Printer) Print(data any) error {
	return p.formatter.Format(p.w, data)
}

// PrintReply writes one reply.
func (p *Printer) PrintReply(r resp.Reply) error {
	switch p.format {
	case FormatJSON, FormatYAML:
		return p.formatter.Format(p.w, ReplyValue(r))
	case FormatRaw:
		var sb strings.Builder
		writeRaw(&sb, r)
		_, err := io.WriteString(p.w, sb.String())
		return err
	default:
		var sb strings.Builder
		p.writeText(&sb, r, "")
		_, err := io.WriteString(p.w, sb.String())
		return err
	}
}

// PrintError writes a client-side error in the style of a server error.
func (p *Printer) PrintError(err error) error {
	if p.format.Structured() {
		return p.formatter.Format(p.w, map[string]string{"error": err.Error()})
	}
	_, werr := fmt.Fprintln(p.w, p.errColor.Sprintf("(error) %s", err))
	return werr
}

// messageView is the structured form of a pushed message.
type messageView struct {
	Kind    string `json:"kind" yaml:"kind"`
	Pattern string `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Channel string `json:"channel" yaml:"channel"`
	Payload any    `json:"payload" yaml:"payload"`
}

// PrintMessage writes a pub/sub message the way it arrived on the wire.
func (p *Printer) PrintMessage(m transporter.Message) error {
	if p.format.Structured() {
		return p.formatter.Format(p.w, messageView{
			Kind:    m.Kind.String(),
			Pattern: m.Pattern,
			Channel: m.Channel,
			Payload: ReplyValue(m.Payload),
		})
	}
	elems := []resp.Reply{resp.BulkString(m.Kind.String())}
	if m.Kind == transporter.KindPatternMessage {
		elems = append(elems, resp.BulkString(m.Pattern))
	}
	elems = append(elems, resp.BulkString(m.Channel), m.Payload)
	return p.PrintReply(resp.Array(elems...))
}

// writeText renders r like redis-cli. indent is written before every line
// of a multi-line array after the first.
func (p *Printer) writeText(sb *strings.Builder, r resp.Reply, indent string) {
	switch r.Kind() {
	case resp.KindSimple:
		sb.WriteString(r.Str())
	case resp.KindError:
		sb.WriteString(p.errColor.Sprintf("(error) %s", r.Str()))
	case resp.KindInteger:
		sb.WriteString(p.typeColor.Sprint("(integer) ") + strconv.FormatInt(r.Int(), 10))
	case resp.KindBulk:
		if r.IsNil() {
			sb.WriteString(p.typeColor.Sprint("(nil)"))
		} else {
			sb.WriteString(strconv.Quote(r.Str()))
		}
	case resp.KindArray:
		elems := r.Elems()
		switch {
		case r.IsNil():
			sb.WriteString(p.typeColor.Sprint("(nil)"))
		case len(elems) == 0:
			sb.WriteString(p.typeColor.Sprint("(empty array)"))
		default:
			width := len(strconv.Itoa(len(elems)))
			for i, e := range elems {
				if i > 0 {
					sb.WriteString(indent)
				}
				prefix := fmt.Sprintf("%*d) ", width, i+1)
				sb.WriteString(prefix)
				p.writeText(sb, e, indent+strings.Repeat(" ", len(prefix)))
			}
			return
		}
	default:
		sb.WriteString(p.errColor.Sprint("(invalid)"))
	}
	sb.WriteByte('\n')
}

// writeRaw writes scalar values one per line without type annotations.
func writeRaw(sb *strings.Builder, r resp.Reply) {
	switch r.Kind() {
	case resp.KindArray:
		for _, e := range r.Elems() {
			writeRaw(sb, e)
		}
		return
	case resp.KindInteger:
		sb.WriteString(strconv.FormatInt(r.Int(), 10))
	default:
		if !r.IsNil() {
			sb.WriteString(r.Str())
		}
	}
	sb.WriteByte('\n')
}

// ReplyValue converts r to plain Go values for JSON and YAML: strings,
// int64, nil, []any, and {"error": msg} for error replies.
func ReplyValue(r resp.Reply) any {
	switch r.Kind() {
	case resp.KindSimple:
		return r.Str()
	case resp.KindError:
		return map[string]string{"error": r.Str()}
	case resp.KindInteger:
		return r.Int()
	case resp.KindBulk:
		if r.IsNil() {
			return nil
		}
		return r.Str()
	case resp.KindArray:
		if r.IsNil() {
			return nil
		}
		out := make([]any, 0, r.Len())
		for _, e := range r.Elems() {
			out = append(out, ReplyValue(e))
		}
		return out
	default:
		return nil
	}
}
