// Package sse splits a raw upstream byte stream into complete server-sent
// event payloads, tolerating chunk boundaries that fall anywhere — including
// mid-line or mid-payload.
package sse

import "bytes"

// DonePayload is the sentinel payload marking end-of-stream.
const DonePayload = "[DONE]"

// Parser accumulates bytes across calls and yields complete event payloads.
// A payload is the concatenation of one event's "data:" line values,
// terminated by a blank line. It is not safe for concurrent use; each
// in-flight request owns its own Parser.
type Parser struct {
	buf   []byte
	lines []string
}

// New returns a ready-to-use Parser.
func New() *Parser {
	return &Parser{}
}

// Feed appends a raw byte chunk and returns every complete payload it
// completes, in order. Incomplete trailing data is retained for the next call.
func (p *Parser) Feed(chunk []byte) []string {
	p.buf = append(p.buf, chunk...)

	var payloads []string
	for {
		idx := bytes.IndexByte(p.buf, '\n')
		if idx < 0 {
			break
		}
		line := p.buf[:idx]
		p.buf = p.buf[idx+1:]

		line = bytes.TrimSuffix(line, []byte("\r"))

		if len(line) == 0 {
			if payload, ok := p.flushEvent(); ok {
				payloads = append(payloads, payload)
			}
			continue
		}

		p.consumeLine(line)
	}

	return payloads
}

// consumeLine processes one field line of an SSE event. Only "data:" lines
// contribute to the payload; comments and other fields (event:, id:, retry:)
// are ignored per the spec.
func (p *Parser) consumeLine(line []byte) {
	if len(line) == 0 || line[0] == ':' {
		return
	}
	const prefix = "data:"
	if !bytes.HasPrefix(line, []byte(prefix)) {
		return
	}
	value := line[len(prefix):]
	if len(value) > 0 && value[0] == ' ' {
		value = value[1:]
	}
	p.lines = append(p.lines, string(value))
}

// flushEvent joins the accumulated data lines into one payload and resets
// the line accumulator. Returns ok=false if the event had no data lines.
func (p *Parser) flushEvent() (string, bool) {
	if len(p.lines) == 0 {
		return "", false
	}
	payload := joinLines(p.lines)
	p.lines = nil
	return payload, true
}

// Close flushes any event accumulated but not yet terminated by a blank
// line, as happens when the upstream closes the connection mid-event. It
// returns the flushed payload, or ok=false if nothing was pending.
func (p *Parser) Close() (string, bool) {
	if len(p.buf) > 0 {
		p.consumeLine(bytes.TrimSuffix(p.buf, []byte("\r")))
		p.buf = nil
	}
	return p.flushEvent()
}

func joinLines(lines []string) string {
	if len(lines) == 1 {
		return lines[0]
	}
	var b bytes.Buffer
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(l)
	}
	return b.String()
}
