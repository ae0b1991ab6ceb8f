// Package directive detects function-invocation directives inside a
// streaming model output buffer.
//
// Two wire syntaxes are recognized:
//
//	functions.<name>({...json object...})
//	{"function_call": {"name": "...", "arguments": "{...}"}}
//
// The parser works on partial text: a span is only matched once its JSON
// argument payload is complete (brace and quote balanced), and text that
// could still grow into a directive is held back from the content
// channel until it is decided either way. When both syntaxes could
// match, the span starting earliest in the buffer wins.
package directive

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	inlineMarker = "functions."
	jsonMarker   = `"function_call"`
)

// Call is a structured function invocation extracted from the stream.
type Call struct {
	Name      string
	Arguments map[string]any
	Raw       string // the full matched span, removed from content
}

// Segment is one ordered piece of scanner output: content text or a
// completed call. Exactly one of the two fields is set. Text on either
// side of a call arrives in separate segments, so a consumer that
// processes segments in order preserves the call's position in the
// stream.
type Segment struct {
	Text string
	Call *Call
}

// ParseError reports malformed JSON inside a span that matched a
// directive shape. Non-fatal: the span is released as ordinary content.
type ParseError struct {
	Span   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed directive %q: %s", truncate(e.Span, 80), e.Reason)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Parser is a stateful scanner over one round's generated text. Feed it
// chunks as they arrive; it returns ordered segments of content text
// and completed calls. Not safe for concurrent use.
type Parser struct {
	buf string
}

// NewParser creates a parser with an empty buffer.
func NewParser() *Parser {
	return &Parser{}
}

// Feed appends a chunk and scans. Returned segments interleave content
// text and matched calls in stream order; matched directive spans and
// any tail still held as a possible directive are excluded from text.
func (p *Parser) Feed(chunk string) (segs []Segment, errs []error) {
	p.buf += chunk

	var pending strings.Builder
	flush := func() {
		if pending.Len() > 0 {
			segs = append(segs, Segment{Text: pending.String()})
			pending.Reset()
		}
	}

	for {
		idx := p.findStart()
		if idx < 0 {
			pending.WriteString(p.buf)
			p.buf = ""
			break
		}
		pending.WriteString(p.buf[:idx])
		p.buf = p.buf[idx:]

		res := p.matchAt()
		if res.status == stNeedMore {
			break
		}
		if res.status == stMatched {
			flush()
			segs = append(segs, Segment{Call: res.call})
			p.buf = p.buf[res.consumed:]
			continue
		}
		// stReject: release the span (or a single byte) back to content
		// and rescan what follows.
		if res.err != nil {
			errs = append(errs, res.err)
		}
		pending.WriteString(p.buf[:res.consumed])
		p.buf = p.buf[res.consumed:]
	}
	flush()
	return segs, errs
}

// Flush releases any held text at end of stream. An incomplete candidate
// that never completed is plain content.
func (p *Parser) Flush() string {
	rest := p.buf
	p.buf = ""
	return rest
}

// findStart returns the earliest offset at which a directive may begin,
// or -1 if the whole buffer is plain content.
func (p *Parser) findStart() int {
	for i := 0; i < len(p.buf); i++ {
		rest := p.buf[i:]
		switch rest[0] {
		case 'f':
			if strings.HasPrefix(rest, inlineMarker) {
				return i
			}
			// A buffer ending mid-marker must be held.
			if len(rest) < len(inlineMarker) && strings.HasPrefix(inlineMarker, rest) {
				return i
			}
		case '{':
			if jsonCandidate(rest) != candNo {
				return i
			}
		}
	}
	return -1
}

type candidacy int

const (
	candNo candidacy = iota
	candMaybe
	candYes
)

// jsonCandidate reports whether text starting at '{' could be the
// structured-JSON syntax: the first key must be "function_call".
func jsonCandidate(s string) candidacy {
	i := 1
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	rest := s[i:]
	if strings.HasPrefix(rest, jsonMarker) {
		return candYes
	}
	if len(rest) < len(jsonMarker) && strings.HasPrefix(jsonMarker, rest) {
		return candMaybe
	}
	return candNo
}

type matchStatus int

const (
	stNeedMore matchStatus = iota
	stMatched
	stReject
)

type matchResult struct {
	status   matchStatus
	consumed int
	call     *Call
	err      error
}

// matchAt attempts a full match at the start of the buffer. The buffer
// is known to begin with a candidate found by findStart.
func (p *Parser) matchAt() matchResult {
	if p.buf[0] == '{' {
		return p.matchJSON()
	}
	return p.matchInline()
}

// matchInline parses functions.<name>({...}).
func (p *Parser) matchInline() matchResult {
	buf := p.buf
	if len(buf) < len(inlineMarker) {
		return matchResult{status: stNeedMore}
	}

	i := len(inlineMarker)
	nameStart := i
	for i < len(buf) && isIdentChar(buf[i]) {
		i++
	}
	if i == len(buf) {
		return matchResult{status: stNeedMore}
	}
	name := buf[nameStart:i]
	if name == "" {
		return matchResult{status: stReject, consumed: 1}
	}

	i = skipSpaces(buf, i)
	if i == len(buf) {
		return matchResult{status: stNeedMore}
	}
	if buf[i] != '(' {
		return matchResult{status: stReject, consumed: 1}
	}
	i = skipSpaces(buf, i+1)
	if i == len(buf) {
		return matchResult{status: stNeedMore}
	}
	if buf[i] != '{' {
		return matchResult{status: stReject, consumed: 1}
	}

	objEnd, complete := scanObject(buf, i)
	if !complete {
		return matchResult{status: stNeedMore}
	}
	argsJSON := buf[i:objEnd]

	j := skipSpaces(buf, objEnd)
	if j == len(buf) {
		return matchResult{status: stNeedMore}
	}
	if buf[j] != ')' {
		return matchResult{status: stReject, consumed: 1}
	}
	span := buf[:j+1]

	args, err := parseArgs(argsJSON)
	if err != nil {
		return matchResult{
			status:   stReject,
			consumed: len(span),
			err:      &ParseError{Span: span, Reason: err.Error()},
		}
	}
	return matchResult{
		status:   stMatched,
		consumed: len(span),
		call:     &Call{Name: name, Arguments: args, Raw: span},
	}
}

// matchJSON parses {"function_call": {"name": ..., "arguments": ...}}.
// Arguments may be a JSON-encoded string (the documented form) or a bare
// object, which some models emit instead.
func (p *Parser) matchJSON() matchResult {
	end, complete := scanObject(p.buf, 0)
	if !complete {
		return matchResult{status: stNeedMore}
	}
	span := p.buf[:end]

	var env struct {
		FunctionCall *struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		} `json:"function_call"`
	}
	if err := json.Unmarshal([]byte(span), &env); err != nil {
		return matchResult{
			status:   stReject,
			consumed: len(span),
			err:      &ParseError{Span: span, Reason: err.Error()},
		}
	}
	if env.FunctionCall == nil || env.FunctionCall.Name == "" {
		// Balanced object that is not a directive after all.
		return matchResult{status: stReject, consumed: len(span)}
	}

	raw := env.FunctionCall.Arguments
	argsJSON := "{}"
	if len(raw) > 0 {
		if raw[0] == '"' {
			var inner string
			if err := json.Unmarshal(raw, &inner); err != nil {
				return matchResult{
					status:   stReject,
					consumed: len(span),
					err:      &ParseError{Span: span, Reason: err.Error()},
				}
			}
			if strings.TrimSpace(inner) != "" {
				argsJSON = inner
			}
		} else {
			argsJSON = string(raw)
		}
	}

	args, err := parseArgs(argsJSON)
	if err != nil {
		return matchResult{
			status:   stReject,
			consumed: len(span),
			err:      &ParseError{Span: span, Reason: err.Error()},
		}
	}
	return matchResult{
		status:   stMatched,
		consumed: len(span),
		call:     &Call{Name: env.FunctionCall.Name, Arguments: args, Raw: span},
	}
}

func parseArgs(s string) (map[string]any, error) {
	var args map[string]any
	if err := json.Unmarshal([]byte(s), &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// scanObject walks a JSON object starting at buf[start] ('{') and
// returns the offset one past the closing brace. String literals and
// escapes are respected so braces inside strings never count.
func scanObject(buf string, start int) (end int, complete bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(buf); i++ {
		c := buf[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return len(buf), false
}

func isIdentChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func skipSpaces(buf string, i int) int {
	for i < len(buf) && (buf[i] == ' ' || buf[i] == '\t' || buf[i] == '\n' || buf[i] == '\r') {
		i++
	}
	return i
}
