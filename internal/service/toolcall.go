package service

import (
	"fmt"
	"strings"

	"shopchat/internal/domain"
)

// toolCallPrefix is the literal fragment that marks generated text as a tool
// call. Detection is deliberately strict: anything else is ordinary prose.
const toolCallPrefix = `{"tool":`

// isToolCall reports whether the leading non-whitespace content of the
// generated text begins with the tool-call fragment.
func isToolCall(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), toolCallPrefix)
}

// parseToolCall parses generated text against the fixed tool-call grammar:
//
//	{"tool": "<name>", "<param>": <value>}
//
// where <value> is a bare identifier/number or a quoted string. Content after
// the closing brace is ignored. Exactly one parse attempt is made; the caller
// turns any error into a textual result, never a turn failure.
func parseToolCall(text string) (*domain.ToolRequest, error) {
	p := &toolCallScanner{input: strings.TrimSpace(text)}

	if err := p.expect('{'); err != nil {
		return nil, err
	}
	key, err := p.quotedString()
	if err != nil {
		return nil, err
	}
	if key != "tool" {
		return nil, fmt.Errorf(`expected "tool" as first field, got %q`, key)
	}
	if err := p.expect(':'); err != nil {
		return nil, err
	}
	name, err := p.quotedString()
	if err != nil {
		return nil, fmt.Errorf("tool name: %w", err)
	}
	if err := p.expect(','); err != nil {
		return nil, err
	}
	param, err := p.quotedString()
	if err != nil {
		return nil, fmt.Errorf("parameter name: %w", err)
	}
	if err := p.expect(':'); err != nil {
		return nil, err
	}
	value, err := p.value()
	if err != nil {
		return nil, fmt.Errorf("parameter value: %w", err)
	}
	if err := p.expect('}'); err != nil {
		return nil, err
	}

	return &domain.ToolRequest{Name: name, Param: param, Value: value}, nil
}

// toolCallScanner is a minimal tokenizer over the tool-call grammar.
type toolCallScanner struct {
	input string
	pos   int
}

func (p *toolCallScanner) skipSpace() {
	for p.pos < len(p.input) && isSpace(p.input[p.pos]) {
		p.pos++
	}
}

func (p *toolCallScanner) expect(ch byte) error {
	p.skipSpace()
	if p.pos >= len(p.input) || p.input[p.pos] != ch {
		return fmt.Errorf("expected %q at offset %d", string(ch), p.pos)
	}
	p.pos++
	return nil
}

func (p *toolCallScanner) quotedString() (string, error) {
	if err := p.expect('"'); err != nil {
		return "", err
	}
	start := p.pos
	for p.pos < len(p.input) && p.input[p.pos] != '"' {
		p.pos++
	}
	if p.pos >= len(p.input) {
		return "", fmt.Errorf("unterminated string at offset %d", start)
	}
	s := p.input[start:p.pos]
	p.pos++ // closing quote
	return s, nil
}

// value reads a quoted string or a bare identifier/number.
func (p *toolCallScanner) value() (string, error) {
	p.skipSpace()
	if p.pos < len(p.input) && p.input[p.pos] == '"' {
		return p.quotedString()
	}
	start := p.pos
	for p.pos < len(p.input) && isBareChar(p.input[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return "", fmt.Errorf("expected value at offset %d", start)
	}
	return p.input[start:p.pos], nil
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isBareChar(ch byte) bool {
	return ch >= 'a' && ch <= 'z' ||
		ch >= 'A' && ch <= 'Z' ||
		ch >= '0' && ch <= '9' ||
		ch == '_' || ch == '.' || ch == '-' || ch == '+'
}
