package tree

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Load reads the first tree of a Newick file.
func Load(path string) (*Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tree file: %w", err)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Read reads one Newick tree terminated by ';'.
func Read(r io.Reader) (*Tree, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read tree: %w", err)
	}
	return Parse(string(data))
}

// Parse parses one Newick tree terminated by ';'. Bracketed comments are
// ignored and labels may be single-quoted.
func Parse(s string) (*Tree, error) {
	p := &parser{src: s, line: 1}
	t, err := p.node()
	if err != nil {
		return nil, err
	}
	p.skip()
	if p.peek() != ';' {
		return nil, p.errorf("expected ';'")
	}
	return t, nil
}

type parser struct {
	src  string
	pos  int
	line int
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("newick line %d: %s", p.line, fmt.Sprintf(format, args...))
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

// skip advances over whitespace and comments.
func (p *parser) skip() {
	for p.pos < len(p.src) {
		switch c := p.src[p.pos]; {
		case c == '\n':
			p.line++
			p.pos++
		case c == ' ' || c == '\t' || c == '\r':
			p.pos++
		case c == '[':
			end := strings.IndexByte(p.src[p.pos:], ']')
			if end < 0 {
				p.pos = len(p.src)
				return
			}
			p.line += strings.Count(p.src[p.pos:p.pos+end], "\n")
			p.pos += end + 1
		default:
			return
		}
	}
}

func (p *parser) node() (*Tree, error) {
	t := &Tree{}
	p.skip()
	if p.peek() == '(' {
		p.pos++
		for {
			child, err := p.node()
			if err != nil {
				return nil, err
			}
			t.Children = append(t.Children, child)
			p.skip()
			switch p.peek() {
			case ',':
				p.pos++
				continue
			case ')':
				p.pos++
			default:
				return nil, p.errorf("expected ',' or ')'")
			}
			break
		}
	}

	p.skip()
	label, err := p.label()
	if err != nil {
		return nil, err
	}
	t.Label = label

	p.skip()
	if p.peek() == ':' {
		p.pos++
		p.skip()
		start := p.pos
		for p.pos < len(p.src) && strings.IndexByte("(),:;[ \t\r\n", p.src[p.pos]) < 0 {
			p.pos++
		}
		v, err := strconv.ParseFloat(p.src[start:p.pos], 64)
		if err != nil {
			return nil, p.errorf("invalid branch length %q", p.src[start:p.pos])
		}
		t.Length = &v
	}

	if t.IsLeaf() && t.Label == "" {
		return nil, p.errorf("leaf without a label")
	}
	return t, nil
}

func (p *parser) label() (string, error) {
	if p.peek() == '\'' {
		p.pos++
		end := strings.IndexByte(p.src[p.pos:], '\'')
		if end < 0 {
			return "", p.errorf("unterminated quoted label")
		}
		l := p.src[p.pos : p.pos+end]
		p.pos += end + 1
		return l, nil
	}
	start := p.pos
	for p.pos < len(p.src) && strings.IndexByte("(),:;[ \t\r\n", p.src[p.pos]) < 0 {
		p.pos++
	}
	return p.src[start:p.pos], nil
}
