package csvimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"html"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// sniffSize is how much decoded input is checked for valid UTF-8 up front
const sniffSize = 4096

// CSVParser reads a supplier feed row by row. Headers are matched
// case-insensitively and cells are trimmed, including non-breaking spaces.
type CSVParser struct {
	reader    *csv.Reader
	unescape  bool
	headers   []string
	columns   map[string]int
	totalRows int
}

type parserSettings struct {
	delimiter rune
	unescape  bool
	decoder   encoding.Encoding
}

// ParserOption configures NewCSVParser
type ParserOption func(*parserSettings)

// WithDelimiter sets the field separator; the default is a comma
func WithDelimiter(d rune) ParserOption {
	return func(s *parserSettings) { s.delimiter = d }
}

// WithHTMLUnescape decodes entities such as &amp; in every cell
func WithHTMLUnescape(on bool) ParserOption {
	return func(s *parserSettings) { s.unescape = on }
}

// WithEncoding decodes the input from enc before parsing, so callers can
// hand the parser raw upload bytes
func WithEncoding(enc encoding.Encoding) ParserOption {
	return func(s *parserSettings) { s.decoder = enc }
}

var encodings = map[string]encoding.Encoding{
	"":             unicode.UTF8,
	"utf-8":        unicode.UTF8,
	"utf8":         unicode.UTF8,
	"windows-1252": charmap.Windows1252,
	"cp1252":       charmap.Windows1252,
	"iso-8859-1":   charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"latin-1":      charmap.ISO8859_1,
	"iso-8859-15":  charmap.ISO8859_15,
	"latin9":       charmap.ISO8859_15,
}

// LookupEncoding resolves a charset name accepted by WithEncoding.
// An empty name means UTF-8.
func LookupEncoding(name string) (encoding.Encoding, error) {
	if enc, ok := encodings[strings.ToLower(strings.TrimSpace(name))]; ok {
		return enc, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, name)
}

// NewCSVParser wraps r. It fails fast on empty input and on input that is
// not valid UTF-8 after decoding.
func NewCSVParser(r io.Reader, opts ...ParserOption) (*CSVParser, error) {
	s := parserSettings{delimiter: ','}
	for _, opt := range opts {
		opt(&s)
	}
	if s.decoder != nil && s.decoder != unicode.UTF8 {
		r = transform.NewReader(r, s.decoder.NewDecoder())
	}

	br := bufio.NewReaderSize(r, sniffSize)
	head, err := br.Peek(sniffSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if bytes.HasPrefix(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
		head = head[len(utf8BOM):]
	}
	if len(head) == 0 {
		return nil, ErrEmptyFile
	}
	if !utf8.Valid(dropPartialRune(head)) {
		return nil, ErrInvalidEncoding
	}

	cr := csv.NewReader(br)
	cr.Comma = s.delimiter
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	return &CSVParser{reader: cr, unescape: s.unescape, columns: make(map[string]int)}, nil
}

// dropPartialRune cuts a multi-byte rune split by the peek window
func dropPartialRune(b []byte) []byte {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if !utf8.FullRune(b[i:]) {
				return b[:i]
			}
			break
		}
	}
	return b
}

// ParseHeader consumes the header row. The first of duplicate columns wins.
func (p *CSVParser) ParseHeader() error {
	record, err := p.reader.Read()
	if errors.Is(err, io.EOF) {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	p.headers = make([]string, len(record))
	for i, h := range record {
		name := columnKey(h)
		p.headers[i] = name
		if _, dup := p.columns[name]; !dup {
			p.columns[name] = i
		}
	}
	if len(p.headers) == 1 && p.headers[0] == "" {
		return ErrMissingHeader
	}
	return nil
}

func (p *CSVParser) Headers() []string {
	return p.headers
}

func (p *CSVParser) HasHeader(name string) bool {
	_, ok := p.columns[columnKey(name)]
	return ok
}

// ValidateHeaders returns the required headers that are missing
func (p *CSVParser) ValidateHeaders(required []string) []string {
	var missing []string
	for _, h := range required {
		if h != "" && !p.HasHeader(h) {
			missing = append(missing, h)
		}
	}
	return missing
}

// Row is one data record keyed by folded header name.
// LineNumber is the file line the record starts on.
type Row struct {
	LineNumber int
	Data       map[string]string
}

func (r *Row) Get(header string) string {
	return r.Data[columnKey(header)]
}

// IsEmpty reports whether every cell is blank
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}

// ReadRow returns the next record, or io.EOF after the last one.
// Short records leave the trailing columns empty.
func (p *CSVParser) ReadRow() (*Row, error) {
	record, err := p.reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("read row: %w", err)
	}
	p.totalRows++
	line, _ := p.reader.FieldPos(0)

	row := &Row{LineNumber: line, Data: make(map[string]string, len(p.columns))}
	for name, i := range p.columns {
		if i >= len(record) {
			row.Data[name] = ""
			continue
		}
		v := trimSpaces(record[i])
		if p.unescape {
			v = html.UnescapeString(v)
		}
		row.Data[name] = v
	}
	return row, nil
}

// TotalRows is the number of data records read so far
func (p *CSVParser) TotalRows() int {
	return p.totalRows
}

func columnKey(name string) string {
	return strings.ToLower(trimSpaces(name))
}

func trimSpaces(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		switch r {
		case ' ', '\t', '\n', '\r', '\v', '\f', '\u00a0':
			return true
		}
		return false
	})
}
