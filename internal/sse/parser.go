package sse

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"
)

// Event 一条完整的事件流消息
type Event struct {
	Type  string // event字段, 缺省为message
	Data  string // 多行data以\n连接
	ID    string // 最近一次id字段, 跨事件保持
	Retry int    // retry字段(毫秒), 未设置为-1
}

// RetryDelay retry字段对应的重连间隔, 未设置时返回0
func (e Event) RetryDelay() time.Duration {
	if e.Retry < 0 {
		return 0
	}
	return time.Duration(e.Retry) * time.Millisecond
}

/**
 * Incremental text/event-stream decoder
 * @description
 * - Accepts CR, LF and CRLF line endings
 * - Lines starting with ':' are comments (heartbeats) and are skipped
 * - A blank line dispatches the pending event, blank lines without data are ignored
 * - The last event id persists across events until the server sends a new one
 */
type Parser struct {
	reader *bufio.Reader
	done   bool
	skipLF bool // 上一行以\r结束, 紧随的\n属于同一个换行

	eventType   string
	dataLines   []string
	hasData     bool
	lastEventID string
	retry       int
}

// NewParser 从reader读取事件流
func NewParser(r io.Reader) *Parser {
	return &Parser{
		reader: bufio.NewReaderSize(r, 4096),
		retry:  -1,
	}
}

/**
 * Read the next dispatched event
 * @returns {Event} Parsed event
 * @returns {error} io.EOF at the end of the stream, or the underlying read error
 * @description
 * - Pending data at EOF without a trailing blank line is still dispatched
 */
func (p *Parser) Next() (Event, error) {
	if p.done {
		return Event{}, io.EOF
	}
	for {
		line, err := p.readLine()
		if err != nil {
			if err == io.EOF {
				p.done = true
				if p.hasData {
					return p.dispatch(), nil
				}
			}
			return Event{}, err
		}

		if line == "" {
			if !p.hasData {
				p.eventType = ""
				continue
			}
			return p.dispatch(), nil
		}
		if line[0] == ':' {
			continue
		}
		field, value := splitField(line)
		p.apply(field, value)
	}
}

// LastEventID 重连时放在Last-Event-ID头里
func (p *Parser) LastEventID() string {
	return p.lastEventID
}

func splitField(line string) (string, string) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return line, ""
	}
	value := line[idx+1:]
	value = strings.TrimPrefix(value, " ")
	return line[:idx], value
}

func (p *Parser) apply(field, value string) {
	switch field {
	case "event":
		p.eventType = value
	case "data":
		p.dataLines = append(p.dataLines, value)
		p.hasData = true
	case "id":
		// 含NUL的id按规范忽略
		if !strings.ContainsRune(value, 0) {
			p.lastEventID = value
		}
	case "retry":
		if n, err := strconv.Atoi(value); err == nil && n >= 0 {
			p.retry = n
		}
	}
}

func (p *Parser) dispatch() Event {
	evt := Event{
		Type:  p.eventType,
		Data:  strings.Join(p.dataLines, "\n"),
		ID:    p.lastEventID,
		Retry: p.retry,
	}
	if evt.Type == "" {
		evt.Type = "message"
	}
	p.eventType = ""
	p.dataLines = p.dataLines[:0]
	p.hasData = false
	p.retry = -1
	return evt
}

// readLine 读一行并去掉行尾, 单独的\r也算换行
// 遇到\r立即返回, 不等待下一个字节, 否则以\r结尾的事件要等到后续数据才能分发
func (p *Parser) readLine() (string, error) {
	var sb strings.Builder
	for {
		b, err := p.reader.ReadByte()
		if err != nil {
			if err == io.EOF && sb.Len() > 0 {
				return sb.String(), nil
			}
			return "", err
		}
		if p.skipLF {
			p.skipLF = false
			if b == '\n' {
				continue
			}
		}
		switch b {
		case '\n':
			return sb.String(), nil
		case '\r':
			p.skipLF = true
			return sb.String(), nil
		default:
			sb.WriteByte(b)
		}
	}
}
