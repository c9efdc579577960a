package agent

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"
)

// StreamParser decodes the agent's line-delimited JSON output. Callers feed
// raw byte chunks in arrival order; every complete line is parsed as one
// envelope and handed to the callback in the same order. The trailing
// incomplete segment of a chunk is buffered until the next Feed or Flush.
//
// Malformed lines never abort the stream: a line that is not valid JSON, or
// that parses to an unrecognized shape, is dropped with a debug log.
type StreamParser struct {
	buf    strings.Builder
	handle func(*Envelope)
}

// NewStreamParser returns a parser that invokes handle for each decoded
// envelope.
func NewStreamParser(handle func(*Envelope)) *StreamParser {
	return &StreamParser{handle: handle}
}

// Feed consumes the next chunk of raw subprocess output.
func (p *StreamParser) Feed(chunk []byte) {
	p.buf.Write(chunk)
	data := p.buf.String()

	idx := strings.LastIndexByte(data, '\n')
	if idx < 0 {
		return
	}

	rest := data[idx+1:]
	for _, line := range strings.Split(data[:idx], "\n") {
		p.parseLine(line)
	}

	p.buf.Reset()
	p.buf.WriteString(rest)
}

// Flush parses any residual buffered data as a final line. Call once when
// the stream ends.
func (p *StreamParser) Flush() {
	rest := p.buf.String()
	p.buf.Reset()
	if strings.TrimSpace(rest) != "" {
		p.parseLine(rest)
	}
}

func (p *StreamParser) parseLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	var env Envelope
	if err := json.Unmarshal([]byte(line), &env); err != nil {
		log.Debug().Err(err).Int("len", len(line)).Msg("dropping malformed agent output line")
		return
	}
	if !env.recognized() {
		log.Debug().Str("type", env.Type).Msg("dropping unrecognized agent envelope")
		return
	}

	env.Raw = json.RawMessage(line)
	p.handle(&env)
}
