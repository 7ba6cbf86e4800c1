// Package stream decodes the wire format used for streamed itinerary
// updates: SSE-like "data: <json>" frames carrying text deltas, split at
// a sentinel into conversational thought text and a trailing raw JSON
// patch. Every planner transport shares this one decoder.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Frame discriminator values.
const (
	FrameContent = "content"
	FrameError   = "error"
	FrameDone    = "done"
)

// dataPrefix marks a protocol line carrying a frame payload.
const dataPrefix = "data: "

// Sentinel is the canonical delimiter between thought text and the
// trailing JSON patch. Generation backends sometimes wrap it in Markdown
// emphasis, so matching is done with sentinelPattern rather than this
// literal: triple underscores or one to three asterisks on each side are
// all accepted.
const Sentinel = "___UPDATE_JSON___"

var sentinelPattern = regexp.MustCompile(`(?:_{3}|\*{1,3})UPDATE_JSON(?:_{3}|\*{1,3})`)

// holdback is the longest sentinel spelling minus one byte. Thought text
// within holdback of the accumulated tail is not emitted yet, in case the
// next delta completes a sentinel that started inside it.
const holdback = len(Sentinel) - 1

// Frame is one decoded protocol frame.
type Frame struct {
	Type    string `json:"type"`
	Chunk   string `json:"chunk,omitempty"`
	Message string `json:"message,omitempty"`
}

// ProtocolError is a failure reported by the backend inside the stream.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string {
	return "stream protocol error: " + e.Message
}

// ThoughtFunc observes the thought text as it grows. Each invocation
// receives a prefix-extension of the previous one; the last invocation
// carries the complete thought.
type ThoughtFunc func(thought string)

// Result is the decoder output. RawJSONBuffer is empty when the stream
// ended without a sentinel, in which case ThoughtText is the whole
// response.
type Result struct {
	ThoughtText   string
	RawJSONBuffer string
}

// HasUpdate reports whether the stream carried a structured patch.
func (r *Result) HasUpdate() bool {
	return r.RawJSONBuffer != ""
}

// Decoder folds an ordered sequence of stream chunks into a Result.
// Feed accepts raw wire bytes (frames may straddle chunk boundaries);
// AppendContent accepts already-deframed text deltas for transports that
// deliver deltas natively. The two must not be mixed on one Decoder.
type Decoder struct {
	onThought ThoughtFunc

	pending []byte          // incomplete wire line carried between Feeds
	content strings.Builder // authoritative accumulated content text
	split   int             // byte index just past the sentinel, -1 until seen
	thought string          // frozen once the sentinel is seen
	emitted int             // bytes of thought already delivered
	done    bool
	failed  bool
}

// NewDecoder creates a decoder. onThought may be nil.
func NewDecoder(onThought ThoughtFunc) *Decoder {
	return &Decoder{
		onThought: onThought,
		split:     -1,
	}
}

// Feed consumes raw wire bytes. It returns a *ProtocolError as soon as an
// error frame is observed; any accumulated state is discarded.
func (d *Decoder) Feed(p []byte) error {
	if d.failed {
		return errors.New("decoder already failed")
	}
	d.pending = append(d.pending, p...)
	for {
		nl := bytes.IndexByte(d.pending, '\n')
		if nl < 0 {
			return nil
		}
		line := string(d.pending[:nl])
		d.pending = d.pending[nl+1:]
		if err := d.processLine(line); err != nil {
			return err
		}
	}
}

// AppendContent consumes one already-deframed content delta.
func (d *Decoder) AppendContent(delta string) {
	if d.failed || d.done || delta == "" {
		return
	}
	d.content.WriteString(delta)
	d.scan(false)
}

// Done reports whether a done frame has been observed. Stream closure is
// an equally valid end signal; callers may stop reading on either.
func (d *Decoder) Done() bool {
	return d.done
}

// Close finalizes the decode after the stream ends. If no sentinel was
// ever seen the whole accumulated text is the thought and the raw buffer
// is empty. Known Markdown code fences are stripped from the raw buffer.
func (d *Decoder) Close() (*Result, error) {
	if d.failed {
		return nil, errors.New("decoder already failed")
	}
	d.scan(true)
	text := d.content.String()
	if d.split < 0 {
		d.finishThought(text)
		return &Result{ThoughtText: text}, nil
	}
	return &Result{
		ThoughtText:   d.thought,
		RawJSONBuffer: StripCodeFence(text[d.split:]),
	}, nil
}

func (d *Decoder) processLine(line string) error {
	line = strings.TrimSuffix(line, "\r")
	if line == "" {
		return nil
	}
	payload, ok := strings.CutPrefix(line, dataPrefix)
	if !ok {
		// Tolerate unknown framing lines (comments, event names).
		return nil
	}

	var frame Frame
	if err := json.Unmarshal([]byte(payload), &frame); err != nil {
		return nil
	}

	switch frame.Type {
	case FrameContent:
		d.AppendContent(frame.Chunk)
	case FrameError:
		d.failed = true
		d.content.Reset()
		d.thought = ""
		return &ProtocolError{Message: frame.Message}
	case FrameDone:
		d.done = true
	}
	return nil
}

// scan re-examines the full accumulated content for the first sentinel
// occurrence and advances the thought emission cursor. A match ending at
// the very end of the text is only committed when final is set: the next
// delta could still extend the trailing delimiter (e.g. **UPDATE_JSON*
// awaiting its last asterisk).
func (d *Decoder) scan(final bool) {
	if d.split >= 0 {
		return
	}
	text := d.content.String()
	loc := sentinelPattern.FindStringIndex(text)
	if loc != nil && (final || loc[1] < len(text)) {
		d.thought = text[:loc[0]]
		d.split = loc[1]
		d.finishThought(d.thought)
		return
	}

	// Emit growth, holding back enough tail to cover a split sentinel.
	// A deferred tail match holds back everything from the match start,
	// so no sentinel byte ever leaks into the thought callback.
	avail := len(text) - holdback
	if loc != nil && loc[0] < avail {
		avail = loc[0]
	}
	for avail > d.emitted && !utf8.RuneStart(text[avail]) {
		avail--
	}
	if avail > d.emitted {
		d.emitted = avail
		if d.onThought != nil {
			d.onThought(text[:avail])
		}
	}
}

func (d *Decoder) finishThought(thought string) {
	if d.onThought != nil && len(thought) >= d.emitted {
		d.onThought(thought)
	}
	d.emitted = len(thought)
}

// Decode reads an entire wire stream and returns the folded result. It
// stops at a done frame, stream closure, or context cancellation.
func Decode(ctx context.Context, r io.Reader, onThought ThoughtFunc) (*Result, error) {
	d := NewDecoder(onThought)
	buf := make([]byte, 4096)
	for !d.Done() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.Read(buf)
		if n > 0 {
			if ferr := d.Feed(buf[:n]); ferr != nil {
				return nil, ferr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return d.Close()
}

// StripCodeFence removes a wrapping Markdown code fence (```json ... ```
// or a bare ``` ... ```) from s, if present.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
