// Package prompt assembles model-ready prompts from template fragments and
// caller content. A Prompt is an append-only sequence of role-tagged
// segments with two renderings: flat text and chat-structured JSON.
package prompt

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/forge-ai/promptforge/shared/errs"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Segment is one piece of a prompt.
type Segment struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Format selects the active rendering used by String and Save.
type Format int

const (
	FormatText Format = iota
	FormatChat
)

func (f Format) String() string {
	if f == FormatChat {
		return "chat"
	}
	return "text"
}

// Ext is the file extension used when the prompt is saved in this format.
func (f Format) Ext() string {
	if f == FormatChat {
		return ".json"
	}
	return ".txt"
}

// ParseFormat accepts "text" (or "") and "chat".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return FormatText, nil
	case "chat", "json":
		return FormatChat, nil
	}
	return FormatText, errs.Msg("prompt.format", errs.ErrInvalidArgument, fmt.Sprintf("unknown prompt format %q", s))
}

// Prompt is not safe for concurrent mutation; build it on one goroutine and
// hand it off.
type Prompt struct {
	format   Format
	segments []Segment
}

func New(format Format) *Prompt {
	return &Prompt{format: format}
}

func (p *Prompt) Format() Format { return p.format }

// AddPriming appends a system segment.
func (p *Prompt) AddPriming(content string) { p.add(RoleSystem, content) }

// AddProblem appends a user segment.
func (p *Prompt) AddProblem(content string) { p.add(RoleUser, content) }

// AddSolution appends an assistant segment.
func (p *Prompt) AddSolution(content string) { p.add(RoleAssistant, content) }

func (p *Prompt) add(role Role, content string) {
	p.segments = append(p.segments, Segment{Role: role, Content: content})
}

// Segments returns a copy of the segments in insertion order.
func (p *Prompt) Segments() []Segment {
	out := make([]Segment, len(p.segments))
	copy(out, p.segments)
	return out
}

// Len is the number of segments.
func (p *Prompt) Len() int { return len(p.segments) }

// Text renders every segment on its own line with no role markers.
func (p *Prompt) Text() string {
	var sb strings.Builder
	for _, s := range p.segments {
		sb.WriteString(s.Content)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Chat renders the segments as a JSON array of {role, content} records.
func (p *Prompt) Chat() ([]byte, error) {
	segs := p.segments
	if segs == nil {
		segs = []Segment{}
	}
	return json.Marshal(segs)
}

// String returns the active rendering.
func (p *Prompt) String() string {
	if p.format == FormatChat {
		b, err := p.Chat()
		if err != nil {
			return ""
		}
		return string(b)
	}
	return p.Text()
}

// Save writes the active rendering verbatim to path.
func (p *Prompt) Save(path string) error {
	var data []byte
	if p.format == FormatChat {
		b, err := p.Chat()
		if err != nil {
			return errs.E("prompt.save", errs.ErrIO, err)
		}
		data = b
	} else {
		data = []byte(p.Text())
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errs.E("prompt.save", errs.ErrIO, err)
	}
	return nil
}
