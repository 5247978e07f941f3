package notify

import (
	"context"
	"sync"
)

// Sent is one call recorded by a Recorder.
type Sent struct {
	To       string
	Template TemplateType // empty for plain text messages
	Data     Data
	Body     string
}

// Recorder is an in-process Transport that records what would have been sent.
// Set Fail to make every send fail with that error message.
type Recorder struct {
	mu   sync.Mutex
	sent []Sent
	Fail string
}

var _ Transport = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) SendTextMessage(_ context.Context, to, body string) Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != "" {
		return Failed(r.Fail)
	}
	r.sent = append(r.sent, Sent{To: to, Body: body})
	return Succeeded(nil)
}

func (r *Recorder) SendNotification(_ context.Context, to string, tmpl TemplateType, data Data) Result {
	body, ok := RenderMessage(tmpl, data)
	if !ok {
		return Failed(ErrNoContent)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != "" {
		return Failed(r.Fail)
	}
	r.sent = append(r.sent, Sent{To: to, Template: tmpl, Data: data, Body: body})
	return Succeeded(nil)
}

// Sent returns a copy of the recorded sends, oldest first.
func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

// SentOf returns the recorded sends of one template type.
func (r *Recorder) SentOf(tmpl TemplateType) []Sent {
	var out []Sent
	for _, s := range r.Sent() {
		if s.Template == tmpl {
			out = append(out, s)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.sent = nil
	r.mu.Unlock()
}
