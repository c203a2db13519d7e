package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"rentbox/internal/app/policies"
)

// Message is a rendered e-mail.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

type templateSet struct {
	subject *texttemplate.Template
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

// Renderer turns a template name plus data into a Message.
type Renderer struct {
	sets map[string]templateSet
}

const confirmedSubject = `Your booking {{.StartDate}} to {{.EndDate}} is confirmed`

const confirmedText = `Hi {{.CustomerName}},

Thanks for your booking. Your payment went through and the dates are yours.

Reservation: {{.ReservationID}}
Check-in:    {{.StartDate}}
Check-out:   {{.EndDate}}
Total paid:  {{.Total}}

See you soon.
`

const confirmedHTML = `<!doctype html>
<html>
<body style="font-family: sans-serif">
<h2>Booking confirmed</h2>
<p>Hi {{.CustomerName}},</p>
<p>Thanks for your booking. Your payment went through and the dates are yours.</p>
<table>
<tr><td>Reservation</td><td>{{.ReservationID}}</td></tr>
<tr><td>Check-in</td><td>{{.StartDate}}</td></tr>
<tr><td>Check-out</td><td>{{.EndDate}}</td></tr>
<tr><td>Total paid</td><td>{{.Total}}</td></tr>
</table>
</body>
</html>
`

func NewRenderer() (*Renderer, error) {
	r := &Renderer{sets: make(map[string]templateSet)}
	if err := r.add(policies.TemplateReservationConfirmed, confirmedSubject, confirmedText, confirmedHTML); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Renderer) add(name, subject, text, html string) error {
	s, err := texttemplate.New(name + ".subject").Parse(subject)
	if err != nil {
		return fmt.Errorf("notify: parse %s subject: %w", name, err)
	}
	t, err := texttemplate.New(name + ".txt").Parse(text)
	if err != nil {
		return fmt.Errorf("notify: parse %s text: %w", name, err)
	}
	h, err := htmltemplate.New(name + ".html").Parse(html)
	if err != nil {
		return fmt.Errorf("notify: parse %s html: %w", name, err)
	}
	r.sets[name] = templateSet{subject: s, text: t, html: h}
	return nil
}

func (r *Renderer) Render(name string, data any) (Message, error) {
	set, ok := r.sets[name]
	if !ok {
		return Message{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	var subject, text, html bytes.Buffer
	if err := set.subject.Execute(&subject, data); err != nil {
		return Message{}, fmt.Errorf("notify: render %s subject: %w", name, err)
	}
	if err := set.text.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("notify: render %s text: %w", name, err)
	}
	if err := set.html.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("notify: render %s html: %w", name, err)
	}
	return Message{
		Subject: strings.TrimSpace(subject.String()),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
