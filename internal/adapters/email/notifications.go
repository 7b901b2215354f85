package email

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// mdRenderer renders coach comments. Raw HTML in the input is escaped because
// WithUnsafe is not set.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

var layout = template.Must(template.New("layout").Parse(`<!doctype html>
<html><body style="font-family:sans-serif">
<p>Hello {{.Name}},</p>
{{.Body}}
{{if .Link}}<p><a href="{{.Link}}">Open Coachdesk</a></p>{{end}}
</body></html>`))

type layoutData struct {
	Name string
	Body template.HTML
	Link string
}

// Recipient is the person a notification is addressed to.
type Recipient struct {
	Name  string
	Email string
}

// RenderMarkdown converts markdown to sanitised HTML.
// PRE: none
// POST: returns HTML with any raw HTML in src escaped
func RenderMarkdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}

func build(to Recipient, subject string, body template.HTML, text, link string) (SendRequest, error) {
	var buf bytes.Buffer
	if err := layout.Execute(&buf, layoutData{Name: to.Name, Body: body, Link: link}); err != nil {
		return SendRequest{}, fmt.Errorf("render %q email: %w", subject, err)
	}
	if link != "" {
		text += "\n" + link
	}
	return SendRequest{
		To:      []string{to.Email},
		Subject: subject,
		HTML:    buf.String(),
		Text:    "Hello " + to.Name + ",\n" + text,
	}, nil
}

// ApprovedEmail tells a client their coach approved them.
func ApprovedEmail(to Recipient, appURL string) (SendRequest, error) {
	const text = "You've been successfully approved. You are now able to log in to your account."
	return build(to, "You've Been Approved!", template.HTML("<p>"+template.HTMLEscapeString(text)+"</p>"), text, appURL)
}

// TemplateAssignedEmail tells a client a new program is active.
func TemplateAssignedEmail(to Recipient, templateName, startDate, appURL string) (SendRequest, error) {
	text := fmt.Sprintf("Your coach assigned you %q starting %s. It is now your active program.", templateName, startDate)
	return build(to, "New program: "+templateName, template.HTML("<p>"+template.HTMLEscapeString(text)+"</p>"), text, appURL)
}

// CheckInReviewedEmail forwards the coach's markdown comment on a check-in.
func CheckInReviewedEmail(to Recipient, startDate, comment, appURL string) (SendRequest, error) {
	rendered, err := RenderMarkdown(comment)
	if err != nil {
		return SendRequest{}, err
	}
	intro := "Your coach reviewed your check-in starting " + startDate + "."
	body := template.HTML("<p>"+template.HTMLEscapeString(intro)+"</p>") + rendered
	return build(to, "Your check-in has been reviewed", body, intro+"\n\n"+comment, appURL)
}
