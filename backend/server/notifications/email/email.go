package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends HTML notification emails through an SMTP relay.
type Mailer struct {
	addr string
	from string
	auth smtp.Auth
	send SendFunc
}

var layout = template.Must(template.New("notification").Parse(`<html>
	<head>
		<style>
			body {
				font-family: 'Lato', sans-serif;
				margin: 0;
				padding: 0;
			}
			.container {
				max-width: 600px;
				margin: 0 auto;
				padding: 10px;
				border-radius: 4px;
			}
			p {
				line-height: 1.6;
			}
		</style>
	</head>
	<body>
		<div class="container">
			<h1>{{.Title}}</h1>
			{{range .Paragraphs}}<p>{{.}}</p>
			{{end}}
		</div>
	</body>
</html>
`))

// NewMailer creates a mailer that authenticates to host:port as sender.
func NewMailer(host string, port int, sender, password string) *Mailer {
	return &Mailer{
		addr: net.JoinHostPort(host, strconv.Itoa(port)),
		from: sender,
		auth: smtp.PlainAuth("", sender, password, host),
		send: smtp.SendMail,
	}
}

// WithSendFunc replaces smtp.SendMail and returns the mailer.
func (m *Mailer) WithSendFunc(send SendFunc) *Mailer {
	m.send = send
	return m
}

// Verify dials the SMTP server to check that it is reachable.
func (m *Mailer) Verify() error {
	c, err := smtp.Dial(m.addr)
	if err != nil {
		return fmt.Errorf("cannot connect to the SMTP server: %w", err)
	}
	if err := c.Close(); err != nil {
		return fmt.Errorf("cannot close the SMTP connection: %w", err)
	}
	return nil
}

// Send renders title and body into the HTML layout and mails it to to.
// Blank lines in body separate paragraphs.
func (m *Mailer) Send(to, title, body string) error {
	msg, err := Render(m.from, to, title, body)
	if err != nil {
		return err
	}
	if err := m.send(m.addr, m.auth, m.from, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// Render builds the full RFC 5322 message.
func Render(from, to, title, body string) ([]byte, error) {
	if strings.ContainsAny(to, "\r\n") || strings.ContainsAny(title, "\r\n") {
		return nil, fmt.Errorf("invalid header value")
	}

	var buf bytes.Buffer
	headers := [][2]string{
		{"From", from},
		{"To", to},
		{"Subject", title},
		{"MIME-version", "1.0"},
		{"Content-Type", `text/html; charset="UTF-8"`},
	}
	for _, h := range headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", h[0], h[1])
	}
	buf.WriteString("\r\n")

	data := struct {
		Title      string
		Paragraphs []string
	}{Title: title, Paragraphs: paragraphs(body)}
	if err := layout.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering email: %w", err)
	}
	return buf.Bytes(), nil
}

func paragraphs(body string) []string {
	var out []string
	for _, p := range strings.Split(body, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
