package mail

import (
	"bytes"
	"errors"
	"mime"
	"net/mail"
	"strings"
)

type Draft struct {
	To      string
	Subject string
	Body    string
}

// Compose renders d as a single-part text/plain RFC 2822 message.
func Compose(d Draft) ([]byte, error) {
	addr, err := mail.ParseAddress(d.To)
	if err != nil {
		return nil, errors.New("invalid recipient address: " + d.To)
	}

	var b bytes.Buffer
	b.WriteString("To: " + addr.String() + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", d.Subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(d.Body, "\n", "\r\n"))
	return b.Bytes(), nil
}
