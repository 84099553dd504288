package email

import (
	"context"
	"errors"
	"fmt"
	"html"
)

// Sender define la interfaz para envio de correos HTML.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) Send(_ context.Context, _, _, _ string) error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}

const CodeSubject = "activation code"

// CodeBody arma el cuerpo HTML del correo que lleva un codigo de un solo uso.
func CodeBody(code string) string {
	return fmt.Sprintf("<div>The activation code is %s</div>", html.EscapeString(code))
}
