// Package mailer is the outbound email collaborator. Delivery is best-effort:
// the auth service invokes it off the request path and only logs failures.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
)

type Confirmation struct {
	Email    string
	Username string
	Token    string
	BaseURL  string
}

func (m Confirmation) Link() string {
	return m.BaseURL + "/auth/confirmed_email/" + m.Token
}

type PasswordReset struct {
	Email    string
	Username string
	Token    string
	BaseURL  string
}

type Sender interface {
	SendConfirmation(ctx context.Context, m Confirmation) error
	SendPasswordReset(ctx context.Context, m PasswordReset) error
}

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<html>
<body>
<p>Hi {{.Username}},</p>
<p>Please confirm your email address by following this link:</p>
<p><a href="{{.Link}}">Confirm email</a></p>
<p>If you did not sign up, you can ignore this message.</p>
</body>
</html>`))

var passwordResetTmpl = template.Must(template.New("password_reset").Parse(`<html>
<body>
<p>Hi {{.Username}},</p>
<p>We received a request to reset your password. Use this token to continue:</p>
<p><code>{{.Token}}</code></p>
<p>If you did not request a reset, you can ignore this message.</p>
</body>
</html>`))

func renderConfirmation(m Confirmation) (string, error) {
	var buf bytes.Buffer
	if err := confirmationTmpl.Execute(&buf, struct {
		Username string
		Link     string
	}{Username: m.Username, Link: m.Link()}); err != nil {
		return "", fmt.Errorf("render confirmation mail: %w", err)
	}
	return buf.String(), nil
}

func renderPasswordReset(m PasswordReset) (string, error) {
	var buf bytes.Buffer
	if err := passwordResetTmpl.Execute(&buf, struct {
		Username string
		Token    string
	}{Username: m.Username, Token: m.Token}); err != nil {
		return "", fmt.Errorf("render password reset mail: %w", err)
	}
	return buf.String(), nil
}
