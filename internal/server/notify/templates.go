package notify

import (
	"bytes"
	"html/template"
)

const signature = `<p>This is an automatic email. Please don't respond.</p>
<p>With best regards,<br>AccountKeeper Team.</p>`

var (
	codeTmpl = template.Must(template.New("code").Parse(
		`<p>{{.Intro}}: <strong>{{.Code}}</strong></p>
<p>The code expires in {{.Validity}}.</p>` + signature))

	welcomeTmpl = template.Must(template.New("welcome").Parse(
		`<p>Welcome{{if .Name}}, {{.Name}}{{end}}!</p>
<p>Your profile is complete and your workspace roles are ready.</p>` + signature))

	changedTmpl = template.Must(template.New("changed").Parse(
		`<p>Your password has been changed successfully.</p>
<p>If you have not changed your password, please contact us.</p>` + signature))
)

// RegistrationCode renders the email carrying a registration code.
func RegistrationCode(to, code, validity string, resend bool) Message {
	subject := "Registration Confirmation Code"
	if resend {
		subject = "Resend Registration Confirmation Code"
	}
	return Message{To: to, Subject: subject, HTML: render(codeTmpl, map[string]string{
		"Intro": "Here is your registration code", "Code": code, "Validity": validity,
	})}
}

// RecoveryCode renders the email carrying a password recovery code.
func RecoveryCode(to, code, validity string, resend bool) Message {
	subject := "Password Recovery"
	if resend {
		subject = "Resend Password Recovery Code"
	}
	return Message{To: to, Subject: subject, HTML: render(codeTmpl, map[string]string{
		"Intro": "Here is your password recovery code", "Code": code, "Validity": validity,
	})}
}

// Invitation renders the registration code email sent to a member created
// by a company administrator.
func Invitation(to, code, validity string) Message {
	return Message{To: to, Subject: "You have been invited", HTML: render(codeTmpl, map[string]string{
		"Intro": "You were added to a company. Use this code to set your password", "Code": code, "Validity": validity,
	})}
}

func Welcome(to, name string) Message {
	return Message{To: to, Subject: "Welcome to AccountKeeper!", HTML: render(welcomeTmpl, map[string]string{"Name": name})}
}

func PasswordChanged(to string) Message {
	return Message{To: to, Subject: "Changed the Password", HTML: render(changedTmpl, nil)}
}

// render panics only on a broken template, which the package tests catch.
func render(t *template.Template, data any) string {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		panic(err)
	}
	return buf.String()
}
