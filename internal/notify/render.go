package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

var subjects = map[Kind]string{
	KindWelcome:        "Welcome to SpendWise - Start Your Financial Journey!",
	KindExpenseCreated: "New Expense Added - SpendWise Alert",
	KindExpenseUpdated: "Expense Updated - SpendWise Alert",
	KindInsights:       "Your SpendWise Insights",
}

// Subject returns the subject line for a message kind.
func Subject(kind Kind) string {
	return subjects[kind]
}

// Render produces the subject and HTML body of a message.
func Render(msg *Message) (subject string, body string, err error) {
	if err := msg.Validate(); err != nil {
		return "", "", err
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, string(msg.Kind)+".html", msg); err != nil {
		return "", "", fmt.Errorf("render %s: %w", msg.Kind, err)
	}
	return subjects[msg.Kind], buf.String(), nil
}
