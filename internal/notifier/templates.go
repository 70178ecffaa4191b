package notifier

import (
	"embed"
	"strings"
	"text/template"

	"mspro-labs/stock-watch/internal/models"
)

// Subject doubles as the first line of the body.
const Subject = "Hi, new iPhones available"

//go:embed templates
var assets embed.FS

var bodyTmpl = template.Must(template.ParseFS(assets, "templates/notification.txt"))

// Message is what every sender delivers.
type Message struct {
	Subject string
	Body    string
	Items   []models.Item
}

// Compose renders one line per newly available (product, store) pair.
func Compose(delta models.Delta) (Message, error) {
	items := delta.Items()
	var b strings.Builder
	if err := bodyTmpl.Execute(&b, items); err != nil {
		return Message{}, err
	}
	return Message{Subject: Subject, Body: b.String(), Items: items}, nil
}
