package email

import (
	"fmt"
	"html"
)

// TurnEmailData contains the data needed for queue turn emails.
type TurnEmailData struct {
	Name       string
	Email      string
	ClinicName string
	// Ahead is how many patients are still in front; zero means it is their turn.
	Ahead int
}

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #2563eb;">Hi %s,</h2>
    <p>%s</p>
    <p style="color: #6b7280; font-size: 14px; margin-top: 30px;">%s</p>
</body>
</html>`

// NoticeHeader carries the notice kind so mail filters can route it.
const NoticeHeader = "X-Queue-Notice"

// BuildTurnEmail tells a patient they are being called in.
func BuildTurnEmail(data TurnEmailData) Message {
	const kind = "turn"
	name := fallback(data.Name, "there")
	clinic := fallback(data.ClinicName, "the clinic")

	subject := fmt.Sprintf("It's your turn at %s", clinic)
	line := fmt.Sprintf("It's your turn. Please go to the reception desk at %s now.", clinic)

	return Message{
		To:      data.Email,
		Subject: subject,
		Text:    fmt.Sprintf("Hi %s,\n\n%s\n\n%s", name, line, clinic),
		HTML:    fmt.Sprintf(pageTemplate, html.EscapeString(name), html.EscapeString(line), html.EscapeString(clinic)),
		Headers: map[string]string{NoticeHeader: kind},
	}
}

// BuildSoonEmail tells a patient their turn is close.
func BuildSoonEmail(data TurnEmailData) Message {
	const kind = "soon"
	name := fallback(data.Name, "there")
	clinic := fallback(data.ClinicName, "the clinic")

	subject := fmt.Sprintf("Your turn at %s is coming up", clinic)
	var line string
	if data.Ahead == 1 {
		line = fmt.Sprintf("There is 1 patient ahead of you at %s. Please stay close to the waiting area.", clinic)
	} else {
		line = fmt.Sprintf("There are %d patients ahead of you at %s. Please stay close to the waiting area.", data.Ahead, clinic)
	}

	return Message{
		To:      data.Email,
		Subject: subject,
		Text:    fmt.Sprintf("Hi %s,\n\n%s\n\n%s", name, line, clinic),
		HTML:    fmt.Sprintf(pageTemplate, html.EscapeString(name), html.EscapeString(line), html.EscapeString(clinic)),
		Headers: map[string]string{NoticeHeader: kind},
	}
}

func fallback(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
