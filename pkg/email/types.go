package email

// Message is one notice to one patient.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
	// Headers are added as is, e.g. X-Queue-Notice.
	Headers map[string]string
}
