package extractor

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/mnako/letters"
)

// extractEmail formats an EML message's headers and body into a single
// segment, same layout as the teacher's parseEmail.
func extractEmail(data []byte) ([]RawSegment, error) {
	email, err := letters.ParseEmail(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse EML file: %w", err)
	}

	var builder strings.Builder

	if email.Headers.Subject != "" {
		builder.WriteString(fmt.Sprintf("Subject: %s\n", email.Headers.Subject))
	}
	if len(email.Headers.From) > 0 {
		from := email.Headers.From[0]
		sender := from.Address
		if from.Name != "" {
			sender = fmt.Sprintf("%s <%s>", from.Name, from.Address)
		}
		builder.WriteString(fmt.Sprintf("Sender: %s\n", sender))
	}
	if !email.Headers.Date.IsZero() {
		builder.WriteString(fmt.Sprintf("Date: %s\n", email.Headers.Date.Format(time.RFC3339)))
	}

	builder.WriteString("\n")
	switch {
	case email.Text != "":
		builder.WriteString(email.Text)
	case email.HTML != "":
		builder.WriteString(email.HTML)
	}

	result := strings.TrimSpace(builder.String())
	if result == "" {
		return nil, fmt.Errorf("no content extracted from EML")
	}
	return []RawSegment{{Content: result}}, nil
}
