package export

import (
	"fmt"
	"strings"
	"time"
)

const (
	certificateTitle      = "NO OBJECTION CERTIFICATE"
	certificateSalutation = "To Whomsoever It May Concern,"
	certificateClosing    = "The university has no objection to their participation in this " +
		"internship program provided they maintain their academic responsibilities. This " +
		"certificate is issued upon the student's request for the purpose of their internship " +
		"application."
	certificateSignature = "Faculty Signature"

	certificateWidth = 72
)

// CertificateData carries everything needed to render one NOC document.
type CertificateData struct {
	RefNumber   string
	IssueDate   string
	StudentName string
	CompanyName string
	RoleTitle   string
	Duration    string
	StartDate   string
	EndDate     string
}

// RefNumber formats the canonical certificate reference for a request id.
func RefNumber(id int64) string {
	return fmt.Sprintf("NOC-%04d", id)
}

// FormatDate renders an ISO date as a long-form date, leaving unparseable
// values untouched since internship dates are free text at this layer.
func FormatDate(raw string) string {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("January 2, 2006")
		}
	}
	return raw
}

// CertificateText renders the fixed-format text document: centered title,
// right-aligned date and reference, salutation, two body paragraphs and a
// signature block. The output is deterministic for a given input.
func CertificateText(data CertificateData) string {
	var b strings.Builder

	b.WriteString(center(certificateTitle, certificateWidth))
	b.WriteString("\n\n")
	b.WriteString(rightAlign("Date: "+data.IssueDate, certificateWidth))
	b.WriteString("\n")
	b.WriteString(rightAlign("Ref: "+data.RefNumber, certificateWidth))
	b.WriteString("\n\n")
	b.WriteString(certificateSalutation)
	b.WriteString("\n\n")
	b.WriteString(wrap(certificateBody(data), certificateWidth))
	b.WriteString("\n\n")
	b.WriteString(wrap(certificateClosing, certificateWidth))
	b.WriteString("\n\n\n")
	b.WriteString(strings.Repeat("_", 28))
	b.WriteString("\n")
	b.WriteString(certificateSignature)
	b.WriteString("\n")

	return b.String()
}

func certificateBody(data CertificateData) string {
	return fmt.Sprintf("This is to certify that %s, a student of our university, has been "+
		"permitted to pursue an internship at %s for the duration of %s from %s to %s as a %s.",
		data.StudentName,
		data.CompanyName,
		data.Duration,
		FormatDate(data.StartDate),
		FormatDate(data.EndDate),
		data.RoleTitle,
	)
}

func center(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", (width-len(s))/2) + s
}

func rightAlign(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

func wrap(s string, width int) string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}

	var b strings.Builder
	lineLen := 0
	for i, word := range words {
		if i == 0 {
			b.WriteString(word)
			lineLen = len(word)
			continue
		}
		if lineLen+1+len(word) > width {
			b.WriteString("\n")
			b.WriteString(word)
			lineLen = len(word)
			continue
		}
		b.WriteString(" ")
		b.WriteString(word)
		lineLen += 1 + len(word)
	}
	return b.String()
}
