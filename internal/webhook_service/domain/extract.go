package domain

import (
	"regexp"
	"strings"
)

// ExtractedFields holds the lead fields recovered from a forwarded email.
// An empty string means the field was absent from the text; each field is
// independently optional.
type ExtractedFields struct {
	OrganizationName string
	Domain           string
	SalespersonEmail string
}

// HasLead reports whether enough was extracted to create an order. Orders
// are never dispatched when both the domain and the organization name are
// missing.
func (f ExtractedFields) HasLead() bool {
	return f.OrganizationName != "" || f.Domain != ""
}

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	entityPattern     = regexp.MustCompile(`(?i)&nbsp;|&#160;|&#xa0;`)
	whitespacePattern = regexp.MustCompile(`\s+`)

	// Section keywords used by the Swedish lead emails this bridge consumes.
	companyKeyword  = regexp.MustCompile(`(?i)företag`)
	resourceKeyword = regexp.MustCompile(`(?i)resurs`)
	urlKeyword      = regexp.MustCompile(`(?i)\burl\b`)
	sectionKeyword  = regexp.MustCompile(`(?i)\b(start|plats)\b`)

	namePattern  = regexp.MustCompile(`^[0-9A-Za-zÅÄÖåäö \-.,()&]+`)
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	urlPattern   = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?[A-Za-z0-9\-]+(?:\.[A-Za-z0-9\-]+)*\.[A-Za-z]{2,}(?:/\S*)?`)
)

// NormalizeText strips markup tags and collapses non-breaking-space
// entities and whitespace runs to single spaces.
func NormalizeText(text string) string {
	text = tagPattern.ReplaceAllString(text, " ")
	text = entityPattern.ReplaceAllString(text, " ")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Extract recovers organization name, domain and salesperson email from a
// message. The body is tried first and the snippet serves as fallback, per
// field, so one truncated source does not block the others. Extraction is
// pure; the three heuristics never consume or mutate shared state.
func Extract(rec MessageRecord) ExtractedFields {
	var fields ExtractedFields
	for _, source := range []string{rec.Body, rec.Snippet} {
		if source == "" {
			continue
		}
		if fields.OrganizationName == "" {
			fields.OrganizationName = extractOrganization(source)
		}
		if fields.SalespersonEmail == "" {
			fields.SalespersonEmail = extractSalespersonEmail(source)
		}
		if fields.Domain == "" {
			fields.Domain = extractDomain(source)
		}
	}
	return fields
}

// extractOrganization takes everything after the first "företag" in the raw
// text, normalizes it, and captures the leading run of name characters,
// cutting before a later section keyword ("start"/"plats") if one appears.
func extractOrganization(raw string) string {
	loc := companyKeyword.FindStringIndex(raw)
	if loc == nil {
		return ""
	}
	tail := NormalizeText(raw[loc[1]:])
	tail = strings.TrimLeft(tail, ": ")
	if stop := sectionKeyword.FindStringIndex(tail); stop != nil {
		tail = tail[:stop[0]]
	}
	return strings.TrimSpace(namePattern.FindString(tail))
}

// extractSalespersonEmail returns the first email-shaped token after the
// "resurs" keyword.
func extractSalespersonEmail(raw string) string {
	norm := NormalizeText(raw)
	loc := resourceKeyword.FindStringIndex(norm)
	if loc == nil {
		return ""
	}
	return emailPattern.FindString(norm[loc[1]:])
}

// extractDomain returns the first URL-shaped token after the "url" keyword,
// reduced to a bare lowercase host.
func extractDomain(raw string) string {
	norm := NormalizeText(raw)
	loc := urlKeyword.FindStringIndex(norm)
	if loc == nil {
		return ""
	}
	token := urlPattern.FindString(norm[loc[1]:])
	if token == "" {
		return ""
	}
	host := strings.ToLower(strings.TrimSpace(token))
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	if i := strings.IndexByte(host, '/'); i >= 0 {
		host = host[:i]
	}
	host = strings.TrimPrefix(host, "www.")
	return strings.TrimSpace(host)
}
