// Package email defines the interface for templated transactional email
// delivery and provides a Mailgun-backed implementation.
package email

import "context"

// SendTemplateParams holds the data for a single templated send.
type SendTemplateParams struct {
	To       string // normalized recipient address
	Name     string // display name; may be empty
	From     string // sender address, e.g. "claims@mg.sablemail.com"
	Template string // provider-side template identifier
	DocID    string // sent-record id, round-tripped through callback events
}

// Sender is the interface the dispatch engine uses to deliver email. The
// returned requestID is the provider's identifier for the accepted message.
// Tests inject a stub that records calls without hitting the network.
type Sender interface {
	SendTemplate(ctx context.Context, p SendTemplateParams) (requestID string, err error)
}
