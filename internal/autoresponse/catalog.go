// Package autoresponse selects canned replies for new tickets and schedules
// their delivery.
package autoresponse

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/helpline-oss/support-desk/internal/domain"
)

// FallbackCategory supplies messages for categories missing from a catalog.
const FallbackCategory = domain.TicketCategoryGeneral

// Catalog maps a ticket category to its candidate messages.
type Catalog map[domain.TicketCategory][]string

// DefaultCatalog returns the built-in message table.
func DefaultCatalog() Catalog {
	return Catalog{
		domain.TicketCategoryTechnical: {
			"We have received your technical inquiry. Our technical support team will review it shortly.",
			"For technical issues, please make sure to include details about your operating system and browser.",
			"We are investigating the reported technical issue. We will keep you informed.",
		},
		domain.TicketCategoryBilling: {
			"Your billing inquiry has been received. The finance team will review it soon.",
			"For billing questions, you can find more information in your user dashboard.",
			"We have forwarded your inquiry to the corresponding billing department.",
		},
		domain.TicketCategoryGeneral: {
			"Thank you for contacting us. Your general inquiry has been received and will be handled soon.",
			"We have received your message. A representative will contact you shortly.",
			"Your inquiry has been successfully registered in our system.",
		},
		domain.TicketCategorySupport: {
			"Your support request has been received. Our team will attend to it as soon as possible.",
			"Thank you for contacting support. We are reviewing your case.",
			"Your support ticket has been assigned to a specialist.",
		},
	}
}

// Messages returns the candidates for category, falling back to the general
// list for unknown categories.
func (c Catalog) Messages(category domain.TicketCategory) []string {
	if msgs, ok := c[category]; ok && len(msgs) > 0 {
		return msgs
	}
	return c[FallbackCategory]
}

// Validate requires a non-empty fallback list and no empty entries.
func (c Catalog) Validate() error {
	if len(c[FallbackCategory]) == 0 {
		return fmt.Errorf("catalog must define messages for %q", FallbackCategory)
	}
	for category, msgs := range c {
		if len(msgs) == 0 {
			return fmt.Errorf("catalog category %q has no messages", category)
		}
		for i, msg := range msgs {
			if msg == "" {
				return fmt.Errorf("catalog category %q message %d is empty", category, i)
			}
		}
	}
	return nil
}

// catalogFile is the YAML layout:
//
//	categories:
//	  billing:
//	    - "Your billing inquiry has been received."
type catalogFile struct {
	Categories map[string][]string `yaml:"categories"`
}

// LoadCatalog reads a YAML catalog from path. An empty path yields the
// built-in table.
func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(raw)
}

// ParseCatalog decodes and validates a YAML catalog document.
func ParseCatalog(raw []byte) (Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	catalog := make(Catalog, len(file.Categories))
	for name, msgs := range file.Categories {
		catalog[domain.TicketCategory(name)] = msgs
	}
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return catalog, nil
}
