package importer

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-vcard"

	"github.com/david8015838-create/nexus-mind/internal/models"
)

// birthdayLayouts are the BDAY shapes seen in exports from common address
// book apps.
var birthdayLayouts = []string{"2006-01-02", "20060102", "2006-01-02T15:04:05Z"}

// ParseVCF reads a vCard stream and maps each card onto a contact. Cards
// that fail to decode or carry no usable name are skipped with a warning;
// one bad card never sinks the file.
func ParseVCF(r io.Reader, logger *slog.Logger) ([]models.Contact, error) {
	decoder := vcard.NewDecoder(r)
	var contacts []models.Contact

	for {
		card, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.Warn("importer: skipping unreadable card", "error", err)
			continue
		}

		c, ok := contactFromCard(card)
		if !ok {
			logger.Warn("importer: skipping card without a name")
			continue
		}
		contacts = append(contacts, c)
	}

	if len(contacts) == 0 {
		return nil, fmt.Errorf("no importable cards found")
	}
	return contacts, nil
}

func contactFromCard(card vcard.Card) (models.Contact, bool) {
	name := card.PreferredValue(vcard.FieldFormattedName)
	if name == "" {
		if n := card.Name(); n != nil {
			name = strings.TrimSpace(n.GivenName + " " + n.FamilyName)
		}
	}
	if name == "" {
		return models.Contact{}, false
	}

	c := models.Contact{
		Name:    name,
		Phone:   card.PreferredValue(vcard.FieldTelephone),
		Email:   card.PreferredValue(vcard.FieldEmail),
		Company: card.PreferredValue(vcard.FieldOrganization),
		Title:   card.PreferredValue(vcard.FieldTitle),
		Website: card.PreferredValue(vcard.FieldURL),
		Bio:     card.PreferredValue(vcard.FieldNote),
	}

	if addr := card.Address(); addr != nil {
		parts := []string{addr.StreetAddress, addr.Locality, addr.Region, addr.PostalCode, addr.Country}
		var kept []string
		for _, p := range parts {
			if p != "" {
				kept = append(kept, p)
			}
		}
		c.Address = strings.Join(kept, ", ")
	}

	if bday := card.PreferredValue(vcard.FieldBirthday); bday != "" {
		for _, layout := range birthdayLayouts {
			if t, err := time.Parse(layout, bday); err == nil {
				t = t.UTC()
				c.Birthday = &t
				break
			}
		}
	}

	return c, true
}
