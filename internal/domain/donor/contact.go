package donor

import (
	"strings"
	"time"

	"github.com/pledgehub/backend/internal/domain/shared"
)

// Contact represents a donor contact aggregate root
type Contact struct {
	shared.BaseAggregateRoot
	FirstName string `gorm:"type:varchar(100);not null"`
	LastName  string `gorm:"type:varchar(100);not null"`
	Email     string `gorm:"type:varchar(255);index"`
	Phone     string `gorm:"type:varchar(50)"`
	Address   string `gorm:"type:varchar(500)"`
	Notes     string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Contact) TableName() string {
	return "contacts"
}

// NewContact creates a new contact
func NewContact(firstName, lastName, email, phone string) (*Contact, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if firstName == "" {
		return nil, shared.NewDomainError("INVALID_CONTACT_NAME", "First name cannot be empty")
	}
	if lastName == "" {
		return nil, shared.NewDomainError("INVALID_CONTACT_NAME", "Last name cannot be empty")
	}
	if len(firstName) > 100 || len(lastName) > 100 {
		return nil, shared.NewDomainError("INVALID_CONTACT_NAME", "Name cannot exceed 100 characters")
	}

	c := &Contact{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		FirstName:         firstName,
		LastName:          lastName,
		Email:             email,
		Phone:             phone,
	}

	c.AddDomainEvent(NewContactCreatedEvent(c))

	return c, nil
}

// FullName returns the contact's display name
func (c *Contact) FullName() string {
	return c.FirstName + " " + c.LastName
}

// Update updates the contact's details
func (c *Contact) Update(firstName, lastName, email, phone, address, notes string) error {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if firstName == "" || lastName == "" {
		return shared.NewDomainError("INVALID_CONTACT_NAME", "Name cannot be empty")
	}

	c.FirstName = firstName
	c.LastName = lastName
	c.Email = email
	c.Phone = phone
	c.Address = address
	c.Notes = notes
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	return nil
}
