package donor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pledgehub/backend/internal/domain/donor"
	"github.com/pledgehub/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ContactService provides application-level contact operations
type ContactService struct {
	contactRepo donor.ContactRepository
	pledgeRepo  donor.PledgeRepository
	publisher   shared.EventPublisher
	logger      *zap.Logger
}

// NewContactService creates a new ContactService. The publisher may be nil.
func NewContactService(
	contactRepo donor.ContactRepository,
	pledgeRepo donor.PledgeRepository,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *ContactService {
	return &ContactService{
		contactRepo: contactRepo,
		pledgeRepo:  pledgeRepo,
		publisher:   publisher,
		logger:      logger,
	}
}

func (s *ContactService) publishEvents(ctx context.Context, contact *donor.Contact) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, contact.GetDomainEvents()...); err != nil {
		s.logger.Warn("failed to publish contact events", zap.Error(err))
	}
	contact.ClearDomainEvents()
}

// CreateContactRequest is the payload for creating a contact
type CreateContactRequest struct {
	FirstName string `json:"first_name" binding:"required,max=100"`
	LastName  string `json:"last_name" binding:"required,max=100"`
	Email     string `json:"email" binding:"omitempty,email,max=200"`
	Phone     string `json:"phone" binding:"omitempty,max=50"`
	Address   string `json:"address" binding:"omitempty,max=500"`
	Notes     string `json:"notes" binding:"omitempty,max=2000"`
}

// UpdateContactRequest is the payload for updating a contact
type UpdateContactRequest struct {
	FirstName string `json:"first_name" binding:"required,max=100"`
	LastName  string `json:"last_name" binding:"required,max=100"`
	Email     string `json:"email" binding:"omitempty,email,max=200"`
	Phone     string `json:"phone" binding:"omitempty,max=50"`
	Address   string `json:"address" binding:"omitempty,max=500"`
	Notes     string `json:"notes" binding:"omitempty,max=2000"`
}

// ContactResponse represents a contact in API responses
type ContactResponse struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toContactResponse(c *donor.Contact) *ContactResponse {
	return &ContactResponse{
		ID:        c.ID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		FullName:  c.FullName(),
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		Notes:     c.Notes,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// CreateContact creates a new contact
func (s *ContactService) CreateContact(ctx context.Context, req CreateContactRequest) (*ContactResponse, error) {
	if req.Email != "" {
		existing, err := s.contactRepo.FindByEmail(ctx, req.Email)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		if existing != nil {
			return nil, shared.NewDomainError("ALREADY_EXISTS", "A contact with this email already exists")
		}
	}

	contact, err := donor.NewContact(req.FirstName, req.LastName, req.Email, req.Phone)
	if err != nil {
		return nil, err
	}
	contact.Address = req.Address
	contact.Notes = req.Notes

	if err := s.contactRepo.Save(ctx, contact); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, contact)

	s.logger.Info("contact created",
		zap.String("contact_id", contact.ID.String()),
		zap.String("name", contact.FullName()))

	return toContactResponse(contact), nil
}

// GetContact gets a contact by ID
func (s *ContactService) GetContact(ctx context.Context, id uuid.UUID) (*ContactResponse, error) {
	contact, err := s.contactRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Contact not found")
	}
	return toContactResponse(contact), nil
}

// ListContacts lists contacts with paging and search
func (s *ContactService) ListContacts(ctx context.Context, filter shared.Filter) ([]ContactResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	contacts, err := s.contactRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.contactRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]ContactResponse, len(contacts))
	for i := range contacts {
		responses[i] = *toContactResponse(&contacts[i])
	}
	return responses, total, nil
}

// UpdateContact updates a contact's details
func (s *ContactService) UpdateContact(ctx context.Context, id uuid.UUID, req UpdateContactRequest) (*ContactResponse, error) {
	contact, err := s.contactRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Contact not found")
	}

	if req.Email != "" && req.Email != contact.Email {
		existing, err := s.contactRepo.FindByEmail(ctx, req.Email)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		if existing != nil && existing.ID != contact.ID {
			return nil, shared.NewDomainError("ALREADY_EXISTS", "A contact with this email already exists")
		}
	}

	if err := contact.Update(req.FirstName, req.LastName, req.Email, req.Phone, req.Address, req.Notes); err != nil {
		return nil, err
	}
	if err := s.contactRepo.Save(ctx, contact); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, contact)

	return toContactResponse(contact), nil
}

// DeleteContact deletes a contact without pledges
func (s *ContactService) DeleteContact(ctx context.Context, id uuid.UUID) error {
	contact, err := s.contactRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if contact == nil {
		return shared.NewDomainError("NOT_FOUND", "Contact not found")
	}

	count, err := s.pledgeRepo.Count(ctx, donor.PledgeFilter{ContactID: &id})
	if err != nil {
		return err
	}
	if count > 0 {
		return shared.NewDomainError("INVALID_STATE", "Contact has pledges and cannot be deleted")
	}

	return s.contactRepo.Delete(ctx, id)
}
