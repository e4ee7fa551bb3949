package templates

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"sales-crm/internal/contacts"

	"github.com/google/uuid"
)

var ErrInvalidTemplate = errors.New("templates: invalid template")

var placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)

// Service owns template CRUD and rendering.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) validate(t *Template) error {
	t.Name = strings.TrimSpace(t.Name)
	if t.WorkspaceID == "" || t.Name == "" || strings.TrimSpace(t.Body) == "" {
		return ErrInvalidTemplate
	}
	if !t.Channel.Valid() {
		return ErrInvalidTemplate
	}
	return nil
}

func (s *Service) Create(ctx context.Context, t Template) (Template, error) {
	if err := s.validate(&t); err != nil {
		return Template{}, err
	}
	now := s.clock().UTC()
	t.ID = uuid.NewString()
	t.CreatedAt = now
	t.UpdatedAt = now
	if err := s.repo.Insert(ctx, t); err != nil {
		return Template{}, err
	}
	return t, nil
}

func (s *Service) Update(ctx context.Context, t Template) (Template, error) {
	if t.ID == "" {
		return Template{}, ErrInvalidTemplate
	}
	if err := s.validate(&t); err != nil {
		return Template{}, err
	}
	cur, err := s.repo.Get(ctx, t.WorkspaceID, t.ID)
	if err != nil {
		return Template{}, err
	}
	t.CreatedAt = cur.CreatedAt
	t.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, t); err != nil {
		return Template{}, err
	}
	return t, nil
}

func (s *Service) Delete(ctx context.Context, workspaceID, id string) error {
	return s.repo.Delete(ctx, workspaceID, id)
}

func (s *Service) Get(ctx context.Context, workspaceID, id string) (Template, error) {
	return s.repo.Get(ctx, workspaceID, id)
}

func (s *Service) List(ctx context.Context, workspaceID string) ([]Template, error) {
	return s.repo.List(ctx, workspaceID)
}

// Render substitutes {{variable}} placeholders from vars. Unknown variables
// stay verbatim so the gap is visible to the sender instead of silently
// producing an empty blank.
func Render(body string, vars map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(body, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		if v, ok := vars[name]; ok {
			return v
		}
		return m
	})
}

// ContactVars builds the standard variable set for a contact.
func ContactVars(c contacts.Contact, senderName string) map[string]string {
	return map[string]string{
		"first_name":  c.FirstName,
		"last_name":   c.LastName,
		"full_name":   c.DisplayName(),
		"company":     c.Company,
		"phone":       c.Phone,
		"email":       c.Email,
		"sender_name": senderName,
	}
}

// RenderContact renders a stored template against a contact.
func (s *Service) RenderContact(ctx context.Context, workspaceID, id string, c contacts.Contact, senderName string) (subject, body string, err error) {
	t, err := s.repo.Get(ctx, workspaceID, id)
	if err != nil {
		return "", "", err
	}
	vars := ContactVars(c, senderName)
	return Render(t.Subject, vars), Render(t.Body, vars), nil
}
