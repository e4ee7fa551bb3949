package contacts

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidContact = errors.New("contacts: invalid contact")

// Service owns contact CRUD and CSV import.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// NormalizePhone strips formatting down to digits, keeping one leading +.
func NormalizePhone(number string) string {
	var b strings.Builder
	for i, r := range number {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (s *Service) validate(c *Contact) error {
	c.Phone = NormalizePhone(c.Phone)
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.Email = strings.TrimSpace(c.Email)

	if c.WorkspaceID == "" {
		return ErrInvalidContact
	}
	if c.Phone == "" {
		return fmt.Errorf("%w: phone required", ErrInvalidContact)
	}
	if c.FirstName == "" && c.LastName == "" && c.Company == "" {
		return fmt.Errorf("%w: a name or company is required", ErrInvalidContact)
	}
	if c.LeadStatus == "" {
		c.LeadStatus = LeadStatusNew
	}
	if !c.LeadStatus.Valid() {
		return fmt.Errorf("%w: unknown lead status %q", ErrInvalidContact, c.LeadStatus)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, c Contact) (Contact, error) {
	if err := s.validate(&c); err != nil {
		return Contact{}, err
	}
	now := s.clock().UTC()
	c.ID = uuid.NewString()
	c.CreatedAt = now
	c.UpdatedAt = now
	if err := s.repo.Insert(ctx, c); err != nil {
		return Contact{}, err
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, c Contact) (Contact, error) {
	if c.ID == "" {
		return Contact{}, ErrInvalidContact
	}
	if err := s.validate(&c); err != nil {
		return Contact{}, err
	}
	cur, err := s.repo.Get(ctx, c.WorkspaceID, c.ID)
	if err != nil {
		return Contact{}, err
	}
	c.CreatedAt = cur.CreatedAt
	c.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, c); err != nil {
		return Contact{}, err
	}
	return c, nil
}

func (s *Service) Delete(ctx context.Context, workspaceID, id string) error {
	return s.repo.Delete(ctx, workspaceID, id)
}

func (s *Service) Get(ctx context.Context, workspaceID, id string) (Contact, error) {
	return s.repo.Get(ctx, workspaceID, id)
}

func (s *Service) List(ctx context.Context, workspaceID string, q Query) ([]Contact, error) {
	return s.repo.List(ctx, workspaceID, q)
}

// ContactByPhone resolves a normalized phone number to its contact. The call
// history uses it to link rows back to CRM records.
func (s *Service) ContactByPhone(ctx context.Context, workspaceID, phone string) (string, string, error) {
	c, err := s.repo.GetByPhone(ctx, workspaceID, NormalizePhone(phone))
	if err != nil {
		return "", "", err
	}
	return c.ID, c.DisplayName(), nil
}

// ImportReport summarizes one CSV import run.
type ImportReport struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors,omitempty"`
}

// ImportError records why one CSV row was skipped. Line numbers are
// 1-based and count the header.
type ImportError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// csvHeaderAliases maps accepted header spellings to canonical field names.
var csvHeaderAliases = map[string]string{
	"first_name":   "first_name",
	"firstname":    "first_name",
	"first":        "first_name",
	"last_name":    "last_name",
	"lastname":     "last_name",
	"last":         "last_name",
	"company":      "company",
	"phone":        "phone",
	"phone_number": "phone",
	"email":        "email",
	"source":       "source",
	"lead_status":  "lead_status",
	"status":       "lead_status",
	"notes":        "notes",
}

// ImportCSV bulk-creates contacts from a CSV stream. Rows that fail
// validation or collide with existing numbers are skipped and reported;
// the import never aborts on a bad row.
func (s *Service) ImportCSV(ctx context.Context, workspaceID, ownerUserID string, r io.Reader) (ImportReport, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return ImportReport{}, fmt.Errorf("contacts: read csv header: %w", err)
	}
	fields := make([]string, len(header))
	hasPhone := false
	for i, h := range header {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
		name := csvHeaderAliases[key]
		fields[i] = name
		if name == "phone" {
			hasPhone = true
		}
	}
	if !hasPhone {
		return ImportReport{}, fmt.Errorf("contacts: csv is missing a phone column")
	}

	report := ImportReport{}
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, ImportError{Line: line, Reason: err.Error()})
			continue
		}

		c := Contact{WorkspaceID: workspaceID, OwnerUserID: ownerUserID}
		for i, v := range rec {
			if i >= len(fields) {
				break
			}
			v = strings.TrimSpace(v)
			switch fields[i] {
			case "first_name":
				c.FirstName = v
			case "last_name":
				c.LastName = v
			case "company":
				c.Company = v
			case "phone":
				c.Phone = v
			case "email":
				c.Email = v
			case "source":
				c.Source = v
			case "lead_status":
				c.LeadStatus = LeadStatus(strings.ToLower(v))
			case "notes":
				c.Notes = v
			}
		}

		if _, err := s.Create(ctx, c); err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, ImportError{Line: line, Reason: err.Error()})
			continue
		}
		report.Imported++
	}
	return report, nil
}
