package contacts

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"+1 (555) 000-2222", "+15550002222"},
		{"555.000.2222", "5550002222"},
		{"+44 20 7946 0958", "+442079460958"},
		{"abc", ""},
	}
	for _, tt := range tests {
		if got := NormalizePhone(tt.in); got != tt.want {
			t.Fatalf("NormalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCreateNormalizesAndDefaults(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	c, err := svc.Create(context.Background(), Contact{
		WorkspaceID: "ws-1",
		FirstName:   " Dana ",
		LastName:    "Ortiz",
		Phone:       "+1 (555) 000-2222",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.ID == "" || c.CreatedAt.IsZero() {
		t.Fatalf("defaults not filled: %+v", c)
	}
	if c.Phone != "+15550002222" {
		t.Fatalf("phone = %q", c.Phone)
	}
	if c.FirstName != "Dana" {
		t.Fatalf("first name not trimmed: %q", c.FirstName)
	}
	if c.LeadStatus != LeadStatusNew {
		t.Fatalf("lead status = %q, want new", c.LeadStatus)
	}
}

func TestCreateValidates(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	cases := []Contact{
		{FirstName: "Dana", Phone: "+15550002222"},   // no workspace
		{WorkspaceID: "ws-1", FirstName: "Dana"},     // no phone
		{WorkspaceID: "ws-1", Phone: "+15550002222"}, // no name or company
		{WorkspaceID: "ws-1", FirstName: "D", Phone: "+15550002222", LeadStatus: "bogus"},
	}
	for i, c := range cases {
		if _, err := svc.Create(ctx, c); !errors.Is(err, ErrInvalidContact) {
			t.Fatalf("case %d: err = %v, want ErrInvalidContact", i, err)
		}
	}
}

func TestCreateRejectsDuplicatePhone(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	if _, err := svc.Create(ctx, Contact{WorkspaceID: "ws-1", FirstName: "A", Phone: "5550002222"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Create(ctx, Contact{WorkspaceID: "ws-1", FirstName: "B", Phone: "(555) 000-2222"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
	// Same number in another workspace is fine.
	if _, err := svc.Create(ctx, Contact{WorkspaceID: "ws-2", FirstName: "C", Phone: "5550002222"}); err != nil {
		t.Fatalf("cross-workspace create: %v", err)
	}
}

func TestUpdatePreservesCreatedAt(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	c, err := svc.Create(ctx, Contact{WorkspaceID: "ws-1", FirstName: "Dana", Phone: "5550002222"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	c.LeadStatus = LeadStatusQualified
	got, err := svc.Update(ctx, c)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !got.CreatedAt.Equal(c.CreatedAt) {
		t.Fatalf("CreatedAt changed: %v -> %v", c.CreatedAt, got.CreatedAt)
	}
	if got.LeadStatus != LeadStatusQualified {
		t.Fatalf("lead status = %q", got.LeadStatus)
	}
}

func TestContactByPhone(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	c, err := svc.Create(ctx, Contact{WorkspaceID: "ws-1", FirstName: "Dana", LastName: "Ortiz", Phone: "5550002222"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id, name, err := svc.ContactByPhone(ctx, "ws-1", "(555) 000-2222")
	if err != nil {
		t.Fatalf("ContactByPhone: %v", err)
	}
	if id != c.ID || name != "Dana Ortiz" {
		t.Fatalf("resolved %q/%q", id, name)
	}
	if _, _, err := svc.ContactByPhone(ctx, "ws-1", "5559999999"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListSearch(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	seed := []Contact{
		{WorkspaceID: "ws-1", FirstName: "Dana", LastName: "Ortiz", Company: "Acme", Phone: "5550000001"},
		{WorkspaceID: "ws-1", FirstName: "Lee", LastName: "Chen", Company: "Globex", Phone: "5550000002"},
		{WorkspaceID: "ws-1", FirstName: "Sam", LastName: "Acosta", Phone: "5550000003"},
	}
	for _, c := range seed {
		if _, err := svc.Create(ctx, c); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	got, err := svc.List(ctx, "ws-1", Query{Search: "ac"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	// "ac" matches Acme (company) and Acosta (last name), ordered by last name.
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(got), got)
	}
	if got[0].LastName != "Acosta" || got[1].LastName != "Ortiz" {
		t.Fatalf("order: %q then %q", got[0].LastName, got[1].LastName)
	}

	got, err = svc.List(ctx, "ws-1", Query{Search: "5550000002"})
	if err != nil {
		t.Fatalf("List by phone: %v", err)
	}
	if len(got) != 1 || got[0].FirstName != "Lee" {
		t.Fatalf("phone search: %+v", got)
	}
}

func TestImportCSV(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	csvData := strings.Join([]string{
		"First Name,Last,Phone,Email,Status",
		"Dana,Ortiz,+1 (555) 000-2222,dana@acme.test,qualified",
		"Lee,Chen,555-000-3333,,",
		",,no-digits,,",                // invalid phone
		"Dana,Ortiz,+1 555 000 2222,,", // duplicate of row 1
		"Sam,Acosta,5550004444,,bogus-status",
	}, "\n")

	report, err := svc.ImportCSV(ctx, "ws-1", "u-1", strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if report.Imported != 2 {
		t.Fatalf("imported = %d, want 2 (report: %+v)", report.Imported, report)
	}
	if report.Skipped != 3 || len(report.Errors) != 3 {
		t.Fatalf("skipped = %d errors = %d, want 3/3", report.Skipped, len(report.Errors))
	}
	for _, e := range report.Errors {
		if e.Line < 2 {
			t.Fatalf("error line %d points at the header", e.Line)
		}
	}

	c, err := svc.repo.GetByPhone(ctx, "ws-1", "+15550002222")
	if err != nil {
		t.Fatalf("GetByPhone: %v", err)
	}
	if c.LeadStatus != LeadStatusQualified || c.OwnerUserID != "u-1" || c.Email != "dana@acme.test" {
		t.Fatalf("imported contact = %+v", c)
	}
}

func TestImportCSVRequiresPhoneColumn(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	if _, err := svc.ImportCSV(context.Background(), "ws-1", "", strings.NewReader("first,last\nA,B")); err == nil {
		t.Fatal("expected error for missing phone column")
	}
}
