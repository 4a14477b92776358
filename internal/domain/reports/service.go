package reports

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/jung-kurt/gofpdf"
)

type Service struct {
	Store *Store
}

func NewService(store *Store) *Service {
	return &Service{Store: store}
}

func (s *Service) CompanySummary(ctx context.Context, companyID string) (CompanySummary, error) {
	return s.Store.CompanySummary(ctx, companyID)
}

// CompanySummaryPDF renders the summary as a one-page PDF.
func (s *Service) CompanySummaryPDF(ctx context.Context, companyID string) ([]byte, error) {
	summary, err := s.Store.CompanySummary(ctx, companyID)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Company Summary")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Company: %s", summary.CompanyName))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Departments: %d", summary.DepartmentCount))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Employees: %d", summary.EmployeeCount))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Projects: %d", summary.ProjectCount))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Departments")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	for _, dept := range summary.Departments {
		pdf.Cell(0, 7, fmt.Sprintf("%s - %d employees, %d projects", dept.Name, dept.EmployeeCount, dept.ProjectCount))
		pdf.Ln(6)
	}

	if len(summary.ReviewsByState) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 13)
		pdf.Cell(0, 8, "Performance Reviews")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 11)
		states := make([]string, 0, len(summary.ReviewsByState))
		for state := range summary.ReviewsByState {
			states = append(states, state)
		}
		sort.Strings(states)
		for _, state := range states {
			pdf.Cell(0, 7, fmt.Sprintf("%s: %d", state, summary.ReviewsByState[state]))
			pdf.Ln(6)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
