package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"railway/internal/domain"
	"railway/internal/domain/models"
	"railway/internal/utils"

	"github.com/phpdave11/gofpdf"
)

// DocsService renders order documents as PDF.
type DocsService struct {
	Orders *OrderService
	Loader func(ctx context.Context, userID, orderID int64) (models.Order, error)
}

// GenerateETicket renders one A4 page for an order. Released orders have no
// ticket.
func (s DocsService) GenerateETicket(ctx context.Context, userID, orderID int64) ([]byte, string, error) {
	o, err := s.load(ctx, userID, orderID)
	if err != nil {
		return nil, "", err
	}
	if o.Status.Released() {
		return nil, "", domain.ConflictError{Resource: "order", Msg: fmt.Sprintf("order is %s", o.Status), Err: domain.ErrInvalidTransition}
	}
	utils.LogEvent(domain.RequestID(ctx), "docs", "generate_eticket", fmt.Sprintf("order_id=%d", o.ID))
	return buildETicketPDF(o)
}

func (s DocsService) load(ctx context.Context, userID, orderID int64) (models.Order, error) {
	if s.Loader != nil {
		return s.Loader(ctx, userID, orderID)
	}
	return s.Orders.GetOrder(ctx, userID, orderID)
}

func buildETicketPDF(o models.Order) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("E-Ticket "+o.OrderNumber(), false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "E-TICKET")
	pdf.Ln(12)

	// Core fonts are latin-1 only; the translator maps what it can.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Order No     : %s", o.OrderNumber()),
		fmt.Sprintf("Train        : %s", safe(o.TrainNo, "-")),
		fmt.Sprintf("Route        : %s -> %s", safe(o.Origin, "-"), safe(o.Destination, "-")),
		fmt.Sprintf("Travel date  : %s", safe(o.TravelDate, "-")),
		fmt.Sprintf("Status       : %s", o.Status),
		fmt.Sprintf("Total        : %s", formatYuanASCII(o.TotalPrice)),
	}
	if o.Status == models.OrderPending {
		lines = append(lines, fmt.Sprintf("Pay before   : %s", utils.FormatDateTime(o.ExpiresAt)))
	}
	for _, s := range lines {
		pdf.Cell(0, 7, tr(s))
		pdf.Ln(7)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Passengers")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	for i, it := range o.Items {
		row := fmt.Sprintf("%d) #%d %s  %s  %s", i+1, it.PassengerID, safe(it.PassengerName, "-"), it.SeatClass, formatYuanASCII(it.Price))
		pdf.Cell(0, 6, tr(row))
		pdf.Ln(6)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Valid only for the passengers listed above. Ticket is void if the order is cancelled or expires.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("ETICKET_%s_%s.pdf", o.OrderNumber(), safeFilenamePart(o.TrainNo+"_"+o.TravelDate))
	return buf.Bytes(), filename, nil
}

func safe(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}

func safeFilenamePart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "NA"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	s = replacer.Replace(s)
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}

// formatYuanASCII is FormatYuan with a CNY prefix the core PDF fonts can draw.
func formatYuanASCII(m models.Money) string {
	return "CNY " + strings.Replace(utils.FormatYuan(m), "¥", "", 1)
}
