package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"smartline-backend/internal/domain"
)

var ErrTelegramNotConfigured = errors.New("telegram bot token not configured")

// MessageSender delivers a formatted message to a chat.
type MessageSender interface {
	Configured() bool
	SendHTML(ctx context.Context, chatID, text string) error
}

// WorkOrderReader loads one work order with its works and parts.
type WorkOrderReader interface {
	Get(ctx context.Context, id int64) (*domain.WorkOrder, error)
}

// NotifyService sends a work order summary to the client over Telegram.
type NotifyService struct {
	Sender     MessageSender
	WorkOrders WorkOrderReader
	Logger     *slog.Logger
}

func (s NotifyService) SendWorkOrder(ctx context.Context, workOrderID int64, chatID string) error {
	if !s.Sender.Configured() {
		return ErrTelegramNotConfigured
	}
	wo, err := s.WorkOrders.Get(ctx, workOrderID)
	if err != nil {
		return err
	}
	text := FormatWorkOrderMessage(*wo)
	if err := s.Sender.SendHTML(ctx, chatID, text); err != nil {
		return err
	}
	s.Logger.Info("work order sent to telegram", "work_order_id", workOrderID)
	return nil
}

// FormatWorkOrderMessage renders the HTML message: header, the works with
// their lifetime total, the parts with quantity-weighted totals, and the
// grand total.
func FormatWorkOrderMessage(wo domain.WorkOrder) string {
	car := wo.CarInfo
	if car == "" {
		car = "—"
	}
	lines := []string{
		fmt.Sprintf("📋 <b>Заказ-наряд %s</b>", domain.WorkOrderNumber(wo.ID)),
		"📅 " + wo.CreatedAt.Format("02.01.2006"),
		"👤 " + wo.ClientName,
		"🚗 " + car,
		"",
	}

	var worksTotal float64
	if len(wo.Works) > 0 {
		lines = append(lines, "<b>Работы:</b>")
		for i, item := range wo.Works {
			worksTotal += item.Price
			lines = append(lines, fmt.Sprintf("  %d. %s — %s", i+1, item.Name, FormatPrice(item.Price)))
		}
		lines = append(lines, fmt.Sprintf("<b>Итого: %s</b>", FormatPrice(worksTotal)), "")
	}

	var partsTotal float64
	if len(wo.Parts) > 0 {
		lines = append(lines, "<b>Запчасти:</b>")
		for i, item := range wo.Parts {
			sum := item.SellPrice * float64(item.Qty)
			partsTotal += sum
			lines = append(lines, fmt.Sprintf("  %d. %s x%d — %s", i+1, item.Name, item.Qty, FormatPrice(sum)))
		}
		lines = append(lines, fmt.Sprintf("<b>Итого: %s</b>", FormatPrice(partsTotal)), "")
	}

	lines = append(lines,
		fmt.Sprintf("💰 <b>ИТОГО: %s</b>", FormatPrice(worksTotal+partsTotal)),
		"",
		"<i>Smartline</i>",
	)
	return strings.Join(lines, "\n")
}

// FormatPrice renders a rouble amount with space-grouped thousands, truncated
// to whole roubles.
func FormatPrice(n float64) string {
	digits := fmt.Sprintf("%d", int64(n))
	neg := strings.HasPrefix(digits, "-")
	if neg {
		digits = digits[1:]
	}
	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)
	out := strings.Join(groups, " ")
	if neg {
		out = "-" + out
	}
	return out + " ₽"
}
