package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"smartline-backend/internal/domain"
	"smartline-backend/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSender struct {
	configured bool
	chatID     string
	text       string
	err        error
}

func (s *fakeSender) Configured() bool { return s.configured }

func (s *fakeSender) SendHTML(ctx context.Context, chatID, text string) error {
	s.chatID = chatID
	s.text = text
	return s.err
}

type fakeWorkOrderReader struct {
	order *domain.WorkOrder
}

func (r fakeWorkOrderReader) Get(ctx context.Context, id int64) (*domain.WorkOrder, error) {
	if r.order == nil || r.order.ID != id {
		return nil, repository.ErrNotFound
	}
	return r.order, nil
}

func TestFormatPrice(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0 ₽"},
		{999, "999 ₽"},
		{1000, "1 000 ₽"},
		{45000, "45 000 ₽"},
		{1234567, "1 234 567 ₽"},
		{12999.99, "12 999 ₽"},
		{-4500, "-4 500 ₽"},
	}
	for _, c := range cases {
		if got := FormatPrice(c.in); got != c.want {
			t.Errorf("FormatPrice(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatWorkOrderMessage(t *testing.T) {
	wo := domain.WorkOrder{
		ID:         12,
		ClientName: "Иван Петров",
		CarInfo:    "Toyota Camry 2020",
		CreatedAt:  time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		Works: []domain.WorkItem{
			{Name: "Установка сигнализации", Price: 8000, Qty: 2},
			{Name: "Диагностика", Price: 1500, Qty: 1},
		},
		Parts: []domain.PartItem{
			{Name: "StarLine A93", SellPrice: 12000, Qty: 1},
			{Name: "Проводка", SellPrice: 500, Qty: 3},
		},
	}
	msg := FormatWorkOrderMessage(wo)

	if !strings.Contains(msg, "📋 <b>Заказ-наряд ЗН-0012</b>") {
		t.Errorf("missing header:\n%s", msg)
	}
	if !strings.Contains(msg, "📅 14.03.2025") {
		t.Errorf("missing date:\n%s", msg)
	}
	// works total ignores qty
	if !strings.Contains(msg, "<b>Итого: 9 500 ₽</b>") {
		t.Errorf("works total wrong:\n%s", msg)
	}
	// parts are quantity-weighted
	if !strings.Contains(msg, "2. Проводка x3 — 1 500 ₽") {
		t.Errorf("part line wrong:\n%s", msg)
	}
	if !strings.Contains(msg, "💰 <b>ИТОГО: 23 000 ₽</b>") {
		t.Errorf("grand total wrong:\n%s", msg)
	}
	if !strings.HasSuffix(msg, "<i>Smartline</i>") {
		t.Errorf("missing trailer:\n%s", msg)
	}
}

func TestFormatWorkOrderMessageNoCar(t *testing.T) {
	wo := domain.WorkOrder{ID: 1, ClientName: "Клиент", CreatedAt: time.Now()}
	msg := FormatWorkOrderMessage(wo)
	if !strings.Contains(msg, "🚗 —") {
		t.Errorf("expected dash for missing car:\n%s", msg)
	}
	if strings.Contains(msg, "Работы:") || strings.Contains(msg, "Запчасти:") {
		t.Errorf("empty sections should be omitted:\n%s", msg)
	}
}

func TestSendWorkOrder(t *testing.T) {
	sender := &fakeSender{configured: true}
	svc := NotifyService{
		Sender:     sender,
		WorkOrders: fakeWorkOrderReader{order: &domain.WorkOrder{ID: 5, ClientName: "А", CreatedAt: time.Now()}},
		Logger:     discardLogger(),
	}

	if err := svc.SendWorkOrder(context.Background(), 5, "12345"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sender.chatID != "12345" {
		t.Errorf("chat id = %q", sender.chatID)
	}
	if !strings.Contains(sender.text, "ЗН-0005") {
		t.Errorf("message does not mention the order number: %q", sender.text)
	}
}

func TestSendWorkOrderNotConfigured(t *testing.T) {
	svc := NotifyService{
		Sender:     &fakeSender{configured: false},
		WorkOrders: fakeWorkOrderReader{},
		Logger:     discardLogger(),
	}
	if err := svc.SendWorkOrder(context.Background(), 1, "1"); !errors.Is(err, ErrTelegramNotConfigured) {
		t.Fatalf("expected ErrTelegramNotConfigured, got %v", err)
	}
}

func TestSendWorkOrderNotFound(t *testing.T) {
	svc := NotifyService{
		Sender:     &fakeSender{configured: true},
		WorkOrders: fakeWorkOrderReader{},
		Logger:     discardLogger(),
	}
	if err := svc.SendWorkOrder(context.Background(), 7, "1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
