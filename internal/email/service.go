package email

import (
	"fmt"
	"net/smtp"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/badogar/solidus/internal/domain/money"
)

// Service handles email sending via SMTP
type Service struct {
	host      string
	port      string
	from      string
	formatter *money.Formatter
	logger    *zap.Logger
	sendMail  func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewService creates a new email service. A nil formatter renders US dollars.
func NewService(host, port, from string, formatter *money.Formatter, logger *zap.Logger) *Service {
	if formatter == nil {
		formatter = money.NewFormatter(language.AmericanEnglish, money.MustCurrency("USD"))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		host:      host,
		port:      port,
		from:      from,
		formatter: formatter,
		logger:    logger.Named("email"),
		sendMail:  smtp.SendMail,
	}
}

// SendOrderConfirmation sends an order confirmation email
func (s *Service) SendOrderConfirmation(to, orderNumber string, total decimal.Decimal, items []OrderItem) error {
	subject := fmt.Sprintf("Order confirmation %s", orderNumber)
	body := BuildOrderConfirmationBody(s.formatter, orderNumber, total, items)
	return s.send(to, subject, body)
}

// SendOrderCancellation tells the customer the order was canceled.
func (s *Service) SendOrderCancellation(to, orderNumber string, total decimal.Decimal) error {
	subject := fmt.Sprintf("Order %s has been canceled", orderNumber)
	body := BuildOrderCancellationBody(s.formatter, orderNumber, total)
	return s.send(to, subject, body)
}

func (s *Service) send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	if err := s.sendMail(addr, nil, s.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	s.logger.Info("mail sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}
