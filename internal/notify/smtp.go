package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

var ErrMissingRecipient = errors.New("email and customer name are required")

var (
	orderTemplate = template.Must(template.New("order").Funcs(templateFuncs).Parse(`<html><body>
<h2>Thank you for your order, {{.CustomerName}}!</h2>
<p>Order {{.Order.ReportID}} placed on {{date .Order.Date}}</p>
<table>
<tr><th>Item</th><th>Qty</th><th>Price</th><th>Total</th></tr>
{{range .Order.Items}}<tr><td>{{.Name}}</td><td>{{.Quantity}}</td><td>{{money .Price}}</td><td>{{money .Total}}</td></tr>
{{end}}</table>
<p>Subtotal: {{money .Order.Subtotal}}<br>Discount: {{money .Order.Discount}}<br><strong>Total: {{money .Order.Total}}</strong></p>
<p>Payment method: {{.Order.PaymentMethod}}<br>Payment status: {{.Order.PaymentStatus}}<br>Amount paid: {{money .Order.AmountPaid}}</p>
{{if .Order.RemainingBalance.IsPositive}}<p>Remaining balance: {{money .Order.RemainingBalance}}{{with .Order.DueDate}}, due {{date .}}{{end}}</p>{{end}}
{{with .Order.TrackingURL}}<p><a href="{{.}}">View your order</a></p>{{end}}
</body></html>`))

	reminderTemplate = template.Must(template.New("reminder").Funcs(templateFuncs).Parse(`<html><body>
<h2>Payment reminder</h2>
<p>Hello {{.Username}},</p>
<p>This is a reminder that {{money .Amount}} is still outstanding for order {{.OrderID}} (reference {{.DebtID}}).</p>
<p>The payment is due on {{date .DueDate}}.</p>
</body></html>`))

	templateFuncs = template.FuncMap{
		"money": func(v interface{ StringFixed(int32) string }) string { return v.StringFixed(2) },
		"date":  func(t time.Time) string { return t.Format("02 Jan 2006") },
	}
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPNotifier sends HTML mail. Calls go through a circuit breaker so a dead
// mail server fails fast instead of holding requests.
type SMTPNotifier struct {
	cfg     SMTPConfig
	send    sendFunc
	breaker *gobreaker.CircuitBreaker
	log     *zap.Logger
}

func NewSMTPNotifier(cfg SMTPConfig, log *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{
		cfg:  cfg,
		send: smtp.SendMail,
		log:  log,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "smtp",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("circuit breaker state changed",
					zap.String("name", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		}),
	}
}

func (n *SMTPNotifier) SendOrderConfirmation(ctx context.Context, email, customerName string, order OrderDetails) error {
	if err := validateOrder(email, customerName); err != nil {
		return err
	}
	var body bytes.Buffer
	data := struct {
		CustomerName string
		Order        OrderDetails
	}{customerName, order}
	if err := orderTemplate.Execute(&body, data); err != nil {
		return fmt.Errorf("render order confirmation: %w", err)
	}
	return n.deliver(ctx, email, "Your Order Confirmation", body.Bytes())
}

func (n *SMTPNotifier) SendDebtReminder(ctx context.Context, email string, reminder DebtReminder) error {
	if err := validateReminder(email, reminder); err != nil {
		return err
	}
	var body bytes.Buffer
	if err := reminderTemplate.Execute(&body, reminder); err != nil {
		return fmt.Errorf("render debt reminder: %w", err)
	}
	return n.deliver(ctx, email, "Payment Reminder", body.Bytes())
}

func (n *SMTPNotifier) deliver(ctx context.Context, to, subject string, html []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	msg.Write(html)

	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}
	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))

	_, err := n.breaker.Execute(func() (interface{}, error) {
		return nil, n.send(addr, auth, n.cfg.From, []string{to}, msg.Bytes())
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("mail server unavailable: %w", err)
	}
	if err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	n.log.Debug("mail sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

func validateOrder(email, customerName string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(customerName) == "" {
		return ErrMissingRecipient
	}
	return nil
}

func validateReminder(email string, reminder DebtReminder) error {
	if strings.TrimSpace(email) == "" || reminder.DebtID == "" {
		return errors.New("email and debt are required")
	}
	return nil
}
