package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"text/template"
	"time"

	"github.com/erp/acct/internal/domain/accounting"
	"github.com/erp/acct/internal/infrastructure/config"
	"github.com/wneessen/go-mail"
)

// ErrNoRecipient is returned when the invoice customer has no usable email address
var ErrNoRecipient = errors.New("customer has no email address")

const defaultMailTimeout = 10 * time.Second

// sendFunc delivers one composed message
type sendFunc func(ctx context.Context, msg *mail.Msg) error

// SMTPDispatcher emails invoices as plain text
type SMTPDispatcher struct {
	from    string
	timeout time.Duration
	send    sendFunc
	now     func() time.Time
}

// NewSMTPDispatcher creates a dispatcher for the configured relay. PLAIN auth is
// used when a username is set. Every delivery, including the dial and the
// server greeting, is bounded by cfg.Timeout.
func NewSMTPDispatcher(cfg config.MailConfig) (*SMTPDispatcher, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultMailTimeout
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(timeout),
		mail.WithDialContextFunc(deadlineDialer(timeout)),
	}
	switch {
	case cfg.Port == 465:
		opts = append(opts, mail.WithSSL())
	case cfg.TLS == config.MailTLSMandatory:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	case cfg.TLS == config.MailTLSNone:
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	// validate the options once so a bad relay setting fails at startup
	if _, err := mail.NewClient(cfg.Host, opts...); err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}
	return &SMTPDispatcher{
		from:    cfg.From,
		timeout: timeout,
		send:    relaySender(cfg.Host, opts),
		now:     time.Now,
	}, nil
}

// relaySender opens a fresh client per delivery since runs may dispatch
// concurrently and a client holds a single connection
func relaySender(host string, opts []mail.Option) sendFunc {
	return func(ctx context.Context, msg *mail.Msg) error {
		client, err := mail.NewClient(host, opts...)
		if err != nil {
			return err
		}
		return client.DialAndSendWithContext(ctx, msg)
	}
}

// deadlineDialer sets an absolute deadline on the connection so a relay that
// accepts but never answers cannot stall a delivery
func deadlineDialer(timeout time.Duration) mail.DialContextFunc {
	return func(ctx context.Context, network, address string) (net.Conn, error) {
		d := net.Dialer{Timeout: timeout}
		conn, err := d.DialContext(ctx, network, address)
		if err != nil {
			return nil, err
		}
		if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			_ = conn.Close()
			return nil, err
		}
		return conn, nil
	}
}

// DispatchInvoice sends the invoice to the customer
func (d *SMTPDispatcher) DispatchInvoice(ctx context.Context, inv *accounting.Invoice, settings accounting.CompanySettings) error {
	if !inv.Customer.HasEmail() {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := d.compose(inv, settings)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send invoice %s: %w", inv.Number, err)
	}
	return nil
}

var invoiceBody = template.Must(template.New("invoice").Parse(`Hello {{.Customer}},

Please find invoice {{.Number}} from {{.Company}} below.

{{range .Lines}}{{.}}
{{end}}
Subtotal: {{.Subtotal}}

Thank you for your business.
{{.Company}}
`))

func (d *SMTPDispatcher) compose(inv *accounting.Invoice, settings accounting.CompanySettings) (*mail.Msg, error) {
	currency := settings.CurrencySymbol
	lines := make([]string, 0, len(inv.Items))
	for _, item := range inv.Items {
		lines = append(lines, fmt.Sprintf("%s  %s x %s%s = %s%s",
			item.Name, item.Qty.String(), currency, item.Price.StringFixed(2), currency, item.Amount().StringFixed(2)))
	}

	var body bytes.Buffer
	err := invoiceBody.Execute(&body, struct {
		Customer, Number, Company, Subtotal string
		Lines                               []string
	}{
		Customer: inv.Customer.Name,
		Number:   inv.Number,
		Company:  settings.Name,
		Subtotal: currency + inv.Subtotal().StringFixed(2),
		Lines:    lines,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render invoice email: %w", err)
	}

	msg := mail.NewMsg(mail.WithCharset(mail.CharsetUTF8), mail.WithEncoding(mail.NoEncoding))
	if err := msg.From(d.from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", d.from, err)
	}
	if err := msg.To(inv.Customer.Email); err != nil {
		return nil, fmt.Errorf("invalid recipient for invoice %s: %w", inv.Number, err)
	}
	msg.Subject(sanitizeHeader(fmt.Sprintf("Invoice %s from %s", inv.Number, settings.Name)))
	msg.SetDateWithValue(d.now())
	msg.SetBodyString(mail.TypeTextPlain, body.String())
	return msg, nil
}

// sanitizeHeader strips line breaks so values cannot inject headers
func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(v)
}

var _ accounting.DocumentDispatcher = (*SMTPDispatcher)(nil)
