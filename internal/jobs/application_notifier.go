// application_notifier.go implements the ApplicationNotifier background job,
// which periodically scans for applications whose notification email has not
// been sent and delivers one message per application to the configured inbox.
// Notification state is persisted in the database (notified_at column) so
// emails are sent exactly once even across server restarts. When the SMTP host
// is not configured the notifier logs a dry-run and still marks the row, so
// the outbox drains in every deployment environment.
package jobs

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/TakashiSato01/licope-lab/internal/config"
	"github.com/TakashiSato01/licope-lab/internal/db/models"
	"github.com/TakashiSato01/licope-lab/internal/db/repositories"
	"github.com/TakashiSato01/licope-lab/internal/telemetry"
)

// notifierBatchSize bounds one outbox scan.
const notifierBatchSize = 50

// NotifyOutcome reports what happened to a single application notification.
type NotifyOutcome struct {
	Delivered  bool
	SkipReason string
}

// ApplicationNotifier periodically emails the organization inbox about new applications.
type ApplicationNotifier struct {
	appRepo  *repositories.ApplicationRepository
	jobRepo  *repositories.JobRepository
	cfg      *config.NotificationsConfig
	interval time.Duration
	stopChan chan struct{}
}

// NewApplicationNotifier creates a new ApplicationNotifier.
// The check interval comes from notifications.application_check_interval_minutes (default 1).
func NewApplicationNotifier(
	appRepo *repositories.ApplicationRepository,
	jobRepo *repositories.JobRepository,
	cfg *config.NotificationsConfig,
) *ApplicationNotifier {
	minutes := cfg.ApplicationCheckIntervalMinutes
	if minutes <= 0 {
		minutes = 1
	}
	return &ApplicationNotifier{
		appRepo:  appRepo,
		jobRepo:  jobRepo,
		cfg:      cfg,
		interval: time.Duration(minutes) * time.Minute,
		stopChan: make(chan struct{}),
	}
}

// Start begins the background outbox loop.
// It runs an initial scan immediately, then repeats on the configured interval.
// The loop exits when ctx is cancelled or Stop() is called.
func (n *ApplicationNotifier) Start(ctx context.Context) {
	if !n.cfg.Enabled {
		log.Println("Application notifier: disabled (notifications.enabled=false)")
		return
	}

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	log.Printf("Application notifier started (check interval: %v, smtp host: %q)",
		n.interval, n.cfg.SMTP.Host)

	// Run once immediately on startup
	n.runScan(ctx)

	for {
		select {
		case <-ticker.C:
			n.runScan(ctx)
		case <-n.stopChan:
			log.Println("Application notifier stopped")
			return
		case <-ctx.Done():
			log.Println("Application notifier context cancelled")
			return
		}
	}
}

// Stop signals the background loop to exit.
func (n *ApplicationNotifier) Stop() {
	close(n.stopChan)
}

// runScan drains one batch of unnotified applications. Rows are marked
// notified regardless of delivery outcome so a dead SMTP server cannot wedge
// the outbox into resending the same message forever.
func (n *ApplicationNotifier) runScan(ctx context.Context) {
	apps, err := n.appRepo.ListUnnotified(ctx, notifierBatchSize)
	if err != nil {
		log.Printf("Application notifier: failed to query outbox: %v", err)
		return
	}
	if len(apps) == 0 {
		return
	}

	log.Printf("Application notifier: found %d unnotified application(s)", len(apps))

	for _, app := range apps {
		outcome := n.Notify(ctx, app)
		if outcome.Delivered {
			telemetry.ApplicationNotificationsTotal.WithLabelValues("delivered").Inc()
		} else {
			telemetry.ApplicationNotificationsTotal.WithLabelValues("skipped").Inc()
			log.Printf("Application notifier: skipped application %s: %s", app.ID, outcome.SkipReason)
		}

		if err := n.appRepo.MarkNotified(ctx, app.ID, time.Now()); err != nil {
			log.Printf("Application notifier: failed to mark application %s notified: %v", app.ID, err)
		}
	}
}

// Notify composes and delivers the notification for a single application.
// It never returns an error: delivery problems become a skip outcome.
func (n *ApplicationNotifier) Notify(ctx context.Context, app *models.Application) NotifyOutcome {
	if n.cfg.SMTP.Host == "" {
		log.Printf("Application notifier: dry-run for application %s (smtp host not set)", app.ID)
		return NotifyOutcome{SkipReason: "smtp host not configured"}
	}
	if n.cfg.ApplicationRecipient == "" {
		return NotifyOutcome{SkipReason: "application_recipient not configured"}
	}

	// Best-effort job title lookup; the email still goes out without it.
	jobTitle := ""
	if job, err := n.jobRepo.GetPublicJob(ctx, app.OrgID, app.JobPubID); err == nil && job != nil {
		jobTitle = job.Title
	}

	if err := n.sendApplicationEmail(app, jobTitle); err != nil {
		return NotifyOutcome{SkipReason: fmt.Sprintf("smtp delivery failed: %v", err)}
	}
	return NotifyOutcome{Delivered: true}
}

// sendApplicationEmail composes and delivers a plain-text notification via SMTP.
func (n *ApplicationNotifier) sendApplicationEmail(app *models.Application, jobTitle string) error {
	subject := "New job application received"
	if jobTitle != "" {
		subject = fmt.Sprintf("New application for '%s'", jobTitle)
	}

	lines := []string{
		"A new application arrived through the public job page.",
		"",
		fmt.Sprintf("Applicant: %s", app.Name),
		fmt.Sprintf("Contact:   %s", app.Contact),
	}
	if jobTitle != "" {
		lines = append(lines, fmt.Sprintf("Position:  %s", jobTitle))
	}
	if app.Message != "" {
		lines = append(lines, "", "Message:", app.Message)
	}
	lines = append(lines,
		"",
		fmt.Sprintf("Application ID: %s", app.ID),
		fmt.Sprintf("Received at:    %s", app.CreatedAt.UTC().Format(time.RFC1123)),
		"",
		"Please respond to the applicant from the Licope admin screen.",
	)
	body := strings.Join(lines, "\r\n")

	smtpCfg := &n.cfg.SMTP
	toEmail := n.cfg.ApplicationRecipient
	headers := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n",
		smtpCfg.From, toEmail, subject,
	)
	msg := []byte(headers + body + "\r\n")

	addr := fmt.Sprintf("%s:%d", smtpCfg.Host, smtpCfg.Port)
	auth := smtp.PlainAuth("", smtpCfg.Username, smtpCfg.Password, smtpCfg.Host)

	if smtpCfg.UseTLS {
		return sendMailTLS(addr, smtpCfg.Host, auth, smtpCfg.From, []string{toEmail}, msg)
	}
	return smtp.SendMail(addr, auth, smtpCfg.From, []string{toEmail}, msg)
}

// sendMailTLS connects via implicit TLS (port 465 / SMTPS) and sends a message.
// For port 587 STARTTLS, smtp.SendMail handles the upgrade itself; this path is
// used whenever UseTLS=true so the config always means an encrypted connection.
func sendMailTLS(addr, host string, auth smtp.Auth, from string, to []string, msg []byte) error {
	tlsConfig := &tls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
	}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		// Fall back to STARTTLS via the standard smtp.SendMail path (port 587 pattern)
		return smtp.SendMail(addr, auth, from, to, msg)
	}
	defer conn.Close()

	hostname, _, _ := net.SplitHostPort(addr)
	c, err := smtp.NewClient(conn, hostname)
	if err != nil {
		return fmt.Errorf("smtp new client: %w", err)
	}
	defer c.Quit() //nolint:errcheck

	if auth != nil {
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(from); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	for _, addr := range to {
		if err := c.Rcpt(addr); err != nil {
			return fmt.Errorf("smtp RCPT TO %s: %w", addr, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	return w.Close()
}
