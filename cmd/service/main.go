package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tutorhub/webfront/alert"
	"github.com/tutorhub/webfront/api"
	"github.com/tutorhub/webfront/backend"
	"github.com/tutorhub/webfront/checkout"
	"github.com/tutorhub/webfront/db"
	"github.com/tutorhub/webfront/internal/log"
	"github.com/tutorhub/webfront/metrics"
	"github.com/tutorhub/webfront/notifications"
	"github.com/tutorhub/webfront/notifications/sendgrid"
	"github.com/tutorhub/webfront/notifications/smtp"
	"github.com/tutorhub/webfront/notifications/twilio"
	"github.com/tutorhub/webfront/stripe"
	"github.com/tutorhub/webfront/translate"
)

// Version is set at build time.
var Version = "dev"

func main() {
	// define flags
	flag.StringP("host", "h", "0.0.0.0", "listen address")
	flag.IntP("port", "p", 8080, "listen port")
	flag.StringP("secret", "s", "", "JWT secret shared with the backend")
	flag.String("server-url", "", "public URL of this service, allowed as checkout return URL")
	flag.String("webapp-url", "http://localhost:5173", "URL of the web application")
	flag.String("backend-url", "http://localhost:3000/api", "base URL of the REST backend")
	flag.Duration("backend-timeout", backend.DefaultTimeout, "timeout of every backend request")
	flag.String("stripe-key", "", "Stripe secret key")
	flag.String("stripe-publishable-key", "", "Stripe publishable key handed to the browser")
	flag.String("mongo-url", "", "MongoDB URL of the reconciliation ledger, kept in memory when empty")
	flag.String("mongo-db", "webfront", "name of the MongoDB database")
	flag.Duration("ledger-ttl", checkout.DefaultLedgerTTL, "retention of reconciled returns")
	flag.Duration("ledger-prune-interval", time.Hour, "interval of the ledger pruning job")
	flag.String("sentry-dsn", "", "Sentry DSN for unexpected payment state alerts")
	flag.String("environment", "development", "environment reported with alerts")
	flag.String("email-from-address", "", "sender address of alert emails")
	flag.String("email-from-name", "TutorHub", "sender name of alert emails")
	flag.String("smtp-server", "", "SMTP server of alert emails")
	flag.Int("smtp-port", 587, "SMTP port")
	flag.String("smtp-username", "", "SMTP username")
	flag.String("smtp-password", "", "SMTP password")
	flag.String("sendgrid-key", "", "SendGrid API key, preferred over SMTP when set")
	flag.String("twilio-account-sid", "", "Twilio account SID of alert SMS")
	flag.String("twilio-auth-token", "", "Twilio auth token")
	flag.String("twilio-from-number", "", "Twilio sender number")
	flag.String("alert-email", "", "developer address receiving alerts")
	flag.String("alert-phone", "", "developer phone receiving alerts")
	flag.String("log-level", "info", "log level (debug, info, warn, error)")
	// parse flags
	flag.Parse()
	// initialize Viper
	viper.SetEnvPrefix("TUTOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	if err := viper.BindPFlags(flag.CommandLine); err != nil {
		panic(err)
	}
	viper.AutomaticEnv()

	if err := log.Init(viper.GetString("log-level"), "stdout", nil); err != nil {
		panic(err)
	}
	secret := viper.GetString("secret")
	if secret == "" {
		log.Fatal("secret is required")
	}

	translator, err := translate.New()
	if err != nil {
		log.Fatalf("could not load translations: %v", err)
	}
	backendClient, err := backend.New(&backend.Config{
		BaseURL: viper.GetString("backend-url"),
		Timeout: viper.GetDuration("backend-timeout"),
	})
	if err != nil {
		log.Fatalf("could not create the backend client: %v", err)
	}
	stripeClient, err := stripe.NewClient(&stripe.Config{
		SecretKey:      viper.GetString("stripe-key"),
		PublishableKey: viper.GetString("stripe-publishable-key"),
	})
	if err != nil {
		log.Fatalf("could not create the Stripe client: %v", err)
	}

	m := metrics.New()
	// reconciliation ledger, shared across instances when MongoDB is set
	ledgerTTL := viper.GetDuration("ledger-ttl")
	var ledger checkout.Ledger
	if mongoURL := viper.GetString("mongo-url"); mongoURL != "" {
		storage, err := db.New(mongoURL, viper.GetString("mongo-db"), ledgerTTL)
		if err != nil {
			log.Fatalf("could not create the MongoDB database: %v", err)
		}
		defer storage.Close()
		ledger = storage
		m.WatchLedger(func() float64 {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			n, err := storage.Count(ctx)
			if err != nil {
				log.Debugw("could not count ledger entries", "error", err)
				return 0
			}
			return float64(n)
		})
	} else {
		memory := checkout.NewMemoryLedger(ledgerTTL)
		ledger = memory
		m.WatchLedger(func() float64 { return float64(memory.Size()) })
	}

	alerter, err := alert.New(alertConfig())
	if err != nil {
		log.Fatalf("could not create the alerter: %v", err)
	}
	defer alerter.Close(5 * time.Second)

	checkoutService, err := checkout.NewService(&checkout.Config{
		Backend:    backendClient,
		Vendor:     stripeClient,
		Translator: translator,
		Ledger:     ledger,
		Alerter:    alerter,
		Metrics:    m,
	})
	if err != nil {
		log.Fatalf("could not create the checkout service: %v", err)
	}

	scheduler, err := schedulePruning(ledger, ledgerTTL, viper.GetDuration("ledger-prune-interval"))
	if err != nil {
		log.Fatalf("could not schedule the ledger pruning: %v", err)
	}
	defer scheduler.Stop()

	host := viper.GetString("host")
	port := viper.GetInt("port")
	server, err := api.New(&api.Config{
		Host:       host,
		Port:       port,
		Secret:     secret,
		WebAppURL:  viper.GetString("webapp-url"),
		ServerURL:  viper.GetString("server-url"),
		Backend:    backendClient,
		Checkout:   checkoutService,
		Tokenizer:  stripeClient,
		Translator: translator,
		Metrics:    m,
	})
	if err != nil {
		log.Fatalf("could not create the API: %v", err)
	}
	server.Start()
	// wait until interrupted, as the server is running in a goroutine
	log.Infow("server started", "host", host, "port", port, "version", Version)
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warnw("server shutdown", "error", err)
	}
}

// alertConfig builds the alert channels from the configuration. Email goes
// through SendGrid when a key is set and through SMTP otherwise.
func alertConfig() *alert.Config {
	conf := &alert.Config{
		SentryDSN:   viper.GetString("sentry-dsn"),
		Environment: viper.GetString("environment"),
		Release:     Version,
		EmailTo:     viper.GetString("alert-email"),
		SMSTo:       viper.GetString("alert-phone"),
	}
	if conf.EmailTo != "" {
		conf.Email = emailService()
	}
	if conf.SMSTo != "" && viper.GetString("twilio-account-sid") != "" {
		sms := new(twilio.TwilioSMS)
		if err := sms.New(&twilio.TwilioConfig{
			AccountSid: viper.GetString("twilio-account-sid"),
			AuthToken:  viper.GetString("twilio-auth-token"),
			FromNumber: viper.GetString("twilio-from-number"),
		}); err != nil {
			log.Fatalf("could not create the SMS service: %v", err)
		}
		conf.SMS = sms
	}
	return conf
}

func emailService() notifications.NotificationService {
	fromName := viper.GetString("email-from-name")
	fromAddress := viper.GetString("email-from-address")
	if key := viper.GetString("sendgrid-key"); key != "" {
		sg := new(sendgrid.SendGridEmail)
		if err := sg.New(&sendgrid.SendGridConfig{
			FromName:    fromName,
			FromAddress: fromAddress,
			APIKey:      key,
		}); err != nil {
			log.Fatalf("could not create the SendGrid service: %v", err)
		}
		return sg
	}
	if server := viper.GetString("smtp-server"); server != "" {
		mail := new(smtp.Email)
		if err := mail.New(&smtp.Config{
			FromName:     fromName,
			FromAddress:  fromAddress,
			SMTPServer:   server,
			SMTPPort:     viper.GetInt("smtp-port"),
			SMTPUsername: viper.GetString("smtp-username"),
			SMTPPassword: viper.GetString("smtp-password"),
		}); err != nil {
			log.Fatalf("could not create the mail service: %v", err)
		}
		return mail
	}
	log.Warnw("alert email configured without SendGrid key nor SMTP server")
	return nil
}

// schedulePruning removes expired ledger entries periodically. MongoDB also
// expires them through its TTL index; the job keeps the in-memory ledger
// bounded.
func schedulePruning(ledger checkout.Ledger, ttl, every time.Duration) (*gocron.Scheduler, error) {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	if _, err := s.Every(every).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		n, err := ledger.Prune(ctx, time.Now().Add(-ttl))
		if err != nil {
			log.Warnw("ledger pruning failed", "error", err)
			return
		}
		log.Debugw("ledger pruned", "removed", n)
	}); err != nil {
		return nil, err
	}
	s.StartAsync()
	return s, nil
}
