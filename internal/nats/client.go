// Package nats publishes session transcripts, session events and committed
// orders to NATS JetStream.
package nats

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/goodfoods/reservation-platform/pkg/logger"
)

// Config selects the server and credentials. TLS is enabled only when all
// three file paths are set.
type Config struct {
	URL      string
	CAFile   string
	CertFile string
	KeyFile  string
	Token    string
}

// Client owns the publisher connection for the reservation stream.
type Client struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	logger *logger.Logger
}

// Connect dials the server and opens JetStream. The connection reconnects
// forever; publishes made while it is down are buffered up to 8MB.
func Connect(ctx context.Context, cfg Config, log *logger.Logger) (*Client, error) {
	opts, err := options(cfg, log)
	if err != nil {
		return nil, err
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", cfg.URL, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	log.Info("reservation events publishing to NATS", zap.String("url", nc.ConnectedUrl()))
	return &Client{conn: nc, js: js, logger: log}, nil
}

func options(cfg Config, log *logger.Logger) ([]nats.Option, error) {
	opts := []nats.Option{
		nats.Name("goodfoods-reservations"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.ReconnectBufSize(8 * 1024 * 1024),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("event publisher disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("event publisher reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			fields := []zap.Field{zap.Error(err)}
			if sub != nil {
				fields = append(fields, zap.String("subject", sub.Subject))
			}
			log.Error("event publisher error", fields...)
		}),
	}

	if cfg.CAFile != "" && cfg.CertFile != "" && cfg.KeyFile != "" {
		tlsConfig, err := loadTLS(cfg.CAFile, cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, nats.Secure(tlsConfig))
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}
	return opts, nil
}

func (c *Client) JetStream() jetstream.JetStream {
	return c.js
}

// Close drains pending publishes, falling back to a hard close.
func (c *Client) Close() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Drain(); err != nil {
		c.logger.Warn("NATS drain failed", zap.Error(err))
		c.conn.Close()
	}
}

// Status returns nil while the connection is up.
func (c *Client) Status() error {
	if c == nil || c.conn == nil {
		return errors.New("nats not connected")
	}
	if st := c.conn.Status(); st != nats.CONNECTED {
		return fmt.Errorf("nats connection is %s", st)
	}
	return nil
}

func loadTLS(caFile, certFile, keyFile string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("nats ca: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("nats ca %s: no certificates found", caFile)
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("nats client cert: %w", err)
	}

	return &tls.Config{
		RootCAs:      pool,
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
