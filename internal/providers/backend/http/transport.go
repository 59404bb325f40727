package http

import (
	"crypto/tls"
	"crypto/x509"
	"math"
	"net/http"
	"os"
	"strings"

	"golang.org/x/time/rate"

	"github.com/crmarques/liveops/config"
)

func buildTransport(tlsSettings *config.TLS) (*http.Transport, error) {
	tlsConfig, err := buildTLSConfig(tlsSettings)
	if err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig
	return transport, nil
}

func buildTLSConfig(tlsSettings *config.TLS) (*tls.Config, error) {
	if tlsSettings == nil {
		return nil, nil
	}

	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: tlsSettings.InsecureSkipVerify,
	}

	if caFile := strings.TrimSpace(tlsSettings.CACertFile); caFile != "" {
		caBytes, err := os.ReadFile(caFile)
		if err != nil {
			return nil, validationError("backend.tls.ca-cert-file could not be read", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caBytes) {
			return nil, validationError("backend.tls.ca-cert-file is not valid PEM", nil)
		}
		tlsConfig.RootCAs = pool
	}

	clientCertFile := strings.TrimSpace(tlsSettings.ClientCertFile)
	clientKeyFile := strings.TrimSpace(tlsSettings.ClientKeyFile)
	if (clientCertFile == "") != (clientKeyFile == "") {
		return nil, validationError("backend.tls requires both client-cert-file and client-key-file", nil)
	}
	if clientCertFile != "" {
		certificate, err := tls.LoadX509KeyPair(clientCertFile, clientKeyFile)
		if err != nil {
			return nil, validationError("backend.tls client certificate pair is invalid", err)
		}
		tlsConfig.Certificates = []tls.Certificate{certificate}
	}

	return tlsConfig, nil
}

// buildLimiter returns nil when no rate limit is configured. A missing burst
// allows one second worth of requests at once.
func buildLimiter(settings *config.RateLimit) *rate.Limiter {
	if settings == nil || settings.RequestsPerSecond <= 0 {
		return nil
	}
	burst := settings.Burst
	if burst <= 0 {
		burst = int(math.Max(1, math.Ceil(settings.RequestsPerSecond)))
	}
	return rate.NewLimiter(rate.Limit(settings.RequestsPerSecond), burst)
}
