package gostatement

import (
	"net"
	"net/http"
	"time"
)

// transportConfig holds the configuration for creating HTTP transports
type transportConfig struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	DialTimeout         time.Duration
	KeepAlive           time.Duration
}

// serviceTransportConfig is used for statement service calls.
func serviceTransportConfig() *transportConfig {
	return &transportConfig{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     30 * time.Minute,
		DialTimeout:         30 * time.Second,
		KeepAlive:           30 * time.Second,
	}
}

// chunkTransportConfig is used for presigned chunk downloads, which fan out
// to cloud storage hosts.
func chunkTransportConfig(prefetch int) *transportConfig {
	return &transportConfig{
		MaxIdleConns:        4 * prefetch,
		MaxIdleConnsPerHost: prefetch + 1,
		IdleConnTimeout:     5 * time.Minute,
		DialTimeout:         30 * time.Second,
		KeepAlive:           30 * time.Second,
	}
}

func createBaseTransport(transportConfig *transportConfig) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   transportConfig.DialTimeout,
		KeepAlive: transportConfig.KeepAlive,
	}
	return &http.Transport{
		MaxIdleConns:        transportConfig.MaxIdleConns,
		MaxIdleConnsPerHost: transportConfig.MaxIdleConnsPerHost,
		IdleConnTimeout:     transportConfig.IdleConnTimeout,
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		// chunk bodies may be gzip encoded objects; they are inflated explicitly
		DisableCompression: true,
	}
}

// newHTTPClients returns the clients for service calls and chunk downloads.
// A configured Transporter is used for both.
func newHTTPClients(cfg *Config) (service, chunks *http.Client) {
	if cfg.Transporter != nil {
		return &http.Client{Transport: cfg.Transporter}, &http.Client{Transport: cfg.Transporter}
	}
	return &http.Client{Transport: createBaseTransport(serviceTransportConfig())},
		&http.Client{Transport: createBaseTransport(chunkTransportConfig(cfg.Prefetch))}
}
