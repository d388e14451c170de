package gostatement

import (
	"net/http"
	"testing"
	"time"
)

func TestCreateBaseTransport(t *testing.T) {
	transport := createBaseTransport(chunkTransportConfig(4))
	assertEqualE(t, transport.MaxIdleConns, 16)
	assertEqualE(t, transport.MaxIdleConnsPerHost, 5)
	assertEqualE(t, transport.IdleConnTimeout, 5*time.Minute)
	assertTrueE(t, transport.DisableCompression, "chunk bodies are inflated explicitly")
	assertNotNilF(t, transport.Proxy)
	assertNotNilF(t, transport.DialContext)
}

func TestNewHTTPClients(t *testing.T) {
	service, chunks := newHTTPClients(&Config{Prefetch: 2})
	assertTrueE(t, service.Transport != chunks.Transport, "service and chunk pools are separate")
	assertEqualE(t, service.Transport.(*http.Transport).MaxIdleConnsPerHost, 10)
	assertEqualE(t, chunks.Transport.(*http.Transport).MaxIdleConnsPerHost, 3)

	custom := http.DefaultTransport
	service, chunks = newHTTPClients(&Config{Transporter: custom})
	assertTrueE(t, service.Transport == custom)
	assertTrueE(t, chunks.Transport == custom)
}
