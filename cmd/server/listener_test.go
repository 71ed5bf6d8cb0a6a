package server

import (
	"net"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"imc-manager/internal/config"
)

func TestOpenEndpointsSkipsBadAddress(t *testing.T) {
	addrs := []Endpoint{
		{Network: "tcp", Address: "127.0.0.1:0"},
		{Network: "tcp", Address: "not-an-address"},
	}
	listeners, err := openEndpoints(addrs)
	defer func() {
		for _, l := range listeners {
			l.Close()
		}
	}()
	if len(listeners) != 1 {
		t.Fatalf("got %d listeners, want 1", len(listeners))
	}
	if err == nil {
		t.Error("expected the bad address error to be returned")
	}
}

func TestOpenEndpointsReplacesStaleSocket(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix sockets")
	}
	dir, err := os.MkdirTemp("", "imc")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	sock := filepath.Join(dir, "imc.sock")
	if err := os.WriteFile(sock, []byte("stale"), 0600); err != nil {
		t.Fatal(err)
	}

	listeners, err := openEndpoints([]Endpoint{{Network: "unix", Address: sock}})
	if err != nil || len(listeners) != 1 {
		t.Fatalf("openEndpoints() = %d, %v", len(listeners), err)
	}
	defer listeners[0].Close()

	conn, err := net.Dial("unix", sock)
	if err != nil {
		t.Fatalf("dial socket: %v", err)
	}
	conn.Close()
}

func TestDashboardEndpoints(t *testing.T) {
	cfg := &config.AppConfig{}
	cfg.Server.Address = ":8080"
	eps := dashboardEndpoints(cfg)
	if len(eps) != 1 || eps[0].String() != "tcp://:8080" {
		t.Fatalf("without socket got %v", eps)
	}
}
