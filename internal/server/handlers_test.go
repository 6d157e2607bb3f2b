package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/seclens/windevices/inventory"
)

func testServer(devices []inventory.Device) *Server {
	store := NewSnapshotStore()
	if devices != nil {
		store.Publish(devices, nil)
	}
	return New(Config{ListenAddr: ":0"}, store, nil)
}

func getEnvelope(t *testing.T, s *Server, path string) (DeviceEnvelope, int) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)

	var env DeviceEnvelope
	if rec.Code == http.StatusOK {
		if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return env, rec.Code
}

func TestHandleDevices(t *testing.T) {
	s := testServer([]inventory.Device{
		{Product: "stick", InterfaceClass: 0x08},
		{Product: "mouse", InterfaceClass: 0x03},
	})

	env, code := getEnvelope(t, s, "/api/v1/devices")
	if code != http.StatusOK {
		t.Fatalf("status: got %d", code)
	}
	if env.Result != inventory.ResultOK {
		t.Errorf("result: got %d, want OK", env.Result)
	}
	if env.Message != "Success" {
		t.Errorf("message: got %q", env.Message)
	}
	if env.Count != 2 || len(env.Devices) != 2 {
		t.Errorf("count: got %d/%d, want 2/2", env.Count, len(env.Devices))
	}
}

func TestHandleDevicesEmpty(t *testing.T) {
	env, code := getEnvelope(t, testServer(nil), "/api/v1/devices")
	if code != http.StatusOK {
		t.Fatalf("status: got %d", code)
	}
	if env.Result != inventory.ResultNoDevices {
		t.Errorf("result: got %d, want %d", env.Result, inventory.ResultNoDevices)
	}
	if env.Message != "No devices found" {
		t.Errorf("message: got %q", env.Message)
	}
}

func TestHandleMassStorage(t *testing.T) {
	s := testServer([]inventory.Device{
		{Product: "stick", InterfaceClass: 0x08},
		{Product: "mouse", InterfaceClass: 0x03},
	})

	env, code := getEnvelope(t, s, "/api/v1/devices/mass-storage")
	if code != http.StatusOK {
		t.Fatalf("status: got %d", code)
	}
	if env.Count != 1 || env.Devices[0].Product != "stick" {
		t.Errorf("filtered devices: got %+v", env.Devices)
	}
}

func TestHandleVersion(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/version", nil)
	rec := httptest.NewRecorder()
	testServer(nil).Router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var info inventory.Info
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Version != "1.0.0" {
		t.Errorf("version: got %q", info.Version)
	}
}

func TestHandleHealth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	testServer(nil).Router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := testServer(nil)
	for _, path := range []string{"/api/v1/devices", "/api/v1/devices/mass-storage", "/api/v1/version"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		rec := httptest.NewRecorder()
		s.Router.ServeHTTP(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: got %d, want 405", path, rec.Code)
		}
	}
}
