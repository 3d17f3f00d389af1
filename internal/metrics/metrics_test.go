package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

// counterValue は指定メトリクスの最初のサンプル値を返す。
func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() == name {
			if len(mf.GetMetric()) == 0 {
				t.Fatalf("%s has no samples", name)
			}
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("%s metric not found", name)
	return 0
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordRegistration_IncrementsCounter は登録カウンタが増加することを検証する。
func TestRecordRegistration_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRegistration()
	c.RecordRegistration()

	if val := counterValue(t, reg, "gatekeeper_registrations_total"); val != 2 {
		t.Errorf("registrations_total = %v, want 2", val)
	}
}

// TestRecordLoginSuccess_IncrementsCounter はログイン成功カウンタが増加することを検証する。
func TestRecordLoginSuccess_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLoginSuccess()

	if val := counterValue(t, reg, "gatekeeper_login_success_total"); val != 1 {
		t.Errorf("login_success_total = %v, want 1", val)
	}
}

// TestRecordLoginFailure_LabelsByReason はログイン失敗が理由ラベル付きで記録されることを検証する。
func TestRecordLoginFailure_LabelsByReason(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLoginFailure("wrong_password")
	c.RecordLoginFailure("wrong_password")
	c.RecordLoginFailure("unknown_email")

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	for _, mf := range metrics {
		if mf.GetName() != "gatekeeper_login_fail_total" {
			continue
		}
		if len(mf.GetMetric()) != 2 {
			t.Fatalf("expected 2 labeled series, got %d", len(mf.GetMetric()))
		}
		return
	}
	t.Error("gatekeeper_login_fail_total metric not found")
}

// TestRecordAuthRejected_IncrementsCounter は認可拒否カウンタが増加することを検証する。
func TestRecordAuthRejected_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAuthRejected("token_not_provided")

	if val := counterValue(t, reg, "gatekeeper_auth_rejected_total"); val != 1 {
		t.Errorf("auth_rejected_total = %v, want 1", val)
	}
}

// TestHandler_ExposesMetrics は/metricsハンドラーが登録済みメトリクスを公開することを検証する。
func TestHandler_ExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordRegistration()

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("failed to scrape metrics: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	if !strings.Contains(string(body), "gatekeeper_registrations_total 1") {
		t.Error("scrape output does not contain gatekeeper_registrations_total 1")
	}
}
