package httpctrl

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Agrid-Dev/housesim/internal/simulation"
	"github.com/Agrid-Dev/housesim/internal/testutil"
)

func TestGET_v1_ReturnsStatus(t *testing.T) {
	srv, _ := newTestServer()

	rr := doJSONRequest(t, srv.srv.Handler, http.MethodGet, "/v1", nil)
	assertStatus(t, rr, http.StatusOK)

	got := decodeJSON[map[string]any](t, rr)
	if got["house"] != "ranch" {
		t.Fatalf("expected house=ranch, got %v", got["house"])
	}
	if got["ah_mode"] != "heating" {
		t.Fatalf("expected ah_mode=heating, got %v", got["ah_mode"])
	}
	if v, _ := got["temp_house_c"].(float64); math.Abs(v-20.5) > 1e-9 {
		t.Fatalf("expected temp_house_c=20.5, got %v", got["temp_house_c"])
	}
	if got["rivec_on"] != true {
		t.Fatalf("expected rivec_on=true, got %v", got["rivec_on"])
	}
}

func TestGET_summary_NotYet(t *testing.T) {
	srv, _ := newTestServer()

	rr := doJSONRequest(t, srv.srv.Handler, http.MethodGet, "/v1/summary", nil)
	assertStatus(t, rr, http.StatusNotFound)
	_ = assertErrorResponse(t, rr)
}

func TestGET_summary(t *testing.T) {
	srv, f := newTestServer()
	s := f.Get()
	s.Summary = &simulation.AnnualSummary{House: "ranch", TotalKWh: 4321, RivecMinutes: 10}
	f.Set(s)

	rr := doJSONRequest(t, srv.srv.Handler, http.MethodGet, "/v1/summary", nil)
	assertStatus(t, rr, http.StatusOK)
	got := decodeJSON[simulation.AnnualSummary](t, rr)
	if got.TotalKWh != 4321 || got.RivecMinutes != 10 {
		t.Fatalf("unexpected summary %+v", got)
	}
}

func TestPOST_paused(t *testing.T) {
	srv, f := newTestServer()

	rr := postValueEndpoint(t, srv, "/v1/paused", true)
	assertStatus(t, rr, http.StatusOK)

	called, arg := f.Paused()
	if !called || !arg {
		t.Fatalf("expected SetPaused(true), got called=%v arg=%v", called, arg)
	}
	got := decodeJSON[map[string]any](t, rr)
	if got["paused"] != true {
		t.Fatalf("response should reflect pause, got %v", got["paused"])
	}
}

func TestPOST_paused_InvalidPayload(t *testing.T) {
	srv, f := newTestServer()

	rr := doJSONRequest(t, srv.srv.Handler, http.MethodPost, "/v1/paused", map[string]any{
		"paused": true,
	})
	assertStatus(t, rr, http.StatusBadRequest)
	_ = assertErrorResponse(t, rr)
	if called, _ := f.Paused(); called {
		t.Fatalf("service must not be called on a bad payload")
	}
}

func TestPOST_paused_WrongType(t *testing.T) {
	srv, _ := newTestServer()

	rr := postValueEndpoint(t, srv, "/v1/paused", "yes")
	assertStatus(t, rr, http.StatusBadRequest)
	_ = assertErrorResponse(t, rr)
}

func TestGET_healthz(t *testing.T) {
	srv, _ := newTestServer()

	rr := doJSONRequest(t, srv.srv.Handler, http.MethodGet, "/healthz", nil)
	assertStatus(t, rr, http.StatusOK)
	if rr.Body.String() != "ok" {
		t.Fatalf("expected body ok, got %q", rr.Body.String())
	}
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	srv := New(testutil.NewFakeSimulationService(), ":0", &buf)

	rr := doJSONRequest(t, srv.srv.Handler, http.MethodGet, "/healthz", nil)
	assertStatus(t, rr, http.StatusOK)
	if !strings.Contains(buf.String(), "GET /healthz") {
		t.Fatalf("expected access log line, got %q", buf.String())
	}
}

func TestStream(t *testing.T) {
	srv, f := newTestServer()
	ts := httptest.NewServer(srv.srv.Handler)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	f.Records <- simulation.MinuteRecord{House: "ranch", Clock: simulation.Clock{Day: 9, Hour: 3}, RelExp: 0.5}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got map[string]any
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got["house"] != "ranch" || got["day"] != float64(9) || got["rel_exp"] != 0.5 {
		t.Fatalf("unexpected record %v", got)
	}
}

func newTestServer() (*Server, *testutil.FakeSimulationService) {
	f := testutil.NewFakeSimulationService()
	return New(f, ":0", nil), f
}

func doJSONRequest(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r *http.Request
	if body == nil {
		r = httptest.NewRequest(method, path, nil)
	} else {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json.Marshal: %v", err)
		}
		r = httptest.NewRequest(method, path, bytes.NewReader(b))
		r.Header.Set("Content-Type", "application/json")
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	return rr
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected %d, got %d body=%s", want, rr.Code, rr.Body.String())
	}
}

func decodeJSON[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("json.Unmarshal: %v body=%s", err, rr.Body.String())
	}
	return v
}

// Handy when you only care about error responses.
func assertErrorResponse(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	resp := decodeJSON[struct {
		Error string `json:"error"`
	}](t, rr)
	if resp.Error == "" {
		t.Fatalf("expected non-empty error field, got body=%s", rr.Body.String())
	}
	return resp.Error
}

func postValueEndpoint[T any](t *testing.T, srv *Server, path string, value T) *httptest.ResponseRecorder {
	t.Helper()
	return doJSONRequest(t, srv.srv.Handler, http.MethodPost, path, struct {
		Value T `json:"value"`
	}{Value: value})
}
