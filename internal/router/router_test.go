package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"medical-access-ledger/internal/adapters/storage/memory"
	"medical-access-ledger/internal/domain/identity"
	"medical-access-ledger/internal/domain/ledger"
	"medical-access-ledger/internal/domain/records"
	"medical-access-ledger/internal/router"
)

const (
	patientID = "0x00000000000000000000000000000000000000a1"
	doctorID  = "0x00000000000000000000000000000000000000d1"
	doctor2ID = "0x00000000000000000000000000000000000000d2"
)

func TestHTTP_EndToEnd_JaneDoe(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{AuthVerifier: nil}))
	defer ts.Close()

	// 1) Sin registro no se puede dar acceso
	{
		st, _ := doReq(t, ts.URL, "POST", "/me/doctors", patientID, map[string]any{"doctor": doctorID})
		if st != http.StatusNotFound {
			t.Fatalf("expected 404 grant without record, got %d", st)
		}
	}

	// 2) Paciente crea su registro
	{
		st, body := doReq(t, ts.URL, "PUT", "/me/record", patientID, map[string]any{
			"name":            "Jane Doe",
			"age":             40,
			"medical_history": "Asthma",
		})
		if st != http.StatusOK {
			t.Fatalf("expected 200 upsert record, got %d body=%s", st, string(body))
		}
		var ref struct {
			Owner    string `json:"owner"`
			Sequence uint64 `json:"sequence"`
			EventID  string `json:"event_id"`
		}
		_ = json.Unmarshal(body, &ref)
		if ref.Owner != patientID || ref.Sequence != 1 || ref.EventID == "" {
			t.Fatalf("unexpected record ref: %s", string(body))
		}
	}

	// 3) Médico NO puede leer aún
	{
		st, _ := doReq(t, ts.URL, "GET", "/patients/"+patientID+"/record", doctorID, nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 before grant, got %d", st)
		}
	}

	// 4) Paciente da acceso
	grantAccess(t, ts.URL, patientID, doctorID)

	// 5) Doble grant => 409
	{
		st, _ := doReq(t, ts.URL, "POST", "/me/doctors", patientID, map[string]any{"doctor": doctorID})
		if st != http.StatusConflict {
			t.Fatalf("expected 409 double grant, got %d", st)
		}
	}

	// 6) Médico lee el registro
	{
		st, body := doReq(t, ts.URL, "GET", "/patients/"+patientID+"/record", doctorID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 read by doctor, got %d body=%s", st, string(body))
		}
		var rec struct {
			Name string `json:"name"`
			Age  int    `json:"age"`
		}
		_ = json.Unmarshal(body, &rec)
		if rec.Name != "Jane Doe" || rec.Age != 40 {
			t.Fatalf("unexpected record: %s", string(body))
		}
	}

	// 7) El médico no ve la lista de médicos del paciente
	{
		st, _ := doReq(t, ts.URL, "GET", "/patients/"+patientID+"/doctors", doctorID, nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 doctors list by doctor, got %d", st)
		}
	}

	// 8) Paciente revoca
	{
		st, body := doReq(t, ts.URL, "DELETE", "/me/doctors/"+doctorID, patientID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 revoke, got %d body=%s", st, string(body))
		}
	}

	// 9) Médico pierde acceso inmediatamente
	{
		st, _ := doReq(t, ts.URL, "GET", "/patients/"+patientID+"/record", doctorID, nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 after revoke, got %d", st)
		}
	}

	// 10) Log: RecordAdded, AccessGranted, RecordAccessed, AccessRevoked
	{
		st, body := doReq(t, ts.URL, "GET", "/events?from=1", patientID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 events range, got %d body=%s", st, string(body))
		}
		var items []struct {
			Sequence uint64 `json:"sequence"`
			Kind     string `json:"kind"`
			Doctor   string `json:"doctor"`
		}
		_ = json.Unmarshal(body, &items)

		want := []string{"RecordAdded", "AccessGranted", "RecordAccessed", "AccessRevoked"}
		if len(items) != len(want) {
			t.Fatalf("expected %d events, got %s", len(want), string(body))
		}
		for i, k := range want {
			if items[i].Kind != k || items[i].Sequence != uint64(i+1) {
				t.Fatalf("event %d: expected %s, got %s (seq %d)", i, k, items[i].Kind, items[i].Sequence)
			}
		}
		if items[0].Doctor != "" || items[2].Doctor != doctorID {
			t.Fatalf("unexpected doctor fields: %s", string(body))
		}
	}
}

func TestHTTP_DoctorListKeepsGrantOrder(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{AuthVerifier: nil}))
	defer ts.Close()

	st, _ := doReq(t, ts.URL, "PUT", "/me/record", patientID, map[string]any{
		"name": "Jane Doe", "age": 40, "medical_history": "Asthma",
	})
	if st != http.StatusOK {
		t.Fatalf("expected 200 upsert, got %d", st)
	}

	grantAccess(t, ts.URL, patientID, doctor2ID)
	grantAccess(t, ts.URL, patientID, doctorID)

	st, body := doReq(t, ts.URL, "GET", "/me/doctors", patientID, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 list doctors, got %d", st)
	}
	var doctors []string
	_ = json.Unmarshal(body, &doctors)
	if len(doctors) != 2 || doctors[0] != doctor2ID || doctors[1] != doctorID {
		t.Fatalf("expected grant order, got %s", string(body))
	}

	st, body = doReq(t, ts.URL, "GET", "/me/grants", patientID, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 list grants, got %d body=%s", st, string(body))
	}
}

func TestHTTP_ErrorMapping(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{AuthVerifier: nil}))
	defer ts.Close()

	cases := []struct {
		name   string
		method string
		path   string
		user   string
		body   any
		want   int
	}{
		{"no caller", "PUT", "/me/record", "", map[string]any{"name": "x"}, http.StatusUnauthorized},
		{"age out of range", "PUT", "/me/record", patientID, map[string]any{"name": "x", "age": 150, "medical_history": "y"}, http.StatusBadRequest},
		{"bad json", "PUT", "/me/record", patientID, "not-an-object", http.StatusBadRequest},
		{"self read missing", "GET", "/patients/" + patientID + "/record", patientID, nil, http.StatusNotFound},
		{"bad patient", "GET", "/patients/jane/record", patientID, nil, http.StatusBadRequest},
		{"revoke without record", "DELETE", "/me/doctors/" + doctorID, patientID, nil, http.StatusNotFound},
		{"bad limit", "GET", "/events?limit=-1", patientID, nil, http.StatusBadRequest},
		{"inverted range", "GET", "/events?from=5&to=2", patientID, nil, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st, body := doReq(t, ts.URL, tc.method, tc.path, tc.user, tc.body)
			if st != tc.want {
				t.Fatalf("expected %d, got %d body=%s", tc.want, st, string(body))
			}
		})
	}
}

func TestHTTP_EventLimits(t *testing.T) {
	store := memory.NewStore()
	gw := ledger.NewGateway(store, nil)
	owner := identity.MustParse(patientID)
	for i := 0; i < 1200; i++ {
		if _, err := gw.AddOrUpdateRecord(context.Background(), owner, records.UpsertInput{Name: "Jane Doe", Age: 40, MedicalHistory: "Asthma"}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	ts := httptest.NewServer(router.NewRouter(router.Options{Store: store}))
	defer ts.Close()

	cases := []struct {
		name string
		path string
		want int
	}{
		{"recent default", "/events", 50},
		{"recent zero", "/events?limit=0", 0},
		{"recent capped", "/events?limit=5000", 1000},
		{"range zero", "/events?from=1&limit=0", 0},
		{"range capped", "/events?from=1&limit=5000", 1000},
		{"range bounded", "/events?from=10&to=19&limit=5000", 10},
		{"range default", "/events?from=1", 50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st, body := doReq(t, ts.URL, "GET", tc.path, patientID, nil)
			if st != http.StatusOK {
				t.Fatalf("expected 200, got %d body=%s", st, string(body))
			}
			var items []map[string]any
			if err := json.Unmarshal(body, &items); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if items == nil || len(items) != tc.want {
				t.Fatalf("expected %d events, got %d", tc.want, len(items))
			}
		})
	}
}

func TestHTTP_ThirdPartyReadReturnsAccessEvent(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{}))
	defer ts.Close()

	st, _ := doReq(t, ts.URL, "PUT", "/me/record", patientID, map[string]any{"name": "Jane Doe", "age": 40, "medical_history": "Asthma"})
	if st != http.StatusOK && st != http.StatusCreated {
		t.Fatalf("upsert: got %d", st)
	}
	grantAccess(t, ts.URL, patientID, doctorID)

	var rec struct {
		Name           string `json:"name"`
		AccessSequence uint64 `json:"access_sequence"`
		AccessEventID  string `json:"access_event_id"`
	}

	st, body := doReq(t, ts.URL, "GET", "/patients/"+patientID+"/record", patientID, nil)
	if st != http.StatusOK {
		t.Fatalf("self read: got %d", st)
	}
	_ = json.Unmarshal(body, &rec)
	if rec.AccessSequence != 0 || rec.AccessEventID != "" {
		t.Fatalf("self read should not carry an access event: %s", string(body))
	}

	st, body = doReq(t, ts.URL, "GET", "/patients/"+patientID+"/record", doctorID, nil)
	if st != http.StatusOK {
		t.Fatalf("doctor read: got %d", st)
	}
	_ = json.Unmarshal(body, &rec)
	if rec.Name != "Jane Doe" || rec.AccessSequence != 3 || rec.AccessEventID == "" {
		t.Fatalf("unexpected body=%s", string(body))
	}
}

func TestHTTP_HealthAndSwagger(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{AuthVerifier: nil}))
	defer ts.Close()

	st, body := doReq(t, ts.URL, "GET", "/health", "", nil)
	if st != http.StatusOK || string(body) != "ok" {
		t.Fatalf("expected 200 ok, got %d %s", st, string(body))
	}

	st, body = doReq(t, ts.URL, "GET", "/swagger/doc.json", "", nil)
	if st != http.StatusOK || !bytes.Contains(body, []byte("/me/record")) {
		t.Fatalf("expected swagger doc, got %d", st)
	}
}

func grantAccess(t *testing.T, baseURL, patient, doctor string) {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/me/doctors", patient, map[string]any{"doctor": doctor})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 grant, got %d body=%s", st, string(body))
	}

	var resp struct {
		Sequence uint64 `json:"sequence"`
		Kind     string `json:"kind"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.Sequence == 0 || resp.Kind != "AccessGranted" {
		t.Fatalf("grant: unexpected body=%s", string(body))
	}
}

func doReq(t *testing.T, baseURL, method, path, debugUserID string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if debugUserID != "" {
		req.Header.Set("X-Debug-User-ID", debugUserID)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	respBody, _ := io.ReadAll(res.Body)
	return res.StatusCode, respBody
}
