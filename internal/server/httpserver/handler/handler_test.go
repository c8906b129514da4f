package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yndnr/tagurl-go/internal/core/codec"
	"github.com/yndnr/tagurl-go/internal/core/domain"
	"github.com/yndnr/tagurl-go/internal/core/payload"
	"github.com/yndnr/tagurl-go/internal/core/service"
	"github.com/yndnr/tagurl-go/internal/storage/keystore"
	"github.com/yndnr/tagurl-go/internal/storage/keystore/keystoretest"
)

var (
	testTag = domain.TagID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	testIDm = domain.IDm{0x01, 0x2e, 0x4c, 0xd8, 0x1f, 0x8c, 0x7a, 0x33}
	testKey = domain.TagKey{0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
)

func testHandler(t *testing.T, cfg *service.TagServiceConfig) (*Handler, *keystore.Static) {
	t.Helper()
	store := keystore.NewStatic()
	store.Set(testTag, testKey)
	tags := service.NewTagService(store, nil, nil, cfg)
	return New(Config{Tags: tags, Keys: store}), store
}

func mustEncode(t *testing.T, r domain.Reading, key domain.TagKey) string {
	t.Helper()
	token, err := codec.Encode(r, key)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return token
}

func do(h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, data any) Response {
	t.Helper()
	var resp Response
	if data != nil {
		resp.Data = data
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestHandler_Health(t *testing.T) {
	h, _ := testHandler(t, nil)

	rec := do(h, "GET", "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	resp := decodeResponse(t, rec, nil)
	if resp.Code != "OK" {
		t.Errorf("expected code 'OK', got '%s'", resp.Code)
	}
	data, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatal("expected data to be a map")
	}
	if data["status"] != "healthy" {
		t.Errorf("expected status 'healthy', got '%v'", data["status"])
	}
	if _, ok := data["version"].(map[string]any); !ok {
		t.Errorf("expected version info, got %v", data["version"])
	}
}

func TestHandler_Ready(t *testing.T) {
	store := keystore.NewStatic()
	tags := service.NewTagService(store, nil, nil, nil)

	t.Run("ready", func(t *testing.T) {
		h := New(Config{Tags: tags, Ready: func(context.Context) error { return nil }})
		if rec := do(h, "GET", "/ready", nil); rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
	})

	t.Run("not ready", func(t *testing.T) {
		h := New(Config{Tags: tags, Ready: func(context.Context) error { return errors.New("store closed") }})
		rec := do(h, "GET", "/ready", nil)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status 503, got %d", rec.Code)
		}
		if got := rec.Header().Get("X-Error-Code"); got != domain.ErrServiceUnavailable.Code {
			t.Errorf("X-Error-Code = %q", got)
		}
	})
}

func TestHandler_Decode(t *testing.T) {
	h, _ := testHandler(t, nil)
	reading := domain.Reading{TagID: testTag, IDm: testIDm, Counter: 42, Payload: []byte{0xde, 0xad}}
	token := mustEncode(t, reading, testKey)

	rec := do(h, "GET", "/nfc?nv="+token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var got ReadingResponse
	resp := decodeResponse(t, rec, &got)
	if resp.Code != "OK" {
		t.Errorf("code = %q", resp.Code)
	}
	if got.TagID != "0102030405060708" {
		t.Errorf("tag_id = %q", got.TagID)
	}
	if got.IDm != "012e4cd81f8c7a33" {
		t.Errorf("idm = %q", got.IDm)
	}
	if got.Counter != 42 {
		t.Errorf("counter = %d, want 42", got.Counter)
	}
	if got.PayloadHex != "dead" {
		t.Errorf("payload_hex = %q, want dead", got.PayloadHex)
	}
	if got.Station != nil {
		t.Errorf("station = %v, want none for raw payloads", got.Station)
	}
}

func TestHandler_DecodeStation(t *testing.T) {
	cfg := service.DefaultTagServiceConfig()
	cfg.Parser = payload.Station
	h, _ := testHandler(t, cfg)

	info := payload.StationInfo{Watchdog: 3, BatteryVoltage: 2900}
	token := mustEncode(t, domain.Reading{TagID: testTag, IDm: testIDm, Counter: 1, Payload: payload.Marshal(info)}, testKey)

	rec := do(h, "GET", "/nfc?nv="+token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got struct {
		Station payload.StationInfo `json:"station"`
	}
	decodeResponse(t, rec, &got)
	if got.Station != info {
		t.Errorf("station = %+v, want %+v", got.Station, info)
	}
}

func TestHandler_DecodeErrors(t *testing.T) {
	otherKey := domain.TagKey{0xff}
	otherTag := domain.TagID{0xaa}

	tests := []struct {
		name   string
		target func(t *testing.T) string
		status int
		code   string
	}{
		{"missing param", func(*testing.T) string { return "/nfc" }, http.StatusBadRequest, domain.ErrMalformedInput.Code},
		{"not base64", func(*testing.T) string { return "/nfc?nv=%21%21%21" }, http.StatusBadRequest, domain.ErrMalformedInput.Code},
		{"too short", func(*testing.T) string { return "/nfc?nv=AQID" }, http.StatusBadRequest, domain.ErrMalformedInput.Code},
		{"wrong key", func(t *testing.T) string {
			return "/nfc?nv=" + mustEncode(t, domain.Reading{TagID: testTag}, otherKey)
		}, http.StatusForbidden, domain.ErrUnknownTag.Code},
		{"unknown tag", func(t *testing.T) string {
			return "/nfc?nv=" + mustEncode(t, domain.Reading{TagID: otherTag}, testKey)
		}, http.StatusForbidden, domain.ErrUnknownTag.Code},
	}

	h, _ := testHandler(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, "GET", tt.target(t), nil)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := rec.Header().Get("X-Error-Code"); got != tt.code {
				t.Errorf("X-Error-Code = %q, want %q", got, tt.code)
			}
			resp := decodeResponse(t, rec, nil)
			if resp.Code != tt.code {
				t.Errorf("body code = %q, want %q", resp.Code, tt.code)
			}
			if tt.status == http.StatusForbidden && resp.Message != rejectMessage {
				t.Errorf("message = %q, want %q", resp.Message, rejectMessage)
			}
		})
	}
}

func TestHandler_DecodeLookupFailure(t *testing.T) {
	tags := service.NewTagService(keystoretest.Fail{Err: errors.New("disk gone")}, nil, nil, nil)
	h := New(Config{Tags: tags})

	token := mustEncode(t, domain.Reading{TagID: testTag}, testKey)
	rec := do(h, "GET", "/nfc?nv="+token, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("disk gone")) {
		t.Error("response leaks the storage error")
	}
}

func TestHandler_DecodeZeroKeyStore(t *testing.T) {
	tags := service.NewTagService(keystoretest.Zero{}, nil, nil, nil)
	h := New(Config{Tags: tags})

	token := mustEncode(t, domain.Reading{TagID: testTag, IDm: testIDm, Counter: 42}, domain.TagKey{})
	rec := do(h, "GET", "/nfc?nv="+token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var got ReadingResponse
	decodeResponse(t, rec, &got)
	if got.Counter != 42 || got.IDm != "012e4cd81f8c7a33" {
		t.Errorf("reading = %+v", got)
	}

	other := mustEncode(t, domain.Reading{TagID: testTag, Counter: 1}, testKey)
	if rec := do(h, "GET", "/nfc?nv="+other, nil); rec.Code != http.StatusForbidden {
		t.Errorf("personalized token: status = %d, want 403", rec.Code)
	}
}

func TestHandler_DecodeReplay(t *testing.T) {
	cfg := service.DefaultTagServiceConfig()
	cfg.ReplayProtection = true
	h, _ := testHandler(t, cfg)

	token := mustEncode(t, domain.Reading{TagID: testTag, Counter: 7}, testKey)
	if rec := do(h, "GET", "/nfc?nv="+token, nil); rec.Code != http.StatusOK {
		t.Fatalf("first decode: status %d", rec.Code)
	}
	rec := do(h, "GET", "/nfc?nv="+token, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("replayed decode: status = %d, want 409", rec.Code)
	}
}

func TestHandler_CustomParam(t *testing.T) {
	store := keystore.NewStatic()
	store.Set(testTag, testKey)
	h := New(Config{Tags: service.NewTagService(store, nil, nil, nil), Param: "t"})

	token := mustEncode(t, domain.Reading{TagID: testTag}, testKey)
	if rec := do(h, "GET", "/nfc?t="+token, nil); rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec := do(h, "GET", "/nfc?nv="+token, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("default param still accepted: status = %d", rec.Code)
	}
}

func TestHandler_AdminKeys(t *testing.T) {
	h, store := testHandler(t, nil)
	base := "/admin/v1/tags/0102030405060708/keys"

	// Add a caller-supplied key.
	rec := do(h, "POST", base, AddKeyRequest{Key: "ffeeddccbbaa99887766554433221100", Label: "rotated"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add: status %d: %s", rec.Code, rec.Body.String())
	}
	var added AddKeyResponse
	decodeResponse(t, rec, &added)
	if added.Key != "" {
		t.Error("supplied key echoed back")
	}
	if added.Label != "rotated" || added.ID == "" {
		t.Errorf("added = %+v", added)
	}

	// Add a generated key.
	rec = do(h, "POST", base, AddKeyRequest{})
	if rec.Code != http.StatusCreated {
		t.Fatalf("generate: status %d", rec.Code)
	}
	var generated AddKeyResponse
	decodeResponse(t, rec, &generated)
	if len(generated.Key) != 32 {
		t.Errorf("generated key = %q, want 32 hex chars", generated.Key)
	}

	rec = do(h, "GET", base, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d", rec.Code)
	}
	var list ListKeysResponse
	decodeResponse(t, rec, &list)
	if len(list.Keys) != 3 {
		t.Fatalf("list = %d keys, want 3", len(list.Keys))
	}
	if list.Keys[0].ID != generated.ID || list.Keys[1].ID != added.ID {
		t.Errorf("list order = %+v, want newest first", list.Keys)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("ffeeddcc")) {
		t.Error("list exposes key material")
	}

	rec = do(h, "DELETE", base+"/"+added.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("remove: status %d", rec.Code)
	}
	keys, _ := store.Keys(context.Background(), testTag)
	if len(keys) != 2 {
		t.Errorf("keys after remove = %d, want 2", len(keys))
	}

	rec = do(h, "DELETE", base+"/"+added.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second remove: status = %d, want 404", rec.Code)
	}

	rec = do(h, "GET", "/admin/v1/tags", nil)
	var tags ListTagsResponse
	decodeResponse(t, rec, &tags)
	if len(tags.Tags) != 1 || tags.Tags[0] != "0102030405060708" {
		t.Errorf("tags = %v", tags.Tags)
	}
}

func TestHandler_AdminErrors(t *testing.T) {
	h, _ := testHandler(t, nil)

	tests := []struct {
		name   string
		method string
		target string
		body   any
		status int
	}{
		{"bad tag id", "GET", "/admin/v1/tags/xyz/keys", nil, http.StatusBadRequest},
		{"short key", "POST", "/admin/v1/tags/0102030405060708/keys", AddKeyRequest{Key: "0011"}, http.StatusBadRequest},
		{"unknown field", "POST", "/admin/v1/tags/0102030405060708/keys", map[string]string{"secret": "x"}, http.StatusBadRequest},
		{"bad idm", "POST", "/admin/v1/tags/0102030405060708/urls", IssueURLRequest{IDm: "zz"}, http.StatusBadRequest},
		{"bad payload", "POST", "/admin/v1/tags/0102030405060708/urls", IssueURLRequest{IDm: "0000000000000000", PayloadHex: "x"}, http.StatusBadRequest},
		{"no counter source", "POST", "/admin/v1/tags/0102030405060708/urls", IssueURLRequest{IDm: "0000000000000000"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, tt.method, tt.target, tt.body)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
		})
	}
}

func TestHandler_AdminReadOnly(t *testing.T) {
	store := keystore.NewStatic()
	store.Set(testTag, testKey)
	h := New(Config{Tags: service.NewTagService(store, nil, nil, nil), Keys: keystore.ReadOnly(store)})

	rec := do(h, "POST", "/admin/v1/tags/0102030405060708/keys", AddKeyRequest{})
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
	if rec := do(h, "GET", "/admin/v1/tags/0102030405060708/keys", nil); rec.Code != http.StatusOK {
		t.Errorf("list on read-only store: status = %d", rec.Code)
	}
}

func TestHandler_IssueRoundTrip(t *testing.T) {
	h, _ := testHandler(t, nil)

	counter := uint32(1234)
	rec := do(h, "POST", "/admin/v1/tags/0102030405060708/urls", IssueURLRequest{
		IDm:        testIDm.String(),
		PayloadHex: "0102",
		Counter:    &counter,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("issue: status %d: %s", rec.Code, rec.Body.String())
	}
	var issued service.IssueResponse
	decodeResponse(t, rec, &issued)
	if issued.Counter != counter {
		t.Errorf("counter = %d, want %d", issued.Counter, counter)
	}

	rec = do(h, "GET", "/nfc?nv="+issued.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("decode issued token: status %d", rec.Code)
	}
	var got ReadingResponse
	decodeResponse(t, rec, &got)
	if got.Counter != counter || got.PayloadHex != "0102" || got.IDm != testIDm.String() {
		t.Errorf("decoded = %+v", got)
	}
}

func TestHandler_AdminDisabled(t *testing.T) {
	store := keystore.NewStatic()
	h := New(Config{Tags: service.NewTagService(store, nil, nil, nil)})
	if h.AdminEnabled() {
		t.Fatal("admin enabled without a key store")
	}
	if rec := do(h, "GET", "/admin/v1/tags", nil); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
