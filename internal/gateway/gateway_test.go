package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/casebooklabs/casebook/internal/auth/claims"
	cberrors "github.com/casebooklabs/casebook/internal/errors"
	"github.com/casebooklabs/casebook/internal/platform/bus"
	clientsapi "github.com/casebooklabs/casebook/internal/services/clients/api"
	filesapi "github.com/casebooklabs/casebook/internal/services/files/api"
)

var testSecret = []byte("gateway-test-secret")

func newTestGateway(t *testing.T) (*httptest.Server, *bus.Inproc) {
	t.Helper()
	conn := bus.NewInproc()
	t.Cleanup(func() { _ = conn.Close() })

	gw, err := New(conn, testSecret)
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	srv := httptest.NewServer(gw.Handler())
	t.Cleanup(srv.Close)
	return srv, conn
}

func bearerFor(t *testing.T, role string) string {
	t.Helper()
	token, err := claims.Issue(testSecret, claims.Claims{
		SubjectID: "user-1", Username: "ada", Role: role,
	}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return "Bearer " + token
}

func doRequest(t *testing.T, method, url, bearer string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestRejectsMissingToken(t *testing.T) {
	srv, _ := newTestGateway(t)
	resp := doRequest(t, http.MethodGet, srv.URL+"/api/clients", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestRejectsExpiredToken(t *testing.T) {
	srv, _ := newTestGateway(t)
	token, err := claims.Issue(testSecret, claims.Claims{
		SubjectID: "user-1", Username: "ada", Role: claims.RoleAdmin,
	}, -time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	resp := doRequest(t, http.MethodGet, srv.URL+"/api/clients", "Bearer "+token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestRelaysClaimsToService(t *testing.T) {
	srv, conn := newTestGateway(t)

	err := conn.Subscribe(clientsapi.TopicGetClientByID, func(ctx context.Context, req *bus.Request) (any, error) {
		if req.Claims == nil || req.Claims.Username != "ada" {
			t.Errorf("claims = %+v", req.Claims)
		}
		var in clientsapi.GetByIDRequest
		if err := req.Decode(&in); err != nil {
			return nil, err
		}
		return clientsapi.Client{ID: in.ID, Name: "Acme Holdings"}, nil
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/clients/client-1", bearerFor(t, claims.RoleAdmin), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var client clientsapi.Client
	if err := json.NewDecoder(resp.Body).Decode(&client); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if client.ID != "client-1" || client.Name != "Acme Holdings" {
		t.Fatalf("client = %+v", client)
	}
}

func TestMapsFailureKindsToStatuses(t *testing.T) {
	srv, conn := newTestGateway(t)

	replies := map[string]error{
		"missing":   cberrors.New(cberrors.CodeClientNotFound, "Client not found"),
		"duplicate": cberrors.New(cberrors.CodeClientEmailExists, "Email already registered"),
		"forbidden": cberrors.New(cberrors.CodeForbidden, "Forbidden resource"),
		"invalid":   cberrors.New(cberrors.CodeInvalidArgument, "client name is required"),
	}
	err := conn.Subscribe(clientsapi.TopicGetClientByID, func(ctx context.Context, req *bus.Request) (any, error) {
		var in clientsapi.GetByIDRequest
		if err := req.Decode(&in); err != nil {
			return nil, err
		}
		return nil, replies[in.ID]
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	cases := []struct {
		id     string
		status int
	}{
		{"missing", http.StatusNotFound},
		{"duplicate", http.StatusConflict},
		{"forbidden", http.StatusForbidden},
		{"invalid", http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		resp := doRequest(t, http.MethodGet, srv.URL+"/api/clients/"+tc.id, bearerFor(t, claims.RoleAdmin), nil)
		if resp.StatusCode != tc.status {
			t.Fatalf("%s: status = %d, want %d", tc.id, resp.StatusCode, tc.status)
		}
		var body errorBody
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("%s: decode body: %v", tc.id, err)
		}
		if body.Code == "" || body.Message == "" {
			t.Fatalf("%s: body = %+v", tc.id, body)
		}
	}
}

func TestUnclassifiedErrorIsNotLeaked(t *testing.T) {
	srv, conn := newTestGateway(t)

	err := conn.Subscribe(clientsapi.TopicGetClientByID, func(ctx context.Context, req *bus.Request) (any, error) {
		return nil, io.ErrUnexpectedEOF
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/clients/client-1", bearerFor(t, claims.RoleAdmin), nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	var body errorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Message != "Internal server error" {
		t.Fatalf("message = %q, leaked internal detail", body.Message)
	}
}

func TestCreateClientRelay(t *testing.T) {
	srv, conn := newTestGateway(t)

	err := conn.Subscribe(clientsapi.TopicCreateClient, func(ctx context.Context, req *bus.Request) (any, error) {
		var in clientsapi.CreateClientRequest
		if err := req.Decode(&in); err != nil {
			return nil, err
		}
		return clientsapi.Client{ID: "client-1", Name: in.Name, Email: in.Email}, nil
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	payload := bytes.NewBufferString(`{"name":"Acme Holdings","phoneNumber":"555-0101","email":"legal@acme.test"}`)
	resp := doRequest(t, http.MethodPost, srv.URL+"/api/clients", bearerFor(t, claims.RoleAdmin), payload)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	var client clientsapi.Client
	if err := json.NewDecoder(resp.Body).Decode(&client); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if client.Name != "Acme Holdings" {
		t.Fatalf("client = %+v", client)
	}
}

func TestRejectsMalformedBody(t *testing.T) {
	srv, _ := newTestGateway(t)
	payload := bytes.NewBufferString(`{"name":`)
	resp := doRequest(t, http.MethodPost, srv.URL+"/api/clients", bearerFor(t, claims.RoleAdmin), payload)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestFileUploadAndDownload(t *testing.T) {
	srv, conn := newTestGateway(t)

	var saved filesapi.SaveFileRequest
	err := conn.Subscribe(filesapi.TopicSaveNewCaseFile, func(ctx context.Context, req *bus.Request) (any, error) {
		if err := req.Decode(&saved); err != nil {
			return nil, err
		}
		return filesapi.FileMetadata{ID: "file-1", FileName: saved.FileName, ContentType: saved.ContentType, Size: int64(len(saved.Content))}, nil
	})
	if err != nil {
		t.Fatalf("subscribe save: %v", err)
	}
	err = conn.Subscribe(filesapi.TopicDownloadFile, func(ctx context.Context, req *bus.Request) (any, error) {
		return filesapi.FileContent{FileName: saved.FileName, ContentType: saved.ContentType, Content: saved.Content}, nil
	})
	if err != nil {
		t.Fatalf("subscribe download: %v", err)
	}

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	if err := mw.WriteField("clientId", "client-1"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := mw.WriteField("caseId", "case-1"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	part, err := mw.CreateFormFile("file", "brief.pdf")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("%PDF-1.7 fake brief")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/files", &form)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", bearerFor(t, claims.RoleLawyer))
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload status = %d, want 201", resp.StatusCode)
	}
	if saved.ClientID != "client-1" || saved.CaseID != "case-1" || saved.FileName != "brief.pdf" {
		t.Fatalf("saved = %+v", saved)
	}

	dl := doRequest(t, http.MethodGet, srv.URL+"/api/files/file-1/download", bearerFor(t, claims.RoleLawyer), nil)
	if dl.StatusCode != http.StatusOK {
		t.Fatalf("download status = %d, want 200", dl.StatusCode)
	}
	content, err := io.ReadAll(dl.Body)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if string(content) != "%PDF-1.7 fake brief" {
		t.Fatalf("content = %q", content)
	}
	if got := dl.Header.Get("Content-Disposition"); got != `attachment; filename="brief.pdf"` {
		t.Fatalf("disposition = %q", got)
	}
}

func TestOrphanedFileMapsToInternalError(t *testing.T) {
	srv, conn := newTestGateway(t)

	err := conn.Subscribe(filesapi.TopicDownloadFile, func(ctx context.Context, req *bus.Request) (any, error) {
		return nil, cberrors.New(cberrors.CodeFileOrphaned, "File blob is missing")
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/files/file-1/download", bearerFor(t, claims.RoleAdmin), nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
}
