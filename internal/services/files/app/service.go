// Package app implements the files service: a coordinator over the blob
// store and the metadata store.
//
// Writes follow a fixed order. A new file lands in the blob store first and
// the metadata row follows; when the metadata write fails the blob is
// compensated away, so a visible metadata row always has its blob. Deletes
// run the other way around: metadata first, blob second, and a blob left
// behind after a committed metadata delete is reported as a fatal orphan.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/casebooklabs/casebook/internal/auth/claims"
	cberrors "github.com/casebooklabs/casebook/internal/errors"
	"github.com/casebooklabs/casebook/internal/platform/bus"
	"github.com/casebooklabs/casebook/internal/platform/id"
	"github.com/casebooklabs/casebook/internal/platform/timeouts"
	"github.com/casebooklabs/casebook/internal/saga"
	casesapi "github.com/casebooklabs/casebook/internal/services/cases/api"
	clientsapi "github.com/casebooklabs/casebook/internal/services/clients/api"
	"github.com/casebooklabs/casebook/internal/services/files/api"
	"github.com/casebooklabs/casebook/internal/services/files/blob"
	"github.com/casebooklabs/casebook/internal/services/files/storage"
)

// Service handles files topics over a metadata store and a blob store.
type Service struct {
	store storage.Store
	blobs blob.Store
	conn  bus.Conn

	now   func() time.Time
	newID func() string
}

// New creates a files service over the given stores.
func New(store storage.Store, blobs blob.Store) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	return &Service{store: store, blobs: blobs, now: time.Now, newID: id.New}, nil
}

// Register subscribes every files topic on the connection.
func (s *Service) Register(conn bus.Conn) error {
	if conn == nil {
		return fmt.Errorf("bus connection is required")
	}
	s.conn = conn

	subscriptions := map[string]bus.Handler{
		api.TopicSaveNewCaseFile: bus.Allow(s.handleSaveNewCaseFile, claims.RoleAdmin, claims.RoleLawyer, claims.RoleReceptionist),
		api.TopicUpdateCaseFile:  bus.Allow(s.handleUpdateCaseFile, claims.RoleAdmin, claims.RoleLawyer, claims.RoleReceptionist),
		api.TopicDeleteCaseFile:  bus.Allow(s.handleDeleteCaseFile, claims.RoleAdmin),
		api.TopicGetAllFiles:     bus.Allow(s.handleGetAllFiles, claims.RoleAdmin, claims.RoleLawyer, claims.RoleReceptionist),
		api.TopicGetFileByID:     bus.Allow(s.handleGetFileByID, claims.RoleAdmin, claims.RoleLawyer, claims.RoleReceptionist),
		api.TopicDownloadFile:    bus.Allow(s.handleDownloadFile, claims.RoleAdmin, claims.RoleLawyer, claims.RoleReceptionist),
		api.TopicGetFilesForCase: bus.Allow(s.handleGetFilesForCase, claims.RoleAdmin, claims.RoleLawyer, claims.RoleReceptionist),
		api.TopicSearchFiles:     bus.Allow(s.handleSearchFiles, claims.RoleAdmin, claims.RoleLawyer, claims.RoleReceptionist),
	}
	for topic, handler := range subscriptions {
		if err := conn.Subscribe(topic, handler); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	return nil
}

func fileErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return cberrors.New(cberrors.CodeFileNotFound, "File not found")
	}
	if errors.Is(err, storage.ErrConflict) {
		return cberrors.New(cberrors.CodeFileNameExists, "File name already exists for this case")
	}
	return err
}

func toAPIFile(f storage.FileMetadata) api.FileMetadata {
	return api.FileMetadata{
		ID:          f.ID,
		FileName:    f.FileName,
		ContentType: f.ContentType,
		Size:        f.Size,
		ObjectKey:   f.ObjectKey,
		UploadedBy:  f.UploadedBy,
		UploadedAt:  f.UploadedAt,
		Client:      api.ClientRef{ID: f.ClientID, Name: f.ClientName},
		Case:        api.CaseRef{ID: f.CaseID, Number: f.CaseNumber, Title: f.CaseTitle},
	}
}

func (s *Service) verifyCase(ctx context.Context, caseID string) (casesapi.Case, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeouts.BusRequest)
	defer cancel()
	var c casesapi.Case
	if err := s.conn.Request(callCtx, casesapi.TopicSearchCaseByID, casesapi.GetByIDRequest{ID: caseID}, &c); err != nil {
		return casesapi.Case{}, err
	}
	return c, nil
}

func (s *Service) verifyClient(ctx context.Context, clientID string) (clientsapi.Client, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeouts.BusRequest)
	defer cancel()
	var c clientsapi.Client
	if err := s.conn.Request(callCtx, clientsapi.TopicGetClientByID, clientsapi.GetByIDRequest{ID: clientID}, &c); err != nil {
		return clientsapi.Client{}, err
	}
	return c, nil
}

func (s *Service) handleSaveNewCaseFile(ctx context.Context, req *bus.Request) (any, error) {
	var in api.SaveFileRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed save file request", err)
	}
	in.FileName = strings.TrimSpace(in.FileName)
	if in.FileName == "" {
		return nil, cberrors.New(cberrors.CodeInvalidArgument, "file name is required")
	}
	if len(in.Content) == 0 {
		return nil, cberrors.New(cberrors.CodeInvalidArgument, "file content is required")
	}

	client, err := s.verifyClient(ctx, in.ClientID)
	if err != nil {
		return nil, err
	}
	c, err := s.verifyCase(ctx, in.CaseID)
	if err != nil {
		return nil, err
	}

	sagaLog := &saga.Log{}
	key := s.newID()
	if err := s.blobs.Put(ctx, key, in.Content); err != nil {
		return nil, fmt.Errorf("store blob: %w", err)
	}
	sagaLog.Append("delete blob "+key, func(undoCtx context.Context) error {
		return s.blobs.Delete(undoCtx, key)
	})

	meta := storage.FileMetadata{
		ID:          s.newID(),
		FileName:    in.FileName,
		ContentType: in.ContentType,
		Size:        int64(len(in.Content)),
		ObjectKey:   key,
		UploadedBy:  req.Claims.Username,
		UploadedAt:  s.now().UTC(),
		ClientID:    client.ID,
		ClientName:  client.Name,
		CaseID:      c.ID,
		CaseNumber:  c.Number,
		CaseTitle:   c.Title,
	}
	if err := s.store.CreateFile(ctx, meta); err != nil {
		_ = sagaLog.Compensate(ctx)
		return nil, fileErr(err)
	}
	sagaLog.Discard()

	stored, err := s.store.GetFile(ctx, meta.ID)
	if err != nil {
		return nil, fileErr(err)
	}
	return toAPIFile(stored), nil
}

func (s *Service) handleUpdateCaseFile(ctx context.Context, req *bus.Request) (any, error) {
	var in api.UpdateFileRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed update file request", err)
	}
	if len(in.Content) == 0 {
		return nil, cberrors.New(cberrors.CodeInvalidArgument, "file content is required")
	}

	meta, err := s.store.GetFile(ctx, in.FileID)
	if err != nil {
		return nil, fileErr(err)
	}
	oldKey := meta.ObjectKey

	// New blob first, metadata second, old blob last. The old blob stays
	// readable until the metadata points at the new one.
	sagaLog := &saga.Log{}
	newKey := s.newID()
	if err := s.blobs.Put(ctx, newKey, in.Content); err != nil {
		return nil, fmt.Errorf("store blob: %w", err)
	}
	sagaLog.Append("delete blob "+newKey, func(undoCtx context.Context) error {
		return s.blobs.Delete(undoCtx, newKey)
	})

	if name := strings.TrimSpace(in.FileName); name != "" {
		meta.FileName = name
	}
	if in.ContentType != "" {
		meta.ContentType = in.ContentType
	}
	meta.Size = int64(len(in.Content))
	meta.ObjectKey = newKey
	meta.UploadedBy = req.Claims.Username
	meta.UploadedAt = s.now().UTC()

	if err := s.store.UpdateFile(ctx, meta); err != nil {
		_ = sagaLog.Compensate(ctx)
		return nil, fileErr(err)
	}
	sagaLog.Discard()

	if err := s.blobs.Delete(ctx, oldKey); err != nil && !errors.Is(err, blob.ErrNotFound) {
		log.Printf("files: orphaned blob %s after update of %s: %v", oldKey, meta.ID, err)
		return nil, cberrors.WithMetadata(cberrors.CodeFileOrphaned,
			"file updated but previous content could not be removed",
			map[string]string{"objectKey": oldKey})
	}
	return toAPIFile(meta), nil
}

func (s *Service) handleDeleteCaseFile(ctx context.Context, req *bus.Request) (any, error) {
	var in api.GetByIDRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed delete request", err)
	}

	meta, err := s.store.GetFile(ctx, in.ID)
	if err != nil {
		return nil, fileErr(err)
	}
	if err := s.store.DeleteFile(ctx, in.ID); err != nil {
		return nil, fileErr(err)
	}
	if err := s.blobs.Delete(ctx, meta.ObjectKey); err != nil && !errors.Is(err, blob.ErrNotFound) {
		log.Printf("files: orphaned blob %s after delete of %s: %v", meta.ObjectKey, meta.ID, err)
		return nil, cberrors.WithMetadata(cberrors.CodeFileOrphaned,
			"file deleted but stored content could not be removed",
			map[string]string{"objectKey": meta.ObjectKey})
	}
	return struct{}{}, nil
}

func (s *Service) handleGetAllFiles(ctx context.Context, req *bus.Request) (any, error) {
	var in api.ListRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed list request", err)
	}
	if in.Page < 1 {
		in.Page = 1
	}
	if in.Limit < 1 || in.Limit > 100 {
		in.Limit = 20
	}

	page, err := s.store.ListFiles(ctx, (in.Page-1)*in.Limit, in.Limit)
	if err != nil {
		return nil, err
	}
	out := api.FilePage{Total: page.Total, Page: in.Page, Limit: in.Limit}
	for _, f := range page.Files {
		out.Files = append(out.Files, toAPIFile(f))
	}
	return out, nil
}

func (s *Service) handleGetFileByID(ctx context.Context, req *bus.Request) (any, error) {
	var in api.GetByIDRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed get request", err)
	}
	meta, err := s.store.GetFile(ctx, in.ID)
	if err != nil {
		return nil, fileErr(err)
	}
	return toAPIFile(meta), nil
}

func (s *Service) handleDownloadFile(ctx context.Context, req *bus.Request) (any, error) {
	var in api.GetByIDRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed download request", err)
	}
	meta, err := s.store.GetFile(ctx, in.ID)
	if err != nil {
		return nil, fileErr(err)
	}
	content, err := s.blobs.Get(ctx, meta.ObjectKey)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, cberrors.WithMetadata(cberrors.CodeFileOrphaned,
			"file metadata exists but stored content is missing",
			map[string]string{"objectKey": meta.ObjectKey})
	}
	if err != nil {
		return nil, err
	}
	return api.FileContent{
		FileName:    meta.FileName,
		ContentType: meta.ContentType,
		Content:     content,
	}, nil
}

func (s *Service) handleSearchFiles(ctx context.Context, req *bus.Request) (any, error) {
	var in api.SearchFilesRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed search request", err)
	}
	criteria := storage.SearchCriteria{
		FileName:   strings.TrimSpace(in.FileName),
		ClientName: strings.TrimSpace(in.ClientName),
		CaseNumber: strings.TrimSpace(in.CaseNumber),
	}
	if criteria.FileName == "" && criteria.ClientName == "" && criteria.CaseNumber == "" {
		return nil, cberrors.New(cberrors.CodeInvalidArgument, "at least one search criterion is required")
	}

	files, err := s.store.SearchFiles(ctx, criteria)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, cberrors.New(cberrors.CodeFileNotFound, "File not found")
	}
	out := make([]api.FileMetadata, 0, len(files))
	for _, f := range files {
		out = append(out, toAPIFile(f))
	}
	return out, nil
}

func (s *Service) handleGetFilesForCase(ctx context.Context, req *bus.Request) (any, error) {
	var in api.GetForCaseRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed list request", err)
	}
	files, err := s.store.ListFilesForCase(ctx, in.CaseID)
	if err != nil {
		return nil, err
	}
	out := make([]api.FileMetadata, 0, len(files))
	for _, f := range files {
		out = append(out, toAPIFile(f))
	}
	return out, nil
}
