package bucket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/aikea/internal/bucket/parser"
	"github.com/dmitrijs2005/aikea/internal/bucket/transport"
	"github.com/dmitrijs2005/aikea/internal/common"
	"github.com/dmitrijs2005/aikea/internal/logging"
)

const (
	uploadPath = "/student/upload"
	searchPath = "/student/upload/search"
)

// RemoteStore talks to the HTTP bucket through a transport.Chain.
type RemoteStore struct {
	baseURL string
	token   string
	chain   *transport.Chain
	parser  *parser.Parser
	logger  logging.Logger
	now     func() time.Time
}

func NewRemoteStore(baseURL, token string, chain *transport.Chain, p *parser.Parser, logger logging.Logger) *RemoteStore {
	return &RemoteStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		chain:   chain,
		parser:  p,
		logger:  logger.With("module", "remote_store"),
		now:     time.Now,
	}
}

func (s *RemoteStore) header(contentType string) http.Header {
	return http.Header{
		"Authorization": []string{"Bearer " + s.token},
		"Content-Type":  []string{contentType},
	}
}

// Upload posts in as multipart/form-data. The bucket answers with the
// object's url and id; a 2xx without a url is treated as a failure.
func (s *RemoteStore) Upload(ctx context.Context, in UploadInput) (*StoredFileRecord, error) {
	body, contentType, err := multipartBody(in)
	if err != nil {
		return nil, fmt.Errorf("build upload body: %w", err)
	}

	s.logger.Info(ctx, "uploading file", "file", in.FileName, "external_id", in.ExternalID, "bytes", len(in.Data))

	out := s.chain.Execute(ctx, transport.Call{
		Method: http.MethodPost,
		URL:    s.baseURL + uploadPath,
		Header: s.header(contentType),
		Body:   body,
	})
	if !out.OK() {
		return nil, operationError("upload", out, common.ErrUploadFailed)
	}

	var resp map[string]any
	dec := json.NewDecoder(bytes.NewReader(out.Body))
	dec.UseNumber()
	if err := dec.Decode(&resp); err != nil {
		return nil, &common.OperationError{
			Op: "upload", Status: out.Status, Body: string(out.Body),
			Err: fmt.Errorf("%w: %w", common.ErrUploadFailed, common.ErrMalformedResponse),
		}
	}

	rec := &StoredFileRecord{
		ID:           scalar(resp["id"]),
		ExternalID:   in.ExternalID,
		Name:         in.FileName,
		URL:          scalar(resp["url"]),
		Tag1:         in.Tag1,
		Tag2:         in.Tag2,
		Tag3:         in.Tag3,
		Description:  in.Description,
		MimeCategory: mimeCategory(in.ContentType),
		SizeBytes:    int64(len(in.Data)),
		UploadedAt:   s.now().UTC(),
	}
	if rec.ID == "" {
		rec.ID = in.FileName
	}
	if rec.URL == "" {
		return nil, &common.OperationError{
			Op: "upload", Status: out.Status, Body: string(out.Body),
			Err: fmt.Errorf("%w: response has no url", common.ErrUploadFailed),
		}
	}

	s.logger.Info(ctx, "file uploaded", "id", rec.ID, "url", rec.URL, "primitive", out.Primitive)
	return rec, nil
}

// Delete removes id. The bucket requires a JSON body even on DELETE.
func (s *RemoteStore) Delete(ctx context.Context, id string) error {
	out := s.chain.Execute(ctx, transport.Call{
		Method: http.MethodDelete,
		URL:    s.baseURL + uploadPath + "/" + url.PathEscape(id),
		Header: s.header("application/json"),
		Body:   []byte("{}"),
	})
	if !out.OK() {
		return operationError("delete", out, common.ErrDeleteFailed)
	}
	s.logger.Info(ctx, "file deleted", "id", id, "primitive", out.Primitive)
	return nil
}

// List sends f as the body of the search request, with the probe enabled.
func (s *RemoteStore) List(ctx context.Context, f Filter) (*Listing, error) {
	body, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}

	out := s.chain.Execute(ctx, transport.Call{
		Method: http.MethodGet,
		URL:    s.baseURL + searchPath,
		Header: s.header("application/json"),
		Body:   body,
		Probe:  true,
	})
	if !out.OK() {
		return nil, operationError("list", out, common.ErrListFailed)
	}

	res, err := s.parser.Parse(ctx, out.Body)
	if err != nil {
		return nil, &common.OperationError{Op: "list", Status: out.Status, Body: string(out.Body), Err: err}
	}

	records := make([]StoredFileRecord, 0, len(res.Entries))
	for _, e := range res.Entries {
		r, ok := recordFromEntry(e)
		if !ok {
			s.logger.Debug(ctx, "dropping listed entry without id", "tag1", e.Tag1, "description", e.Description)
			continue
		}
		records = append(records, r)
	}

	s.logger.Debug(ctx, "listing parsed", "records", len(records), "stage", res.Stage, "primitive", out.Primitive)
	return &Listing{Records: records, ProbeFiltered: out.ProbeFiltered, Source: out.Primitive}, nil
}

// Diagnose checks base URL reachability and the unauthenticated probe in
// parallel and decodes the token's expiry.
func (s *RemoteStore) Diagnose(ctx context.Context) Diagnostics {
	d := Diagnostics{
		Mode:         ModeRemote,
		Configured:   s.baseURL != "" && s.token != "",
		BaseURL:      s.baseURL,
		CheckedAt:    s.now().UTC(),
		TokenPresent: s.token != "",
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		status, err := s.chain.Probe(gctx, s.baseURL+"/")
		d.ReachStatus = status
		if err != nil {
			d.ReachError = err.Error()
			return nil
		}
		d.Reachable = true
		return nil
	})
	g.Go(func() error {
		status, err := s.chain.Probe(gctx, s.baseURL+searchPath)
		d.ProbeStatus = status
		if err != nil {
			d.ProbeError = err.Error()
			return nil
		}
		d.SuspectedFiltering = status == http.StatusForbidden
		return nil
	})
	_ = g.Wait()

	if d.TokenPresent {
		exp, err := tokenExpiry(s.token)
		if err != nil {
			d.TokenError = err.Error()
		} else {
			d.TokenExpiresAt = &exp
			d.TokenExpired = exp.Before(d.CheckedAt)
		}
	}

	switch {
	case !d.Reachable:
		d.Message = "bucket is not reachable from this server"
	case d.SuspectedFiltering:
		d.Message = FilteredRecord().Message
	case d.TokenExpired:
		d.Message = "bucket token has expired"
	default:
		d.Message = "bucket is reachable"
	}

	s.logger.Info(ctx, "bucket diagnostics",
		"reachable", d.Reachable,
		"probe_status", d.ProbeStatus,
		"token", logging.Redact(s.token),
	)
	return d
}

// operationError turns a failed outcome into an *OperationError whose Err
// matches base plus the sentinel for the failure class.
func operationError(op string, out *transport.Outcome, base error) error {
	var cause error
	switch out.Kind {
	case transport.KindUnauthorized:
		cause = common.ErrorUnauthorized
	case transport.KindSuspectedFiltering:
		cause = common.ErrSuspectedFiltering
	case transport.KindMalformedResponse:
		cause = common.ErrMalformedResponse
	case transport.KindNetworkError:
		cause = common.ErrTransport
	case transport.KindHTTPStatus:
		if out.Status == http.StatusNotFound {
			cause = common.ErrorNotFound
		}
	}

	err := base
	if cause != nil {
		err = fmt.Errorf("%w: %w", base, cause)
	}
	if out.Err != nil && out.Status == 0 {
		err = fmt.Errorf("%w: %v", err, out.Err)
	}
	return &common.OperationError{Op: op, Status: out.Status, Body: string(out.Body), Err: err}
}

func multipartBody(in UploadInput) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, in.FileName))
	ct := in.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(in.Data); err != nil {
		return nil, "", err
	}

	fields := []struct{ name, value string }{
		{"idExterne", in.ExternalID},
		{"tag1", in.Tag1},
		{"tag2", in.Tag2},
		{"tag3", in.Tag3},
		{"description", in.Description},
	}
	for _, f := range fields {
		if f.value == "" && f.name != "idExterne" {
			continue
		}
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func mimeCategory(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "image"
	case contentType == "" || strings.Contains(contentType, "pdf"):
		return "pdf"
	default:
		return contentType
	}
}
