package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"shardrun/internal/domain"
	"shardrun/internal/runerrors"
)

const DefaultCallTimeout = 60 * time.Second

// HTTPBackend is a Backend speaking JSON over HTTP to the testing API.
type HTTPBackend struct {
	baseURL     string
	project     string
	client      *http.Client
	callTimeout time.Duration
}

// NewHTTPBackend creates a backend for project at baseURL, authenticating with a bearer token.
// An empty token sends unauthenticated requests.
func NewHTTPBackend(baseURL, project, token string, callTimeout time.Duration) (*HTTPBackend, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, errors.WithStack(&runerrors.ErrInvalidArgument{
			Name:    "apiUrl",
			Value:   baseURL,
			Message: err.Error(),
		})
	}
	if project == "" {
		return nil, errors.WithStack(&runerrors.ErrInvalidArgument{
			Name:    "project",
			Value:   project,
			Message: "a project is required",
		})
	}
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}

	client := http.DefaultClient
	if token != "" {
		client = oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	}
	return &HTTPBackend{
		baseURL:     strings.TrimRight(baseURL, "/"),
		project:     project,
		client:      client,
		callTimeout: callTimeout,
	}, nil
}

// matrixResource is the wire form of a test matrix.
type matrixResource struct {
	TestMatrixID string `json:"testMatrixId"`
	State        string `json:"state"`
	Outcome      string `json:"outcome,omitempty"`
	ResultsPath  string `json:"resultsPath,omitempty"`
}

type errorBody struct {
	Error struct {
		Code      int    `json:"code"`
		Status    string `json:"status"`
		Message   string `json:"message"`
		Retryable *bool  `json:"retryable,omitempty"`
	} `json:"error"`
}

func (b *HTTPBackend) matricesURL() string {
	return fmt.Sprintf("%s/v1/projects/%s/testMatrices", b.baseURL, url.PathEscape(b.project))
}

// CreateMatrix submits config as a new test matrix.
func (b *HTTPBackend) CreateMatrix(ctx context.Context, config domain.JobConfig) (domain.MatrixHandle, error) {
	body, err := json.Marshal(config)
	if err != nil {
		return domain.MatrixHandle{}, errors.Wrap(err, "marshal job config")
	}
	var matrix matrixResource
	if err := b.do(ctx, http.MethodPost, b.matricesURL(), body, &matrix); err != nil {
		return domain.MatrixHandle{}, err
	}
	handle := matrix.toHandle()
	if handle.ResultsPath == "" {
		handle.ResultsPath = config.ResultsPath
	}
	handle.ContextIndex = config.ContextIndex
	handle.Repeat = config.Repeat
	log.WithFields(log.Fields{"matrix": handle.ID, "context": config.ContextIndex}).Debug("matrix created")
	return handle, nil
}

// GetMatrix reads the latest state of the matrix with the given id.
func (b *HTTPBackend) GetMatrix(ctx context.Context, id string) (domain.MatrixHandle, error) {
	var matrix matrixResource
	if err := b.do(ctx, http.MethodGet, b.matricesURL()+"/"+url.PathEscape(id), nil, &matrix); err != nil {
		return domain.MatrixHandle{}, err
	}
	return matrix.toHandle(), nil
}

func (m matrixResource) toHandle() domain.MatrixHandle {
	return domain.MatrixHandle{
		ID:          m.TestMatrixID,
		State:       domain.MatrixState(m.State),
		Outcome:     domain.MatrixOutcome(m.Outcome),
		ResultsPath: m.ResultsPath,
	}
}

func (b *HTTPBackend) do(ctx context.Context, method, target string, body []byte, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, b.callTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return errors.WithStack(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "reading %s response", method)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return remoteError(resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "decoding %s response", method)
	}
	return nil
}

func remoteError(statusCode int, data []byte) error {
	remote := &runerrors.RemoteError{StatusCode: statusCode}
	var body errorBody
	if err := json.Unmarshal(data, &body); err == nil {
		remote.Code = body.Error.Status
		remote.Message = body.Error.Message
		remote.Retryable = body.Error.Retryable
	} else {
		remote.Message = strings.TrimSpace(string(data))
	}
	return errors.WithStack(remote)
}
