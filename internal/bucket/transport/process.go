package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/aikea/internal/logging"
	"github.com/dmitrijs2005/aikea/internal/netx"
)

// statusMarker separates the response body from the status code that curl
// prints through --write-out.
const statusMarker = "\n__AIKEA_STATUS__:"

// execCommand is a seam for tests.
var execCommand = exec.CommandContext

// DefaultCurlPath returns the curl binary name for the running OS.
func DefaultCurlPath() string {
	if runtime.GOOS == "windows" {
		return "curl.exe"
	}
	return "curl"
}

// ProcessClient shells out to curl. The bucket has been seen to accept curl
// while rejecting Go's own client, so this is the last resort of Chain.
type ProcessClient struct {
	path    string
	timeout time.Duration
	logger  logging.Logger
}

// NewProcessClient returns a ProcessClient. An empty path selects
// DefaultCurlPath.
func NewProcessClient(path string, timeout time.Duration, logger logging.Logger) *ProcessClient {
	if path == "" {
		path = DefaultCurlPath()
	}
	return &ProcessClient{
		path:    path,
		timeout: timeout,
		logger:  logger.With("primitive", "process"),
	}
}

func (p *ProcessClient) Name() string {
	return "process"
}

// Do runs one curl process. The process lives under its own deadline
// derived from ctx, so it is killed and reaped on every exit path. Output
// is collected into buffers; exec drains both pipes before Wait returns.
func (p *ProcessClient) Do(ctx context.Context, req *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout+time.Second)
	defer cancel()

	args := curlArgs(req, p.timeout)
	cmd := execCommand(ctx, p.path, args...)
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if req.Body != nil {
		cmd.Stdin = bytes.NewReader(req.Body)
	}

	p.logger.Info(ctx, "executing curl", "method", req.Method, "url", req.URL)

	err := cmd.Run()
	out := stdout.String()

	if err != nil {
		if ctx.Err() != nil {
			p.logger.Warn(ctx, "curl killed at deadline", "timeout", p.timeout)
			return nil, &NetError{Primitive: p.Name(), Kind: netx.Classify(ctx.Err()), Err: ctx.Err()}
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code := exitErr.ExitCode()
			p.logger.Warn(ctx, "curl failed", "exit_code", code, "stderr", strings.TrimSpace(stderr.String()))
			return nil, &NetError{
				Primitive: p.Name(),
				Kind:      curlExitKind(code),
				Err:       fmt.Errorf("curl exit code %d: %s", code, strings.TrimSpace(stderr.String()+out)),
			}
		}
		return nil, &NetError{Primitive: p.Name(), Kind: netx.KindOther, Err: err}
	}

	if strings.TrimSpace(out) == "" {
		return nil, &NetError{Primitive: p.Name(), Kind: KindMalformed, Err: errors.New("curl produced no output")}
	}

	resp, err := parseCurlOutput(out)
	if err != nil {
		return nil, &NetError{Primitive: p.Name(), Kind: KindMalformed, Err: err}
	}

	p.logger.Info(ctx, "curl finished", "status", resp.StatusCode, "bytes", len(resp.Body))
	return resp, nil
}

// curlArgs builds the argument list for one request. Headers are emitted in
// sorted order so the command line is stable.
func curlArgs(req *Request, timeout time.Duration) []string {
	secs := strconv.Itoa(int(timeout.Seconds()))
	if timeout < time.Second {
		secs = "1"
	}

	args := []string{
		"-sS",
		"-X", req.Method,
		"--connect-timeout", secs,
		"--max-time", secs,
		"-w", statusMarker + "%{http_code}",
	}

	keys := make([]string, 0, len(req.Header))
	for k := range req.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range req.Header[k] {
			args = append(args, "-H", k+": "+v)
		}
	}

	if req.Body != nil {
		args = append(args, "--data-binary", "@-")
	}

	return append(args, req.URL)
}

func parseCurlOutput(out string) (*Response, error) {
	i := strings.LastIndex(out, statusMarker)
	if i < 0 {
		return nil, errors.New("curl output has no status marker")
	}
	code, err := strconv.Atoi(strings.TrimSpace(out[i+len(statusMarker):]))
	if err != nil {
		return nil, fmt.Errorf("curl status: %w", err)
	}
	if code == 0 {
		return nil, errors.New("curl reported no HTTP status")
	}
	return &Response{StatusCode: code, Header: http.Header{}, Body: []byte(out[:i])}, nil
}

// curlExitKind maps documented curl exit codes to a failure class.
func curlExitKind(code int) NetErrorKind {
	switch code {
	case 6:
		return netx.KindDNS
	case 7:
		return netx.KindRefused
	case 28:
		return netx.KindTimeout
	default:
		return netx.KindOther
	}
}
