package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/aikea/internal/logging"
	"github.com/dmitrijs2005/aikea/internal/netx"
)

// fakeCurl re-executes the test binary as a stand-in for curl. mode selects
// the behavior in TestHelperProcess.
func fakeCurl(t *testing.T, mode string, gotArgs *[]string) {
	t.Helper()
	orig := execCommand
	t.Cleanup(func() { execCommand = orig })

	execCommand = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		if gotArgs != nil {
			*gotArgs = append([]string{name}, args...)
		}
		cs := append([]string{"-test.run=TestHelperProcess", "--"}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "FAKE_CURL_MODE="+mode)
		return cmd
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	switch os.Getenv("FAKE_CURL_MODE") {
	case "echo":
		body, _ := io.ReadAll(os.Stdin)
		fmt.Fprintf(os.Stdout, `{"echo":%q}`+statusMarker+"200", body)
	case "forbidden":
		fmt.Fprint(os.Stdout, "<html>denied</html>"+statusMarker+"403")
	case "refused":
		fmt.Fprint(os.Stderr, "curl: (7) Failed to connect")
		os.Exit(7)
	case "empty":
	case "hang":
		time.Sleep(30 * time.Second)
	}
	os.Exit(0)
}

func TestProcessClient_Success(t *testing.T) {
	var args []string
	fakeCurl(t, "echo", &args)

	p := NewProcessClient("/usr/bin/curl", 5*time.Second, logging.Nop())
	resp, err := p.Do(context.Background(), &Request{
		Method: http.MethodGet,
		URL:    "https://bucket.example/student/upload/search",
		Header: http.Header{"Authorization": []string{"Bearer tok"}},
		Body:   []byte(`{}`),
	})
	require.NoError(t, err)

	assert.Equal(t, "process", p.Name())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"echo":"{}"}`, string(resp.Body))
	require.NotEmpty(t, args)
	assert.Equal(t, "/usr/bin/curl", args[0])
	assert.Equal(t, "https://bucket.example/student/upload/search", args[len(args)-1])
}

func TestProcessClient_StatusIsResponse(t *testing.T) {
	fakeCurl(t, "forbidden", nil)

	resp, err := NewProcessClient("", time.Second, logging.Nop()).Do(context.Background(), &Request{Method: http.MethodGet, URL: "http://x"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "<html>denied</html>", string(resp.Body))
}

func TestProcessClient_Failures(t *testing.T) {
	tests := []struct {
		mode string
		want NetErrorKind
	}{
		{"refused", netx.KindRefused},
		{"empty", KindMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			fakeCurl(t, tt.mode, nil)

			_, err := NewProcessClient("", time.Second, logging.Nop()).Do(context.Background(), &Request{Method: http.MethodGet, URL: "http://x"})
			var ne *NetError
			require.ErrorAs(t, err, &ne)
			assert.Equal(t, "process", ne.Primitive)
			assert.Equal(t, tt.want, ne.Kind)
		})
	}
}

func TestProcessClient_KilledAtDeadline(t *testing.T) {
	fakeCurl(t, "hang", nil)

	start := time.Now()
	_, err := NewProcessClient("", 10*time.Millisecond, logging.Nop()).Do(context.Background(), &Request{Method: http.MethodGet, URL: "http://x"})
	var ne *NetError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, netx.KindTimeout, ne.Kind)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestCurlArgs(t *testing.T) {
	args := curlArgs(&Request{
		Method: http.MethodDelete,
		URL:    "https://b/student/upload/1",
		Header: http.Header{
			"Content-Type":  []string{"application/json"},
			"Authorization": []string{"Bearer t"},
		},
		Body: []byte(`{}`),
	}, 15*time.Second)

	want := []string{
		"-sS",
		"-X", "DELETE",
		"--connect-timeout", "15",
		"--max-time", "15",
		"-w", statusMarker + "%{http_code}",
		"-H", "Authorization: Bearer t",
		"-H", "Content-Type: application/json",
		"--data-binary", "@-",
		"https://b/student/upload/1",
	}
	assert.Equal(t, want, args)

	noBody := curlArgs(&Request{Method: http.MethodGet, URL: "u"}, 100*time.Millisecond)
	assert.NotContains(t, noBody, "--data-binary")
	assert.Equal(t, "1", noBody[4])
}

func TestParseCurlOutput(t *testing.T) {
	resp, err := parseCurlOutput("line1\nline2" + statusMarker + "201\n")
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)
	assert.Equal(t, "line1\nline2", string(resp.Body))

	_, err = parseCurlOutput("no marker")
	assert.Error(t, err)

	_, err = parseCurlOutput("x" + statusMarker + "000")
	assert.Error(t, err)

	_, err = parseCurlOutput(statusMarker + "abc")
	assert.Error(t, err)
}

func TestCurlExitKind(t *testing.T) {
	assert.Equal(t, netx.KindDNS, curlExitKind(6))
	assert.Equal(t, netx.KindRefused, curlExitKind(7))
	assert.Equal(t, netx.KindTimeout, curlExitKind(28))
	assert.Equal(t, netx.KindOther, curlExitKind(35))
}

func TestDefaultCurlPath(t *testing.T) {
	assert.True(t, strings.HasPrefix(DefaultCurlPath(), "curl"))
}
