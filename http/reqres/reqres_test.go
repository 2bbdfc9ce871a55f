package reqres_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xy-planning-network/relay/http/params"
	"github.com/xy-planning-network/relay/http/reqres"
)

var stubCookie = http.Cookie{Name: "relay-test", Value: "tok"}

func TestNewHTTP(t *testing.T) {
	// Arrange
	r := httptest.NewRequest("GET", "https://example.com/users/42?q=term&q=other", nil)
	r.AddCookie(&stubCookie)

	// Act
	rq, err := reqres.NewHTTP(r, reqres.Limits{})

	// Assert
	require.NoError(t, err)
	require.NotEmpty(t, rq.ID())
	require.Equal(t, "GET", rq.Method())
	require.Equal(t, "/users/42", rq.Path())
	require.Equal(t, []string{"users", "42"}, rq.Segments())
	require.Equal(t, []string{"term", "other"}, rq.Query().Values("q", params.Raw))

	v, ok := rq.Cookie(stubCookie.Name)
	require.True(t, ok)
	require.Equal(t, stubCookie.Value, v)

	_, ok = rq.Cookie("absent")
	require.False(t, ok)
}

func TestNewHTTPRootPath(t *testing.T) {
	// Arrange
	r := httptest.NewRequest("GET", "https://example.com/", nil)

	// Act
	rq, err := reqres.NewHTTP(r, reqres.Limits{})

	// Assert
	require.NoError(t, err)
	require.Equal(t, []string{""}, rq.Segments())
}

func TestNewHTTPDecodesSegments(t *testing.T) {
	// Arrange
	r := httptest.NewRequest("GET", "https://example.com/files/a%20b", nil)

	// Act
	rq, err := reqres.NewHTTP(r, reqres.Limits{})

	// Assert
	require.NoError(t, err)
	require.Equal(t, []string{"files", "a b"}, rq.Segments())
}

func TestNewHTTPPathTraversal(t *testing.T) {
	// Arrange
	r := httptest.NewRequest("GET", "https://example.com/files/ok", nil)
	r.URL.Path = "/files/../secret"
	r.URL.RawPath = ""

	// Act
	_, err := reqres.NewHTTP(r, reqres.Limits{})

	// Assert
	var mpe *reqres.MalformedPathError
	require.ErrorAs(t, err, &mpe)
	require.Contains(t, mpe.Reason, "traversal")
}

func TestNewHTTPPathTooLong(t *testing.T) {
	// Arrange
	r := httptest.NewRequest("GET", "https://example.com/"+strings.Repeat("a", 64), nil)

	// Act
	rq, err := reqres.NewHTTP(r, reqres.Limits{MaxURLSize: 32})

	// Assert
	var ptl *reqres.PathTooLongError
	require.ErrorAs(t, err, &ptl)
	require.Equal(t, 32, ptl.Max)
	require.NotEmpty(t, rq.ID(), "request must remain usable for exception handling")
}

func TestNewHTTPParsesForm(t *testing.T) {
	// Arrange
	body := "name=gopher&tag=a&tag=b"
	r := httptest.NewRequest("POST", "https://example.com/submit", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")

	// Act
	rq, err := reqres.NewHTTP(r, reqres.Limits{})

	// Assert
	require.NoError(t, err)
	name, err := rq.Post().Value("name", params.Raw)
	require.NoError(t, err)
	require.Equal(t, "gopher", name)
	require.Equal(t, []string{"a", "b"}, rq.Post().Values("tag", params.Raw))
}

func TestNewHTTPBodyTooLong(t *testing.T) {
	// Arrange
	r := httptest.NewRequest("POST", "https://example.com/submit", strings.NewReader("k="+strings.Repeat("v", 64)))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	// Act
	_, err := reqres.NewHTTP(r, reqres.Limits{MaxBodySize: 16})

	// Assert
	var btl *reqres.BodyTooLongError
	require.ErrorAs(t, err, &btl)
}

func TestScrubParam(t *testing.T) {
	// Arrange
	rq := reqres.NewSimulated("GET", "/home",
		reqres.WithQuery("_s", "tok"),
		reqres.WithQuery("q", "term"),
		reqres.WithPost("_s", "tok"),
	)

	// Act
	removed := rq.ScrubParam("_s")

	// Assert
	require.Equal(t, []string{"tok", "tok"}, removed)
	require.False(t, rq.Query().Has("_s"))
	require.False(t, rq.Post().Has("_s"))
	require.True(t, rq.Query().Has("q"))
}

func TestGoCapturesFailures(t *testing.T) {
	// Arrange
	rq := reqres.NewSimulated("GET", "/work")

	// Act
	rq.Go(func() error { return nil })
	rq.Go(func() error { return errors.New("boom") })

	// Assert
	require.EqualError(t, rq.Wait(), "boom")

	// Arrange
	rq = reqres.NewSimulated("GET", "/work")

	// Act
	rq.Go(func() error { panic("kaboom") })

	// Assert
	require.ErrorContains(t, rq.Wait(), "kaboom")
}

func TestResponseFinalizeRunsOnce(t *testing.T) {
	// Arrange
	resp := reqres.Text(200, "ok")
	count := 0
	resp.OnFinalize(func() { count++ })

	// Act
	resp.Finalize()
	resp.Finalize()

	// Assert
	require.Equal(t, 1, count)
}

func TestWrite(t *testing.T) {
	// Arrange
	resp, err := reqres.JSON(201, map[string]string{"id": "42"})
	require.NoError(t, err)
	resp.AddCookie(&stubCookie)
	w := httptest.NewRecorder()

	// Act
	require.NoError(t, reqres.Write(w, resp))

	// Assert
	require.Equal(t, 201, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	require.JSONEq(t, `{"id":"42"}`, w.Body.String())
	require.Contains(t, w.Header().Get("Set-Cookie"), stubCookie.Name)
}
