package httpx_test

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"unifiedprice/internal/httpx"
)

func okResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestGet_DefaultHeaders(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock HTTP client
	ctrl := gomock.NewController(t)
	doer := NewMockDoer(ctrl)

	// Assert: the browser-like defaults are sent
	doer.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, http.MethodGet, req.Method)
			require.Equal(t, "Mozilla/5.0", req.Header.Get("User-Agent"))
			require.Equal(t, "application/json", req.Header.Get("Accept"))
			require.Equal(t, "application/json", req.Header.Get("Content-Type"))
			return okResponse(`{"ok":true}`), nil
		}).
		Times(1)

	c := &httpx.Client{HTTP: doer, Headers: httpx.DefaultHeaders}

	// Act
	b, err := c.Get(t.Context(), "http://example.test/a", nil)

	// Assert
	require.NoError(t, err)
	require.Equal(t, `{"ok":true}`, string(b))
}

func TestGet_PerCallHeadersOverrideDefaults(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	doer := NewMockDoer(ctrl)
	doer.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "*/*", req.Header.Get("Accept"))
			require.Equal(t, "https://fund.eastmoney.com/", req.Header.Get("Referer"))
			require.Equal(t, "Mozilla/5.0", req.Header.Get("User-Agent"))
			return okResponse("x"), nil
		}).
		Times(1)

	c := &httpx.Client{HTTP: doer, Headers: httpx.DefaultHeaders}
	_, err := c.Get(t.Context(), "http://example.test/b", map[string]string{
		"Accept":  "*/*",
		"Referer": "https://fund.eastmoney.com/",
	})
	require.NoError(t, err)
}

func TestGet_NonSuccessStatus(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	doer := NewMockDoer(ctrl)
	doer.EXPECT().
		Do(gomock.Any()).
		Return(&http.Response{
			StatusCode: http.StatusNotFound,
			Body:       io.NopCloser(strings.NewReader("not found")),
		}, nil).
		Times(1)

	c := &httpx.Client{HTTP: doer}
	b, err := c.Get(t.Context(), "http://example.test/missing", nil)
	require.Nil(t, b)

	var se *httpx.StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusNotFound, se.Code)
	require.Equal(t, "not found", se.Body)
}

func TestGet_ErrPerformingRequest(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	doer := NewMockDoer(ctrl)
	boom := errors.New("connection refused")
	doer.EXPECT().Do(gomock.Any()).Return(nil, boom).Times(1)

	c := &httpx.Client{HTTP: doer}
	_, err := c.Get(t.Context(), "http://example.test/", nil)
	require.ErrorIs(t, err, boom)
}

func TestGet_ErrCreatingRequest(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	doer := NewMockDoer(ctrl)
	doer.EXPECT().Do(gomock.Any()).Times(0)

	c := &httpx.Client{HTTP: doer}
	_, err := c.Get(t.Context(), string([]rune{0x7f}), nil)
	require.Error(t, err)
}

func TestNew_HeadersAreIndependent(t *testing.T) {
	t.Parallel()

	c := httpx.New(time.Second)
	c.Headers["User-Agent"] = "custom"

	require.Equal(t, "Mozilla/5.0", httpx.DefaultHeaders["User-Agent"])
	require.Equal(t, "Mozilla/5.0", httpx.New(time.Second).Headers["User-Agent"])
}
