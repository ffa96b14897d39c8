package appstore

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tidemark/internal/adapters/driven/auth"
	"github.com/custodia-labs/tidemark/internal/connectors/rest"
	"github.com/custodia-labs/tidemark/internal/core/domain"
)

const downloadsHeader = "Date\tApp Apple Identifier\tCounts\tProcessing Date\tApp Name\tDownload Type\tPre-Order\tTerritory\n"

func downloadsTSV(day string) string {
	return downloadsHeader +
		day + "\t1\t590\t" + day + "\tAcme Inc\tAuto-update\t\"\"\tFR\n" +
		day + "\t1\t16\t" + day + "\tAcme Inc\tAuto-update\t\"\"\tSG\n" +
		day + "\t1\t11\t" + day + "\tAcme Inc\tAuto-update\t\"\"\tMX\n"
}

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// fakeAPI serves the report chain for app 1.
type fakeAPI struct {
	t         *testing.T
	url       string
	requests  string
	reports   string
	instances []string
	downloads atomic.Int32
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/v1/apps/1/analyticsReportRequests":
		fmt.Fprint(w, f.requests)
	case r.URL.Path == "/v1/analyticsReportRequests/req-1/reports":
		assert.Equal(f.t, "app-downloads-detailed", r.URL.Query().Get("filter[name]"))
		fmt.Fprint(w, f.reports)
	case r.URL.Path == "/v1/analyticsReports/rep-1/instances":
		assert.Equal(f.t, "DAILY", r.URL.Query().Get("filter[granularity]"))
		// First page links to the second.
		if r.URL.Query().Get("cursor") == "" {
			fmt.Fprintf(w, `{"data":[%s],"links":{"next":"%s/v1/analyticsReports/rep-1/instances?filter[granularity]=DAILY&cursor=2"}}`,
				f.instances[0], f.url)
			return
		}
		fmt.Fprintf(w, `{"data":[%s],"links":{}}`, strings.Join(f.instances[1:], ","))
	case strings.HasPrefix(r.URL.Path, "/v1/analyticsReportInstances/"):
		id := strings.Split(r.URL.Path, "/")[3]
		fmt.Fprintf(w, `{"data":[{"type":"analyticsReportSegments","id":"seg-%s","attributes":{"url":"%s/download/%s.gz","checksum":"x"}}]}`,
			id, f.url, id)
	case strings.HasPrefix(r.URL.Path, "/download/"):
		assert.Empty(f.t, r.Header.Get("Authorization"), "segment downloads must not carry credentials")
		f.downloads.Add(1)
		day := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/download/"), ".gz")
		_, _ = w.Write(gzipped(f.t, downloadsTSV(day)))
	default:
		f.t.Errorf("unexpected request %s", r.URL.String())
		w.WriteHeader(http.StatusNotFound)
	}
}

const (
	ongoingRequest = `{"data":[
		{"type":"analyticsReportRequests","id":"req-0","attributes":{"accessType":"ONE_TIME_SNAPSHOT","stoppedDueToInactivity":false}},
		{"type":"analyticsReportRequests","id":"req-1","attributes":{"accessType":"ONGOING","stoppedDueToInactivity":false}}]}`
	downloadsReport = `{"data":[{"type":"analyticsReports","id":"rep-1","attributes":{"name":"app-downloads-detailed","category":"APP_USAGE"}}]}`
)

func instanceJSON(day string) string {
	return fmt.Sprintf(`{"type":"analyticsReportInstances","id":"%s","attributes":{"granularity":"DAILY","processingDate":"%s"}}`, day, day)
}

func newTestConnector(t *testing.T, api *fakeAPI) *Connector {
	t.Helper()
	api.t = t
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	api.url = srv.URL

	cfg, err := ParseConfig(domain.Source{Config: map[string]string{"app_ids": "1", "base_url": srv.URL + "/v1"}})
	require.NoError(t, err)

	return New("src-1", cfg, auth.NewAPIKeyAuthenticator("Authorization", "Bearer ", "signed"),
		rest.WithRateLimiter(rest.NewRateLimiterWithConfig(rest.RateLimitConfig{RequestsPerSecond: 1000, BurstSize: 100})),
		rest.WithSleep(func(ctx context.Context, _ time.Duration) error { return ctx.Err() }),
	)
}

func TestSnakeCase(t *testing.T) {
	assert.Equal(t, "app_apple_identifier", SnakeCase("App Apple Identifier"))
	assert.Equal(t, "pre_order", SnakeCase("Pre-Order"))
	assert.Equal(t, "processing_date", SnakeCase(" Processing Date "))
	assert.Equal(t, "counts", SnakeCase("Counts"))
}

func TestParseSegment(t *testing.T) {
	records, err := ParseSegment(gzipped(t, downloadsTSV("2025-01-01")))
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "590", records[0]["counts"])
	assert.Equal(t, "FR", records[0]["territory"])
	assert.Equal(t, "", records[0]["pre_order"])
	assert.Equal(t, "2025-01-01", records[0]["processing_date"])

	_, err = ParseSegment([]byte("plain text"))
	assert.ErrorIs(t, err, domain.ErrTerminalAPI)
}

func TestConnector_Extract(t *testing.T) {
	api := &fakeAPI{
		requests:  ongoingRequest,
		reports:   downloadsReport,
		instances: []string{instanceJSON("2025-01-01"), instanceJSON("2025-01-02")},
	}
	c := newTestConnector(t, api)

	records, done, err := rest.Collect(c.Extract(context.Background(), domain.ExtractRequest{Resource: "app-downloads-detailed"}))
	require.NoError(t, err)

	require.Len(t, records, 6)
	assert.Equal(t, int32(2), api.downloads.Load())
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), records[0]["date"])
	assert.Equal(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), records[5]["processing_date"])
	assert.Equal(t, "1", records[0]["app_apple_identifier"])
	assert.Equal(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), done.Watermark)
}

func TestConnector_Extract_RerunFromWatermark(t *testing.T) {
	api := &fakeAPI{
		requests:  ongoingRequest,
		reports:   downloadsReport,
		instances: []string{instanceJSON("2025-01-01"), instanceJSON("2025-01-02")},
	}
	c := newTestConnector(t, api)

	first, done, err := rest.Collect(c.Extract(context.Background(), domain.ExtractRequest{
		Resource: "app-downloads-detailed",
		Until:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, err)
	require.Len(t, first, 3)
	require.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), done.Watermark)

	// The window is closed, so the watermark day is read again.
	second, done, err := rest.Collect(c.Extract(context.Background(), domain.ExtractRequest{
		Resource: "app-downloads-detailed",
		Since:    done.Watermark,
	}))
	require.NoError(t, err)
	require.Len(t, second, 6)
	assert.Equal(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), done.Watermark)
}

func TestConnector_Extract_SetupErrors(t *testing.T) {
	tests := []struct {
		name    string
		api     *fakeAPI
		req     domain.ExtractRequest
		wantErr error
	}{
		{
			name: "no ongoing request",
			api: &fakeAPI{requests: `{"data":[
				{"type":"analyticsReportRequests","id":"req-0","attributes":{"accessType":"ONE_TIME_SNAPSHOT","stoppedDueToInactivity":false}},
				{"type":"analyticsReportRequests","id":"req-1","attributes":{"accessType":"ONGOING","stoppedDueToInactivity":true}}]}`},
			req:     domain.ExtractRequest{Resource: "app-downloads-detailed"},
			wantErr: ErrNoOngoingReportRequests,
		},
		{
			name:    "no such report",
			api:     &fakeAPI{requests: ongoingRequest, reports: `{"data":[]}`},
			req:     domain.ExtractRequest{Resource: "app-downloads-detailed"},
			wantErr: ErrNoSuchReport,
		},
		{
			name: "no instance in range",
			api: &fakeAPI{requests: ongoingRequest, reports: downloadsReport,
				instances: []string{instanceJSON("2024-01-03")}},
			req: domain.ExtractRequest{
				Resource: "app-downloads-detailed",
				Since:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				Until:    time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			},
			wantErr: ErrNoReportsFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestConnector(t, tt.api)
			records, _, err := rest.Collect(c.Extract(context.Background(), tt.req))
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
			assert.Empty(t, records)
			assert.Zero(t, tt.api.downloads.Load())
		})
	}
}

func TestConnector_Extract_UnknownReport(t *testing.T) {
	c := newTestConnector(t, &fakeAPI{})
	_, _, err := rest.Collect(c.Extract(context.Background(), domain.ExtractRequest{Resource: "app-nonsense"}))
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestParseConfig(t *testing.T) {
	_, err := ParseConfig(domain.Source{Config: map[string]string{}})
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	cfg, err := ParseConfig(domain.Source{Config: map[string]string{"app_ids": "1,2"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, cfg.AppIDs)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
}
