package argo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"floatchat-be/pkg/ocean"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRegion = ocean.Region{
	LonMin: 60, LonMax: 70, LatMin: 5, LatMax: 15,
	DepthMin: 0, DepthMax: 2000,
	DateStart: "2024-03-01", DateEnd: "2024-05-31",
}

func TestQueryURL(t *testing.T) {
	c := NewClient("https://example.org/erddap/", "", 0)
	u := c.QueryURL(testRegion)

	assert.Contains(t, u, "https://example.org/erddap/tabledap/ArgoFloats.json?platform_number,cycle_number,time,latitude,longitude,pres,temp,psal")
	assert.Contains(t, u, "&longitude%3E%3D60")
	assert.Contains(t, u, "&latitude%3C%3D15")
	assert.Contains(t, u, "&pres%3C%3D2000")
	assert.Contains(t, u, "&time%3E%3D2024-03-01T00%3A00%3A00Z")
	assert.Contains(t, u, "&time%3C%3D2024-05-31T23%3A59%3A59Z")
}

func TestFetchDecodesTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/erddap/tabledap/ArgoFloats.json", r.URL.Path)
		w.Write([]byte(`{"table":{
			"columnNames":["platform_number","time","latitude","longitude","pres","temp","psal"],
			"columnTypes":["String","String","double","double","float","float","float"],
			"rows":[["2902746","2024-03-02T04:10:00Z",10.2,65.1,5.0,28.4,null]]
		}}`))
	}))
	defer srv.Close()

	tbl, err := NewClient(srv.URL+"/erddap", "", time.Second).Fetch(context.Background(), testRegion)
	require.NoError(t, err)
	assert.Equal(t, []string{"PLATFORM_NUMBER", "TIME", "LATITUDE", "LONGITUDE", "PRES", "TEMP", "PSAL"}, tbl.Columns)
	require.Equal(t, 1, tbl.Len())

	row, err := tbl.Record(0)
	require.NoError(t, err)
	assert.Equal(t, 28.4, row["TEMP"])
	assert.Nil(t, row["PSAL"])
}

func TestFetchClassifiesFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"not found", http.StatusNotFound, "Error {\n    code=404;\n    message=\"Not Found: Your query produced no matching results. (nRows = 0)\";\n}", ErrNoData},
		{"no match under 500", http.StatusInternalServerError, "Your query produced no matching results.", ErrNoData},
		{"gateway timeout", http.StatusGatewayTimeout, "", ErrTimeout},
		{"overloaded", http.StatusServiceUnavailable, "busy", ErrTransport},
		{"rate limited", http.StatusTooManyRequests, "", ErrTransport},
		{"empty rows", http.StatusOK, `{"table":{"columnNames":["time"],"rows":[]}}`, ErrNoData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, "", time.Second).Fetch(context.Background(), testRegion)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, ocean.IsTransient(err))
		})
	}
}

func TestFetchBadRequestIsNotTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Query error: Unrecognized variable=\"tmp\"", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", time.Second).Fetch(context.Background(), testRegion)
	require.Error(t, err)
	assert.False(t, ocean.IsTransient(err))
}

func TestFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewClient(srv.URL, "", 50*time.Millisecond).Fetch(context.Background(), testRegion)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestFetchUnreachableIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	_, err := NewClient(addr, "", time.Second).Fetch(context.Background(), testRegion)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
}
