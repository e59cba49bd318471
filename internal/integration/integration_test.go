package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/soheilhy/cmux"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/ata-marzban/tsdb-query-keys/internal/admin"
	"github.com/ata-marzban/tsdb-query-keys/internal/aggregator"
	"github.com/ata-marzban/tsdb-query-keys/internal/server"
	"github.com/ata-marzban/tsdb-query-keys/internal/store"
)

// testServer starts the full service on a random port and returns its base
// URL, port and a cleanup function.
func testServer(t *testing.T) (string, int, func()) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := store.NewMemoryStore()

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)

	restSrv, err := server.New(s, logger)
	if err != nil {
		t.Fatal(err)
	}
	httpMux := http.NewServeMux()
	httpMux.Handle("/v1/", restSrv)
	httpMux.Handle("/admin/", admin.NewHandler(s, aggregator.Default, logger))

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := lis.Addr().(*net.TCPAddr).Port

	m := cmux.New(lis)
	grpcLis := m.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
	httpLis := m.Match(cmux.Any())

	go grpcServer.Serve(grpcLis)
	go http.Serve(httpLis, httpMux)
	go m.Serve()
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	cleanup := func() {
		grpcServer.GracefulStop()
		lis.Close()
	}
	return fmt.Sprintf("http://127.0.0.1:%d", port), port, cleanup
}

func post(t *testing.T, url, body string) (int, map[string]interface{}) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, decodeBody(t, resp)
}

func get(t *testing.T, url string) (int, map[string]interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	out := map[string]interface{}{}
	if resp.StatusCode == http.StatusNoContent {
		return out
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestGRPCHealth(t *testing.T) {
	_, port, cleanup := testServer(t)
	defer cleanup()

	conn, err := grpc.NewClient(
		fmt.Sprintf("127.0.0.1:%d", port),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("got status %v, want SERVING", resp.GetStatus())
	}
}

func TestRESTInterning(t *testing.T) {
	base, _, cleanup := testServer(t)
	defer cleanup()

	// Same tags in a different order intern to one filter.
	code, a := post(t, base+"/v1/filters", `{"id":"cpu","tags":[
		{"tagk":"host","filter":"web*","type":"wildcard","groupBy":true},
		{"tagk":"dc","filter":"lga","type":"literal_or","groupBy":false}]}`)
	if code != http.StatusOK {
		t.Fatalf("POST filter: status %d: %v", code, a)
	}
	code, b := post(t, base+"/v1/filters", `{"id":"cpu","tags":[
		{"tagk":"dc","filter":"lga","type":"literal_or","groupBy":false},
		{"tagk":"host","filter":"web*","type":"wildcard","groupBy":true}]}`)
	if code != http.StatusOK {
		t.Fatalf("POST filter: status %d: %v", code, b)
	}
	if a["fingerprint"] != b["fingerprint"] || b["existed"] != true {
		t.Errorf("reordered tags did not intern to the same filter: %v vs %v", a, b)
	}

	code, body := get(t, base+"/v1/filters/"+a["fingerprint"].(string))
	if code != http.StatusOK {
		t.Fatalf("GET filter: status %d", code)
	}
	filter := body["filter"].(map[string]interface{})
	tags := filter["tags"].([]interface{})
	if first := tags[0].(map[string]interface{}); first["tagk"] != "dc" {
		t.Errorf("stored tags not in canonical order: %v", tags)
	}

	// Interval spelling is part of the identity.
	_, d1 := post(t, base+"/v1/downsamplers", `{"interval":"60s","aggregator":"sum"}`)
	_, d2 := post(t, base+"/v1/downsamplers", `{"interval":"1m","aggregator":"sum"}`)
	if d1["fingerprint"] == d2["fingerprint"] {
		t.Error("60s and 1m interned to the same downsampler")
	}

	code, body = get(t, base+"/v1/downsamplers?filter="+url.QueryEscape(`interval = "1m"`))
	if code != http.StatusOK || len(body["downsamplers"].([]interface{})) != 1 {
		t.Errorf("filtered list: status %d body %v", code, body)
	}

	code, body = post(t, base+"/v1/promql", `{"metric":"sys.cpu","filter":{"id":"cpu","tags":[
		{"tagk":"host","filter":"web*","type":"wildcard","groupBy":true}]},
		"downsampler":{"interval":"1m","aggregator":"p95"},"aggregate":"max"}`)
	if code != http.StatusOK {
		t.Fatalf("POST promql: status %d: %v", code, body)
	}
	if q := body["query"].(string); !strings.HasPrefix(q, "max by (host) (quantile_over_time(0.95, sys_cpu{") {
		t.Errorf("unexpected query %q", q)
	}
}

func TestAdminReset(t *testing.T) {
	base, _, cleanup := testServer(t)
	defer cleanup()

	post(t, base+"/v1/downsamplers", `{"interval":"1m","aggregator":"avg"}`)
	_, state := get(t, base+"/admin/state")
	if state["downsamplers"].(float64) != 1 {
		t.Fatalf("unexpected state %v", state)
	}

	code, _ := post(t, base+"/admin/reset", "")
	if code != http.StatusNoContent {
		t.Errorf("reset: status %d", code)
	}
	_, state = get(t, base+"/admin/state")
	if state["downsamplers"].(float64) != 0 {
		t.Errorf("state after reset %v", state)
	}
}

func TestConcurrentInterning(t *testing.T) {
	base, _, cleanup := testServer(t)
	defer cleanup()

	var wg sync.WaitGroup
	fingerprints := make([]string, 16)
	for i := range fingerprints {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := http.Post(base+"/v1/downsamplers", "application/json",
				strings.NewReader(`{"interval":"5m","aggregator":"max","fillPolicy":{"policy":"zero"}}`))
			if err != nil {
				t.Error(err)
				return
			}
			defer resp.Body.Close()
			var body struct {
				Fingerprint string `json:"fingerprint"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Error(err)
				return
			}
			fingerprints[i] = body.Fingerprint
		}(i)
	}
	wg.Wait()

	for _, fp := range fingerprints[1:] {
		if fp != fingerprints[0] {
			t.Fatalf("concurrent puts disagreed on the fingerprint: %v", fingerprints)
		}
	}
	_, state := get(t, base+"/admin/state")
	if state["downsamplers"].(float64) != 1 || state["hits"].(float64) != 15 {
		t.Errorf("unexpected state %v", state)
	}
}
