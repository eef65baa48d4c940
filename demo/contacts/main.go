package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"

	"github.com/joho/godotenv"

	"github.com/saturnines/msisdn-extractor/pkg/config"
	"github.com/saturnines/msisdn-extractor/pkg/core"
	"github.com/saturnines/msisdn-extractor/pkg/loader"
	"github.com/saturnines/msisdn-extractor/pkg/logger"
	"github.com/saturnines/msisdn-extractor/pkg/output"
)

var profiles = map[string]string{
	"994501234567": `{"individualId": "IND-1", "accounts": [{"accountInternalId": "ACC-9"}], "document": {"pin": "5ABC123"}, "personalDetails": {"lastName": "Aliyev"}}`,
	"994551112233": `{"individualId": "IND-2", "accounts": [], "document": null, "personalDetails": {"lastName": "Mammadova"}}`,
}

// fakeContactsAPI stands in for the real service when CONTACTS_API_URL is unset
func fakeContactsAPI() *httptest.Server {
	var flaky int32
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		msisdn := r.URL.Query().Get("msisdn")
		if msisdn == "994990000000" && atomic.AddInt32(&flaky, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		body, ok := profiles[msisdn]
		if !ok {
			body = `{"individualId": null}`
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env file not loaded:", err)
	}

	if os.Getenv("CONTACTS_API_URL") == "" {
		srv := fakeContactsAPI()
		defer srv.Close()
		os.Setenv("CONTACTS_API_URL", srv.URL)
	}

	zlog, err := logger.New(logger.Options{Level: "info"})
	if err != nil {
		log.Fatal(err)
	}
	defer zlog.Sync()

	job, err := config.NewDefaultLoader().Load("demo/contacts/job.yaml")
	if err != nil {
		log.Fatal(err)
	}

	in, err := loader.Load(job.Input, zlog)
	if err != nil {
		log.Fatal(err)
	}

	connector, err := core.NewConnector(job, core.WithLogger(zlog))
	if err != nil {
		log.Fatal(err)
	}

	results := connector.Run(context.Background(), in.MSISDNs)

	path, err := output.Write(job.Output, connector.Keys(), results)
	if err != nil {
		log.Fatal(err)
	}

	s := results.Summary()
	fmt.Printf("Looked up %d MSISDNs (%d success), results in %s\n", s.Total, s.Success, path)
	for _, r := range results {
		id, _ := r.Field("individualId")
		fmt.Printf("%s  %-18s individualId=%q attempts=%d\n", r.Identifier, r.Status, id.Value.Text(), r.Attempts)
	}
}
