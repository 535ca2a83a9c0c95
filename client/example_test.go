package client_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/jonwraymond/motapi/client"
)

func ExampleClient_VehicleByRegistration() {
	tokens := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"example-token","expires_in":3600}`))
	}))
	defer tokens.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"path":%q}`, r.URL.Path)
	}))
	defer api.Close()

	mot, err := client.New("client-id", "client-secret", "api-key",
		client.WithTokenURL(tokens.URL),
		client.WithBaseURL(api.URL),
	)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer mot.Close()

	payload, err := mot.VehicleByRegistration(context.Background(), "ABC123")
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(string(payload))
	fmt.Println("remaining:", mot.Budget().DailyRemaining)
	// Output:
	// {"path":"/registration/ABC123"}
	// remaining: 499999
}

func ExampleKindOf() {
	err := client.Classify(http.StatusNotFound)
	fmt.Println(client.KindOf(err), err)
	// Output:
	// api 404: Not Found - The requested data is not found
}
