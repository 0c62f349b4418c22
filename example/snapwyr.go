package main

import (
	"fmt"
	"net/http"

	snapwyr "github.com/snapwyr/snapwyr-go"
	"github.com/snapwyr/snapwyr-go/pkg/dashboard"
	"github.com/snapwyr/snapwyr-go/pkg/redact"
)

func main() {
	err := snapwyr.Start(&snapwyr.Options{
		LogBody: true,
		Redact:  redact.Keys("password", "token"),
	})
	if err != nil {
		panic(err)
	}
	defer snapwyr.Stop()

	srv := dashboard.New(snapwyr.Default())
	if err := srv.Serve(dashboard.Config{Port: 3333}); err != nil {
		panic(err)
	}
	defer srv.Stop()

	// log all outgoing requests made through the default client
	http.DefaultClient = snapwyr.Default().Wrap(http.DefaultClient)

	resp, err := http.Get("https://httpbin.org/get")
	if err != nil {
		panic(err)
	}
	resp.Body.Close()

	fmt.Println("dashboard at http://localhost:3333 (ctrl-c to exit)")
	select {}
}
