package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/orange-cat-cat/respwire"
	"github.com/orange-cat-cat/respwire/resp"
)

func main() {
	serversFlag := flag.String("servers", "127.0.0.1:6389", "comma-separated server addresses")
	password := flag.String("password", "", "password sent via AUTH on new connections")
	timeout := flag.Duration("timeout", 5*time.Second, "per-batch timeout")
	flag.Parse()

	var auth respwire.Authenticator
	if *password != "" {
		auth = respwire.NewPasswordAuthenticator(*password)
	}

	client, err := respwire.NewClient(
		respwire.NewStaticServers(strings.Split(*serversFlag, ",")...),
		respwire.Config{
			MaxSize:       4,
			Authenticator: auth,
		},
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create client: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	fmt.Println("Commands are sent verbatim; quoting follows shell rules ('it''s' is two arguments).")
	fmt.Println("Type 'quit' to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return
		}
		if line == "stats" {
			printStats(client)
			continue
		}

		req := respwire.NewRequest()
		if err := req.AddCommand("%s", line); err != nil {
			fmt.Printf("(error) %v\n", err)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		response, err := client.Do(ctx, req)
		cancel()
		if err != nil {
			fmt.Printf("(error) %v\n", err)
			continue
		}
		for i := 0; i < response.ReplyCount(); i++ {
			printValue(response.Reply(i), "")
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "error reading input: %v\n", err)
	}
}

func printValue(v *resp.Value, indent string) {
	switch {
	case v.IsNil():
		fmt.Printf("%s(nil)\n", indent)
	case v.IsInteger():
		fmt.Printf("%s(integer) %d\n", indent, v.Integer())
	case v.IsStatus():
		fmt.Printf("%s%s\n", indent, v.Text())
	case v.IsError():
		fmt.Printf("%s(error) %s\n", indent, v.Text())
	case v.IsString():
		fmt.Printf("%s%q\n", indent, v.Text())
	case v.IsArray():
		fmt.Printf("%s(array of %d)\n", indent, v.Len())
		for i := 0; i < v.Len(); i++ {
			printValue(v.Elem(i), indent+"  ")
		}
	}
}

func printStats(client *respwire.Client) {
	stats := client.Stats()
	fmt.Printf("batches=%d commands=%d errors=%d\n", stats.Batches, stats.Commands, stats.Errors)
	for _, sp := range client.AllPoolStats() {
		fmt.Printf("%s: total=%d idle=%d active=%d created=%d destroyed=%d",
			sp.Addr, sp.PoolStats.TotalConns, sp.PoolStats.IdleConns,
			sp.PoolStats.ActiveConns, sp.PoolStats.CreatedConns, sp.PoolStats.DestroyedConns)
		if sp.CircuitBreakerState != "" {
			fmt.Printf(" breaker=%s", sp.CircuitBreakerState)
		}
		fmt.Println()
	}
}
