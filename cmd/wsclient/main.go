// Command wsclient sends one query to a running backend and prints the
// progress frames as they arrive.
//
//	go run ./cmd/wsclient -token $JWT "temperature near 10N 65E in March 2024"
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/fasthttp/websocket"
	"github.com/fatih/color"
)

type frame struct {
	Stage     string                 `json:"stage"`
	Message   string                 `json:"message"`
	Thinking  []string               `json:"thinking"`
	Result    map[string]interface{} `json:"result"`
	QueryMeta map[string]interface{} `json:"query_meta"`
	Traceback string                 `json:"traceback"`
	Error     string                 `json:"error"`
}

// Pretty print JSON helper
func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}

func main() {
	addr := flag.String("addr", "ws://localhost:8000/ws", "websocket endpoint")
	token := flag.String("token", "", "JWT for servers with JWT_SECRET set")
	verbose := flag.Bool("v", false, "print the full result payload")
	flag.Parse()

	query := strings.Join(flag.Args(), " ")
	if query == "" {
		color.Red("usage: wsclient [-addr url] [-token jwt] <query>")
		os.Exit(2)
	}

	target := *addr
	if *token != "" {
		target += "?token=" + url.QueryEscape(*token)
	}

	conn, _, err := websocket.DefaultDialer.Dial(target, nil)
	if err != nil {
		color.Red("Failed to connect: %v", err)
		os.Exit(1)
	}
	defer conn.Close()

	color.Cyan("🚀 %s\n", query)
	if err := conn.WriteJSON(map[string]string{"query": query}); err != nil {
		color.Red("Failed to send: %v", err)
		os.Exit(1)
	}

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			color.Red("Connection closed: %v", err)
			os.Exit(1)
		}

		switch {
		case f.Error != "":
			color.Red("[invalid] %s", f.Error)
			return
		case f.Stage == "error":
			color.Red("[error] %s", f.Message)
			if f.Traceback != "" {
				fmt.Println(f.Traceback)
			}
			return
		case f.Stage == "no_function_call":
			color.Green("[reply] %s", f.Message)
			return
		case f.Stage == "result":
			printResult(f, *verbose)
			return
		default:
			color.Yellow("[%s] %s", f.Stage, f.Message)
			for _, step := range f.Thinking {
				fmt.Printf("    · %s\n", step)
			}
		}
	}
}

func printResult(f frame, verbose bool) {
	if msg, ok := f.Result["message"].(string); ok {
		color.Red("[result] %s", msg)
	} else if analysis, ok := f.Result["analysis"].(string); ok {
		color.Green("[result]")
		fmt.Println(analysis)
	}
	if rows, ok := f.Result["summary"].([]interface{}); ok {
		color.Cyan("%d rows", len(rows))
	}
	if points, ok := f.Result["summaries"].([]interface{}); ok {
		color.Cyan("%d points", len(points))
	}
	if f.QueryMeta != nil {
		prettyPrint(f.QueryMeta)
	}
	if verbose {
		prettyPrint(f.Result)
	}
}
