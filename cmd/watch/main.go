// watch connects to a running breathe dashboard and prints one line per
// accepted frame.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-breathe/pkg/web"
)

func main() {
	addr := flag.String("addr", "localhost:8080", "Dashboard host:port")
	all := flag.Bool("all", false, "Print skipped frames too")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws/status"}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect %s: %v\n", u.String(), err)
		os.Exit(1)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				fmt.Fprintf(os.Stderr, "read: %v\n", err)
				os.Exit(1)
			}
			return
		}

		var st web.Status
		if err := json.Unmarshal(data, &st); err != nil {
			continue
		}
		if st.Outcome == "" || (!*all && st.Phase == "") {
			continue
		}
		fmt.Println(formatStatus(st))
	}
}

func formatStatus(st web.Status) string {
	mark := " "
	if st.Transition {
		mark = "*"
	}
	if st.Phase == "" {
		return fmt.Sprintf("%6d  %-16s conf=%.2f", st.Seq, st.Outcome, st.Confidence)
	}
	return fmt.Sprintf("%6d %s %-9s size=%.4f change=%+.4f %-22s conf=%.2f",
		st.Seq, mark, st.Phase, st.ChestSize, st.RelativeChange, st.Status, st.Confidence)
}
