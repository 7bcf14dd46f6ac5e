// Command msgrecv subscribes to a source and prints every message it
// receives, mirroring the classic proton msgr/recv.c example.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/amqp-messenger/messenger"
)

func main() {
	source := flag.String("source", "~amqp://0.0.0.0:5672/examples", "subscription source")
	name := flag.String("name", "msgrecv", "container name")
	credit := flag.Int("credit", 10, "receive credit window (-1 for unlimited)")
	timeout := flag.Duration("timeout", 0, "per-call timeout, 0 waits forever")
	flag.Parse()

	m := messenger.New(messenger.MessengerOptions{Name: *name, Timeout: *timeout})
	if err := m.Start(); err != nil {
		log.Fatalf("start: %v", err)
	}
	defer m.Stop()

	if err := m.Subscribe(*source); err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	for {
		if err := m.Recv(*credit); err != nil {
			log.Fatalf("recv: %v", err)
		}
		for {
			msg, err := m.Get()
			if err == messenger.ErrNothingAvailable {
				break
			}
			if err != nil {
				log.Fatalf("get: %v", err)
			}
			fmt.Printf("%s: %v\n", time.Now().Format(time.RFC3339), msg.Body)
			m.Accept(m.IncomingTracker(), 0)
		}
	}
}
