// Command msgsend puts a single message to an address and waits for it
// to be sent, mirroring the classic proton msgr/send.c example.
package main

import (
	"flag"
	"log"
	"time"

	"github.com/amqp-messenger/messenger"
)

func main() {
	addr := flag.String("address", "amqp://127.0.0.1:5672/examples", "destination address")
	body := flag.String("body", "hello", "message body")
	name := flag.String("name", "msgsend", "container name")
	timeout := flag.Duration("timeout", 10*time.Second, "send timeout")
	flag.Parse()

	m := messenger.New(messenger.MessengerOptions{Name: *name, Timeout: *timeout})
	if err := m.Start(); err != nil {
		log.Fatalf("start: %v", err)
	}
	defer m.Stop()

	msg := &messenger.Message{Address: *addr, Body: *body}
	if err := m.Put(msg); err != nil {
		log.Fatalf("put: %v", err)
	}
	if err := m.Send(); err != nil {
		log.Fatalf("send: %v", err)
	}

	status := m.GetStatus(m.OutgoingTracker())
	log.Printf("sent %q to %s, status=%v", *body, *addr, status)
}
