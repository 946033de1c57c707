// Command audittail follows wake audit events on the NATS "WAKE" stream and
// prints one colored line per session start or end.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sloth-wake-be/internal/config"
	"sloth-wake-be/pkg/events"
	pktNats "sloth-wake-be/pkg/nats"

	"github.com/fatih/color"
)

func main() {
	durable := flag.String("durable", "", "durable consumer name; empty follows new events only")
	flag.Parse()

	cfg := config.Load()

	sub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer sub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sub.Subscribe(ctx, pktNats.SubjectPrefix+".>", *durable, printEvent); err != nil {
		log.Fatalf("Error: %v", err)
	}

	color.New(color.FgCyan).Printf("Following %s on %s (Ctrl+C to stop)\n", pktNats.StreamName, cfg.App.NatsURL)
	<-ctx.Done()
}

func printEvent(_ context.Context, event events.Event) error {
	data := event.Payload()
	stamp := event.Timestamp().Local().Format(time.TimeOnly)

	switch event.EventType() {
	case events.WakeSessionStarted:
		color.New(color.FgGreen).Printf("%s START %v\n", stamp, data["session_id"])
	case events.WakeSessionEnded:
		outcome := color.New(color.FgRed).Sprint("abandoned")
		if released, _ := data["released"].(bool); released {
			outcome = color.New(color.FgGreen, color.Bold).Sprint("released")
		}
		fmt.Printf("%s END   %v %s phase=%v failed=%v nudges=%v proof=%v\n",
			stamp, data["session_id"], outcome,
			data["phase"], data["failed_attempts"], data["nudge_count"], data["proof_captured"])
	default:
		color.New(color.FgYellow).Printf("%s %s %v\n", stamp, event.EventType(), data)
	}
	return nil
}
